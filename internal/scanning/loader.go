package scanning

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/encoding/charmap"
)

// Loader turns an uploaded document into receipt text.
// Text documents are read directly, images and scanned PDFs go through the OCR Scanner.
type Loader struct {
	ocr Scanner
}

// NewLoader creates a Loader. ocr may be nil, in which case only
// documents that carry text can be loaded.
func NewLoader(ocr Scanner) *Loader {
	return &Loader{ocr: ocr}
}

// Load extracts the receipt text of a document
func (l *Loader) Load(data []byte, contentType string) (string, error) {
	mt, cs := parseContentType(contentType)
	if mt == "" || mt == "application/octet-stream" {
		mt, cs = parseContentType(http.DetectContentType(data))
	}

	var (
		text string
		err  error
	)
	switch {
	case mt == "text/plain":
		text = decodeText(data, cs)
	case mt == "text/html":
		text, err = htmlJournal(data, cs)
	case mt == "application/pdf":
		text, err = l.loadPDF(data)
	case strings.HasPrefix(mt, "image/"):
		text, err = l.scan(data, mt)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedContentType, mt)
	}
	if err != nil {
		return "", err
	}

	return NormalizeText(text), nil
}

// loadPDF prefers the embedded text layer and falls back to OCR of the first page
func (l *Loader) loadPDF(data []byte) (string, error) {
	text, err := pdfText(data)
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}
	if strings.TrimSpace(text) != "" {
		return text, nil
	}

	slog.Debug("PDF has no text layer, falling back to OCR")
	return l.scan(data, "application/pdf")
}

func (l *Loader) scan(data []byte, contentType string) (string, error) {
	if l.ocr == nil {
		return "", ErrOCRUnavailable
	}
	text, err := l.ocr.ScanReceipt(data, contentType)
	if err != nil {
		return "", fmt.Errorf("scanning receipt: %w", err)
	}
	return text, nil
}

// decodeText reads plain text. Older fiscal printers export Windows-1251,
// which is used when declared or when the data is not valid UTF-8.
func decodeText(data []byte, charset string) string {
	switch charset {
	case "windows-1251", "cp1251":
		return decodeWindows1251(data)
	}
	if utf8.Valid(data) {
		return string(data)
	}
	return decodeWindows1251(data)
}

func decodeWindows1251(data []byte) string {
	decoded, err := charmap.Windows1251.NewDecoder().Bytes(data)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}

// htmlJournal reads the receipt journal from a saved verification page,
// where it is the preformatted block of the page
func htmlJournal(data []byte, charset string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(decodeText(data, charset))))
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	journal := doc.Find("pre").First()
	if journal.Length() == 0 {
		return "", fmt.Errorf("no receipt journal found in html document")
	}

	return journal.Text(), nil
}
