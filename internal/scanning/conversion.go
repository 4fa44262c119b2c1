package scanning

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// transcriptionPrompt is shared by every OCR provider
const transcriptionPrompt = `The image is a Serbian fiscal receipt ("ФИСКАЛНИ РАЧУН") printed on a narrow thermal printer.

Transcribe it exactly as printed:
- Keep every line break where the printer broke the line, including item names wrapped mid-word.
- Keep the leading spaces of the price rows and the column spacing. The receipt is 40 characters wide.
- Keep Cyrillic letters Cyrillic and Latin letters Latin. Do not transliterate.
- Keep numbers exactly as printed, with "." as thousands separator and "," as decimal separator.
- Keep the separator lines made of "=" and "-" with their full length.
- Do not add, correct, summarize or translate anything.

Return only the receipt text, without commentary and without markdown code blocks.`

// pdfText extracts the embedded text layer of every page.
// Scanned PDFs without a text layer return an empty string.
func pdfText(pdfData []byte) (string, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return "", fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	var text strings.Builder
	for page := 0; page < doc.NumPage(); page++ {
		pageText, err := doc.Text(page)
		if err != nil {
			return "", fmt.Errorf("extracting text of page %d: %w", page, err)
		}
		text.WriteString(pageText)
	}

	return text.String(), nil
}

// pdfToImage renders the first page of a PDF as PNG
func pdfToImage(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	// Fiscal receipts fit on a single page
	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// imageToPNG converts any supported image format to PNG
func imageToPNG(imageData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	// Go's image package can't read HEIC, the default format of iPhone photos
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			if strings.Contains(err.Error(), "unknown format") {
				return nil, fmt.Errorf("%w: supported images are JPEG, PNG, GIF, HEIC and HEIF: %w", ErrUnsupportedContentType, err)
			}
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// isHEICFormat checks for an ftyp box with a HEIC/HEIF brand
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heix", "heif", "mif1", "msf1":
		return true
	}
	return false
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// convertToPNG converts PDFs and non-PNG images to PNG.
// Returns the PNG data and whether a conversion happened.
func convertToPNG(imageData []byte, mimeType string) ([]byte, bool, error) {
	switch {
	case mimeType == "application/pdf":
		pngData, err := pdfToImage(imageData)
		if err != nil {
			return nil, false, fmt.Errorf("converting PDF to image: %w", err)
		}
		return pngData, true, nil
	case mimeType != "image/png" || isHEICFormat(imageData):
		pngData, err := imageToPNG(imageData, mimeType)
		if err != nil {
			return nil, false, fmt.Errorf("converting image to PNG: %w", err)
		}
		return pngData, true, nil
	}
	return imageData, false, nil
}

// prepareImageData normalizes the MIME type and converts the document to PNG if needed.
// Returns the PNG data, its MIME type and whether a conversion happened.
func prepareImageData(imageData []byte, contentType string) ([]byte, string, bool, error) {
	mimeType := mediaType(contentType)
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	finalImageData, converted, err := convertToPNG(imageData, mimeType)
	if err != nil {
		return nil, "", false, err
	}

	return finalImageData, "image/png", converted, nil
}
