package scanning

import "errors"

// ErrOCRUnavailable is returned when a document needs OCR and no Scanner is configured
var ErrOCRUnavailable = errors.New("no ocr scanner configured")

// ErrUnsupportedContentType is returned for documents the Loader cannot read
var ErrUnsupportedContentType = errors.New("unsupported content type")

// Scanner defines the interface for receipt transcription
type Scanner interface {
	// ScanReceipt transcribes a receipt image/PDF into its printed text
	ScanReceipt(imageData []byte, contentType string) (string, error)
	// Close closes the scanner and releases resources
	Close() error
}
