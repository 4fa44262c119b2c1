package receipt

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/fiscal-receipts/internal/fiscal"
	"github.com/zombor/fiscal-receipts/internal/scanning"
)

// ErrUnreadableDocument wraps failures to get receipt text out of an upload
var ErrUnreadableDocument = errors.New("loading receipt text")

// ErrReceiptInReport is returned when a receipt that belongs to a report is deleted or reported again
var ErrReceiptInReport = errors.New("receipt belongs to a report")

// Loader extracts receipt text from an uploaded document
type Loader interface {
	Load(data []byte, contentType string) (string, error)
}

// Parser decodes receipt text into a bill
type Parser interface {
	Parse(text string) *fiscal.Bill
}

// IDGenerator generates unique IDs for receipts and reports
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles receipt operations
type Service struct {
	db          DB
	loader      Loader
	parser      Parser
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, loader Loader, parser Parser, storage Storage) *Service {
	return NewServiceWithDeps(db, loader, parser, storage, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, loader Loader, parser Parser, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		loader:      loader,
		parser:      parser,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^\p{L}\p{N}\s\-_]`)
	whitespaceRun       = regexp.MustCompile(`\s+`)
)

// sanitizeFilename strips special characters and long phone-generated names
func sanitizeFilename(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if unsafeFilenameChars.MatchString(strings.TrimPrefix(ext, ".")) {
		ext = ""
	}
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	base = unsafeFilenameChars.ReplaceAllString(base, "")
	base = whitespaceRun.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	if runes := []rune(base); len(runes) > 50 {
		base = strings.TrimSpace(string(runes[:50]))
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// ParseText decodes receipt text without storing anything
func (s *Service) ParseText(text string) *fiscal.Bill {
	return s.parser.Parse(scanning.NormalizeText(text))
}

// ParseDocument extracts and decodes an uploaded document without storing anything
func (s *Service) ParseDocument(data []byte, contentType string) (*fiscal.Bill, error) {
	text, err := s.loader.Load(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreadableDocument, err)
	}
	return s.parser.Parse(text), nil
}

// ProcessReceipt stores an uploaded receipt, extracts its text and parses it
func (s *Service) ProcessReceipt(filename string, data []byte, contentType string) (*Receipt, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	text, err := s.loader.Load(data, contentType)
	if err != nil {
		slog.Error("Failed to load receipt text",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrUnreadableDocument, err)
	}

	savedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving file: %w", err)
	}

	textPath, err := s.storage.Save(id+".txt", []byte(text))
	if err != nil {
		s.removeFiles(savedPath)
		return nil, fmt.Errorf("saving receipt text: %w", err)
	}

	bill := s.parser.Parse(text)
	if bill.Company == nil && len(bill.Items) == 0 {
		slog.Warn("Receipt text has no recognizable content", "id", id, "filename", filename)
	}

	receipt := &Receipt{
		ID:               id,
		OriginalFilename: filename,
		Filename:         savedPath,
		TextFilename:     textPath,
		ContentType:      contentType,
		Bill:             bill,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		s.removeFiles(savedPath, textPath)
		return nil, fmt.Errorf("saving receipt to database: %w", err)
	}

	slog.Info("Processed receipt", "id", id, "items", len(bill.Items), "total", bill.Price)
	return receipt, nil
}

// removeFiles cleans up stored files, logging failures
func (s *Service) removeFiles(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := s.storage.Delete(path); err != nil {
			slog.Warn("Failed to delete file", "filename", path, "error", err)
		}
	}
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts, newest first
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	slices.SortStableFunc(receipts, func(a, b *Receipt) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return receipts, nil
}

// DeleteReceipt removes a receipt and its files. Receipts in a report are kept.
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	// The database refuses receipts in a report, files go only after it agreed
	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt from database: %w", err)
	}

	s.removeFiles(receipt.Filename, receipt.TextFilename)
	return nil
}

// GetReceiptFile retrieves the uploaded file of a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.Filename)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, receipt.ContentType, nil
}

// GetReceiptText retrieves the extracted text of a receipt
func (s *Service) GetReceiptText(id string) (string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.TextFilename)
	if err != nil {
		return "", fmt.Errorf("getting receipt text: %w", err)
	}

	return string(data), nil
}

// ReparseReceipt runs the parser again over the stored text of a receipt
func (s *Service) ReparseReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.TextFilename)
	if err != nil {
		return nil, fmt.Errorf("getting receipt text: %w", err)
	}

	receipt.Bill = s.ParseText(string(data))
	receipt.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveReceipt(receipt); err != nil {
		return nil, fmt.Errorf("saving receipt %s: %w", id, err)
	}
	return receipt, nil
}

// CreateReport groups receipts into a new report and totals them
func (s *Service) CreateReport(receiptIDs []string) (*BillReport, error) {
	if len(receiptIDs) == 0 {
		return nil, fmt.Errorf("at least one receipt is required")
	}

	receipts := make([]*Receipt, 0, len(receiptIDs))
	seen := make(map[string]bool, len(receiptIDs))
	for _, receiptID := range receiptIDs {
		if seen[receiptID] {
			return nil, fmt.Errorf("receipt %s is listed twice", receiptID)
		}
		seen[receiptID] = true

		receipt, err := s.db.GetReceipt(receiptID)
		if err != nil {
			return nil, fmt.Errorf("getting receipt %s: %w", receiptID, err)
		}
		if receipt.ReportID != "" {
			return nil, fmt.Errorf("receipt %s: %w %s", receiptID, ErrReceiptInReport, receipt.ReportID)
		}
		receipts = append(receipts, receipt)
	}

	now := s.timeSource.Now()
	total, vatTotals := summarize(receipts)
	report := &BillReport{
		ID:         s.idGenerator.Generate(),
		ReceiptIDs: receiptIDs,
		Total:      total,
		VATTotals:  vatTotals,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.db.SaveReport(report); err != nil {
		return nil, fmt.Errorf("saving report: %w", err)
	}

	return report, nil
}

// GetReport retrieves a report by ID
func (s *Service) GetReport(id string) (*BillReport, error) {
	report, err := s.db.GetReport(id)
	if err != nil {
		return nil, fmt.Errorf("getting report: %w", err)
	}
	return report, nil
}

// GetReportWithReceipts retrieves a report with its receipts
func (s *Service) GetReportWithReceipts(id string) (*BillReport, []*Receipt, error) {
	report, err := s.db.GetReport(id)
	if err != nil {
		return nil, nil, fmt.Errorf("getting report: %w", err)
	}

	receipts := make([]*Receipt, 0, len(report.ReceiptIDs))
	for _, receiptID := range report.ReceiptIDs {
		receipt, err := s.db.GetReceipt(receiptID)
		if err != nil {
			return nil, nil, fmt.Errorf("getting receipt %s: %w", receiptID, err)
		}
		receipts = append(receipts, receipt)
	}

	return report, receipts, nil
}

// ListReports returns all reports
func (s *Service) ListReports() ([]*BillReport, error) {
	reports, err := s.db.ListReports()
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	return reports, nil
}

// ExportItems writes the items of a report, or of every receipt when
// reportID is empty, as an xlsx workbook
func (s *Service) ExportItems(reportID string) ([]byte, error) {
	var (
		receipts []*Receipt
		err      error
	)
	if reportID == "" {
		receipts, err = s.ListReceipts()
	} else {
		_, receipts, err = s.GetReportWithReceipts(reportID)
	}
	if err != nil {
		return nil, err
	}

	data, err := writeWorkbook(receipts)
	if err != nil {
		return nil, fmt.Errorf("exporting items: %w", err)
	}
	return data, nil
}
