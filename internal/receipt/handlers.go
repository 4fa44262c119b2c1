package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/zombor/fiscal-receipts/internal/scanning"
)

// maxUploadSize fits high-resolution phone photos
const maxUploadSize = int64(50 << 20)

// corsError writes a plain text error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes a {"error": message} response with CORS headers set
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	writeJSON(w, code, map[string]string{"error": message})
}

// documentError maps a failed parse or upload to a status code and client message.
// Only document loading failures are described, storage errors stay in the log.
func documentError(err error) (int, string) {
	switch {
	case errors.Is(err, scanning.ErrUnsupportedContentType):
		return http.StatusUnsupportedMediaType, err.Error()
	case errors.Is(err, scanning.ErrOCRUnavailable):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, ErrUnreadableDocument):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "Error processing receipt"
	}
}

// readUpload reads the "file" part of a multipart form.
// Returns the filename, data and content type, or writes the error response.
func readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, string, bool) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return "", nil, "", false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		errorMsg := "No file provided"
		if errors.Is(err, http.ErrMissingFile) {
			errorMsg = "No file was selected. Please choose a file to upload."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return "", nil, "", false
	}
	defer f.Close()

	if header.Size > maxUploadSize {
		jsonError(w, "File is too large. Maximum size is 50MB.", http.StatusBadRequest)
		return "", nil, "", false
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return "", nil, "", false
	}

	// Browsers send application/octet-stream for unknown types such as HEIC
	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = scanning.ContentTypeFromFilename(header.Filename)
	}

	return header.Filename, data, contentType, true
}

// handleHealth reports liveness, it is not behind auth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleParse parses a receipt without storing it. The document is either
// the raw request body or the "file" part of a multipart form.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var (
		data        []byte
		contentType = r.Header.Get("Content-Type")
	)

	if mt, _, _ := mime.ParseMediaType(contentType); mt == "multipart/form-data" {
		var ok bool
		_, data, contentType, ok = readUpload(w, r)
		if !ok {
			return
		}
	} else {
		var err error
		data, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
		if err != nil {
			jsonError(w, "Error reading request body", http.StatusBadRequest)
			return
		}
		if contentType == "" {
			contentType = "text/plain; charset=utf-8"
		}
	}

	bill, err := s.service.ParseDocument(data, contentType)
	if err != nil {
		slog.Error("Error parsing receipt", "content_type", contentType, "error", err)
		code, message := documentError(err)
		jsonError(w, message, code)
		return
	}

	writeJSON(w, http.StatusOK, bill)
}

// handleListReceipts returns a list of all receipts
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, receipts)
}

// handleUploadReceipt stores and parses an uploaded receipt
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	filename, data, contentType, ok := readUpload(w, r)
	if !ok {
		return
	}

	receipt, err := s.service.ProcessReceipt(filename, data, contentType)
	if err != nil {
		slog.Error("Error processing receipt", "filename", filename, "error", err)
		code, message := documentError(err)
		jsonError(w, message, code)
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.PathValue("id"))
	if err != nil {
		corsError(w, "Receipt not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// handleGetReceiptFile returns the uploaded file of a receipt
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		corsError(w, "File not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleGetReceiptText returns the text the receipt was parsed from
func (s *Server) handleGetReceiptText(w http.ResponseWriter, r *http.Request) {
	text, err := s.service.GetReceiptText(r.PathValue("id"))
	if err != nil {
		corsError(w, "Text not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, text)
}

// handleReparseReceipt parses the stored text of a receipt again
func (s *Server) handleReparseReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.ReparseReceipt(r.PathValue("id"))
	if err != nil {
		slog.Error("Error reparsing receipt", "id", r.PathValue("id"), "error", err)
		if errors.Is(err, ErrNotFound) {
			corsError(w, "Receipt not found", http.StatusNotFound)
			return
		}
		corsError(w, "Error reparsing receipt", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, receipt)
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			corsError(w, "Receipt not found", http.StatusNotFound)
		case errors.Is(err, ErrReceiptInReport):
			corsError(w, "Receipt belongs to a report", http.StatusConflict)
		default:
			corsError(w, "Error deleting receipt", http.StatusInternalServerError)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleExport returns the items of all receipts, or of one report, as a workbook
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	reportID := r.URL.Query().Get("report")

	data, err := s.service.ExportItems(reportID)
	if err != nil {
		slog.Error("Error exporting items", "report_id", reportID, "error", err)
		if errors.Is(err, ErrNotFound) {
			corsError(w, "Report not found", http.StatusNotFound)
			return
		}
		corsError(w, "Error exporting items", http.StatusInternalServerError)
		return
	}

	filename := "receipts.xlsx"
	if reportID != "" {
		filename = fmt.Sprintf("report-%s.xlsx", reportID)
	}
	w.Header().Set("Content-Type", XLSXContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Write(data)
}

// handleListReports returns a list of all reports
func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := s.service.ListReports()
	if err != nil {
		slog.Error("Error listing reports", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Always an array, never null
	if reports == nil {
		reports = []*BillReport{}
	}

	writeJSON(w, http.StatusOK, reports)
}

// handleCreateReport groups receipts into a report
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReceiptIDs []string `json:"receipt_ids"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	report, err := s.service.CreateReport(req.ReceiptIDs)
	if err != nil {
		slog.Error("Error creating report", "error", err)
		code := http.StatusBadRequest
		if errors.Is(err, ErrReceiptInReport) {
			code = http.StatusConflict
		}
		jsonError(w, err.Error(), code)
		return
	}

	writeJSON(w, http.StatusCreated, report)
}

// handleGetReport returns a report with its receipts
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	report, receipts, err := s.service.GetReportWithReceipts(r.PathValue("id"))
	if err != nil {
		corsError(w, "Report not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"report":   report,
		"receipts": receipts,
	})
}
