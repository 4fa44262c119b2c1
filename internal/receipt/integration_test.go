package receipt_test

import (
	"bytes"
	"encoding/json"
	"html"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/fiscal-receipts/internal/fiscal"
	"github.com/zombor/fiscal-receipts/internal/receipt"
	"github.com/zombor/fiscal-receipts/internal/scanning"
)

var _ = Describe("Integration", func() {
	var (
		tempDir  string
		db       receipt.DB
		store    receipt.Storage
		server   *receipt.Server
		ghServer *ghttp.Server
		journal  []byte
	)

	BeforeEach(func() {
		var err error
		tempDir = GinkgoT().TempDir()

		journal, err = os.ReadFile(filepath.Join("testdata", "receipt.txt"))
		Expect(err).NotTo(HaveOccurred())

		db, err = receipt.NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		store, err = receipt.NewLocalStorage(filepath.Join(tempDir, "receipts"))
		Expect(err).NotTo(HaveOccurred())

		// No OCR backend, documents must carry their own text
		loader := scanning.NewLoader(nil)
		parser := fiscal.NewParser(fiscal.WithLocation(time.UTC))
		service := receipt.NewService(db, loader, parser, store)
		server = receipt.NewServer(service, receipt.BasicAuth{})

		ghServer = ghttp.NewServer()
	})

	AfterEach(func() {
		if ghServer != nil {
			ghServer.Close()
		}
		if db != nil {
			db.Close()
		}
	})

	// CreateFormFile sends octet-stream, the server falls back to the filename
	upload := func(filename string, data []byte) *http.Response {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write(data)
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		resp, err := http.Post(ghServer.URL()+"/api/receipts", writer.FormDataContentType(), body)
		Expect(err).NotTo(HaveOccurred())
		return resp
	}

	decode := func(resp *http.Response, v any) {
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(json.Unmarshal(data, v)).To(Succeed())
	}

	It("should upload a receipt, group it in a report and export it", func() {
		// One handler per request
		ghServer.AppendHandlers(
			server.ServeHTTP, // upload
			server.ServeHTTP, // text
			server.ServeHTTP, // report
			server.ServeHTTP, // delete
			server.ServeHTTP, // export
		)

		// --- Step 1: Upload ---
		resp := upload("delhaize.txt", journal)
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var uploaded receipt.Receipt
		decode(resp, &uploaded)
		Expect(uploaded.OriginalFilename).To(Equal("delhaize.txt"))
		Expect(uploaded.Bill.Price).To(Equal(1985.76))
		Expect(uploaded.Bill.Items).To(HaveLen(4))
		Expect(*uploaded.Bill.Company.Name).To(Equal("DELHAIZE SERBIA"))

		// The upload and its text are on disk
		_, err := store.Get(uploaded.Filename)
		Expect(err).NotTo(HaveOccurred())
		_, err = store.Get(uploaded.TextFilename)
		Expect(err).NotTo(HaveOccurred())

		// --- Step 2: Stored text ---
		resp, err = http.Get(ghServer.URL() + "/api/receipts/" + uploaded.ID + "/text")
		Expect(err).NotTo(HaveOccurred())
		text, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(text)).To(ContainSubstring("DELHAIZE SERBIA"))

		// --- Step 3: Report ---
		reqBody, err := json.Marshal(map[string][]string{"receipt_ids": {uploaded.ID}})
		Expect(err).NotTo(HaveOccurred())
		resp, err = http.Post(ghServer.URL()+"/api/reports", "application/json", bytes.NewReader(reqBody))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var report receipt.BillReport
		decode(resp, &report)
		Expect(report.Total).To(Equal(1985.76))
		Expect(report.VATTotals).To(Equal([]receipt.VATTotal{
			{Rate: fiscal.VATExempt, Amount: 50, Tax: 0},
			{Rate: fiscal.VATReduced, Amount: 336.76, Tax: 30.61},
			{Rate: fiscal.VATStandard, Amount: 1599, Tax: 266.5},
		}))

		saved, err := db.GetReceipt(uploaded.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.ReportID).To(Equal(report.ID))

		// --- Step 4: Reported receipts stay ---
		req, err := http.NewRequest(http.MethodDelete, ghServer.URL()+"/api/receipts/"+uploaded.ID, nil)
		Expect(err).NotTo(HaveOccurred())
		resp, err = http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusConflict))

		// --- Step 5: Export ---
		resp, err = http.Get(ghServer.URL() + "/api/receipts/export.xlsx?report=" + report.ID)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(resp.Header.Get("Content-Type")).To(Equal(receipt.XLSXContentType))
	})

	It("should read the journal out of a saved verification page", func() {
		ghServer.AppendHandlers(server.ServeHTTP)

		page := "<html><body><h1>Verification</h1><pre>" + html.EscapeString(string(journal)) + "</pre></body></html>"
		resp := upload("verification.html", []byte(page))
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var uploaded receipt.Receipt
		decode(resp, &uploaded)
		Expect(uploaded.ContentType).To(Equal("text/html"))
		Expect(*uploaded.Bill.Number).To(Equal("WZXFP6BK-WZXFP6BK-481536"))
	})

	It("should refuse photos when no OCR backend is configured", func() {
		ghServer.AppendHandlers(server.ServeHTTP)

		resp := upload("photo.jpg", []byte{0xff, 0xd8, 0xff})
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))

		receipts, err := db.ListReceipts()
		Expect(err).NotTo(HaveOccurred())
		Expect(receipts).To(BeEmpty())
	})
})

// interleavingDB runs another request right before the next report is saved
type interleavingDB struct {
	receipt.DB
	before func()
}

func (d *interleavingDB) SaveReport(report *receipt.BillReport) error {
	if d.before != nil {
		before := d.before
		d.before = nil
		before()
	}
	return d.DB.SaveReport(report)
}

var _ = Describe("Reports with concurrent requests", func() {
	var (
		db      *interleavingDB
		other   *receipt.Service
		service *receipt.Service
		stored  *receipt.Receipt
	)

	BeforeEach(func() {
		tempDir := GinkgoT().TempDir()

		bolt, err := receipt.NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(bolt.Close)

		store, err := receipt.NewLocalStorage(filepath.Join(tempDir, "receipts"))
		Expect(err).NotTo(HaveOccurred())

		loader := scanning.NewLoader(nil)
		parser := fiscal.NewParser(fiscal.WithLocation(time.UTC))
		db = &interleavingDB{DB: bolt}
		service = receipt.NewService(db, loader, parser, store)
		other = receipt.NewService(bolt, loader, parser, store)

		journal, err := os.ReadFile(filepath.Join("testdata", "receipt.txt"))
		Expect(err).NotTo(HaveOccurred())
		stored, err = other.ProcessReceipt("delhaize.txt", journal, "text/plain")
		Expect(err).NotTo(HaveOccurred())
	})

	It("should keep a receipt in the report that claimed it first", func() {
		var first *receipt.BillReport
		db.before = func() {
			var err error
			first, err = other.CreateReport([]string{stored.ID})
			Expect(err).NotTo(HaveOccurred())
		}

		_, err := service.CreateReport([]string{stored.ID})
		Expect(err).To(MatchError(receipt.ErrReceiptInReport))

		reports, err := service.ListReports()
		Expect(err).NotTo(HaveOccurred())
		Expect(reports).To(HaveLen(1))

		saved, err := service.GetReceipt(stored.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved.ReportID).To(Equal(first.ID))
	})

	It("should not bring back a receipt deleted meanwhile", func() {
		db.before = func() {
			Expect(other.DeleteReceipt(stored.ID)).To(Succeed())
		}

		_, err := service.CreateReport([]string{stored.ID})
		Expect(err).To(MatchError(receipt.ErrNotFound))

		_, err = service.GetReceipt(stored.ID)
		Expect(err).To(MatchError(receipt.ErrNotFound))

		reports, err := service.ListReports()
		Expect(err).NotTo(HaveOccurred())
		Expect(reports).To(BeEmpty())
	})
})
