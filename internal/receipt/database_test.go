package receipt

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/fiscal-receipts/internal/fiscal"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newReceipt := func(id string) *Receipt {
		date := time.Date(2023, 5, 6, 10, 55, 9, 0, time.UTC)
		name := "DELHAIZE SERBIA"
		return &Receipt{
			ID:           id,
			Filename:     id + "_bill.txt",
			TextFilename: id + ".txt",
			ContentType:  "text/plain",
			Bill: &fiscal.Bill{
				Company: &fiscal.Company{Name: &name},
				Price:   1985.76,
				Date:    &date,
				Items: []fiscal.Item{
					{MeasurementUnit: fiscal.UnitKilogram, VATType: fiscal.VATReduced, Price: ptr(216.79)},
				},
			},
			CreatedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			UpdatedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		}
	}

	Describe("SaveReceipt", func() {
		var err error

		JustBeforeEach(func() {
			err = db.SaveReceipt(newReceipt("test-id"))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("should save the receipt to the database", func() {
			saved, getErr := db.GetReceipt("test-id")
			Expect(getErr).NotTo(HaveOccurred())
			Expect(saved.ID).To(Equal("test-id"))
		})
	})

	Describe("GetReceipt", func() {
		var (
			receiptID string
			receipt   *Receipt
			err       error
		)

		JustBeforeEach(func() {
			receipt, err = db.GetReceipt(receiptID)
		})

		When("receipt exists", func() {
			BeforeEach(func() {
				receiptID = "test-id"
				Expect(db.SaveReceipt(newReceipt(receiptID))).To(Succeed())
			})

			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should round trip the bill", func() {
				Expect(receipt).To(Equal(newReceipt(receiptID)))
			})
		})

		When("receipt does not exist", func() {
			BeforeEach(func() {
				receiptID = "nonexistent"
			})

			It("returns a not found error", func() {
				Expect(err).To(MatchError(ErrNotFound))
				Expect(err).To(MatchError("not found: receipt nonexistent"))
			})
		})
	})

	Describe("ListReceipts", func() {
		var (
			receipts []*Receipt
			err      error
		)

		JustBeforeEach(func() {
			receipts, err = db.ListReceipts()
		})

		When("receipts exist", func() {
			BeforeEach(func() {
				Expect(db.SaveReceipt(newReceipt("id1"))).To(Succeed())
				Expect(db.SaveReceipt(newReceipt("id2"))).To(Succeed())
			})

			It("should return all receipts", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(receipts).To(HaveLen(2))
			})
		})

		When("no receipts exist", func() {
			It("should return an empty list", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(receipts).NotTo(BeNil())
				Expect(receipts).To(BeEmpty())
			})
		})
	})

	Describe("DeleteReceipt", func() {
		BeforeEach(func() {
			Expect(db.SaveReceipt(newReceipt("test-id"))).To(Succeed())
		})

		It("should remove the receipt", func() {
			Expect(db.DeleteReceipt("test-id")).To(Succeed())
			_, err := db.GetReceipt("test-id")
			Expect(err).To(MatchError(ErrNotFound))
		})

		It("should not fail for an unknown receipt", func() {
			Expect(db.DeleteReceipt("nonexistent")).To(Succeed())
		})

		It("should refuse a receipt that belongs to a report", func() {
			Expect(db.SaveReport(&BillReport{ID: "report-1", ReceiptIDs: []string{"test-id"}})).To(Succeed())

			Expect(db.DeleteReceipt("test-id")).To(MatchError(ErrReceiptInReport))
			_, err := db.GetReceipt("test-id")
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("SaveReport", func() {
		var (
			report *BillReport
			err    error
		)

		BeforeEach(func() {
			Expect(db.SaveReceipt(newReceipt("id1"))).To(Succeed())
			Expect(db.SaveReceipt(newReceipt("id2"))).To(Succeed())
			report = &BillReport{
				ID:         "report-1",
				ReceiptIDs: []string{"id1", "id2"},
				Total:      3971.52,
				VATTotals:  []VATTotal{{Rate: fiscal.VATReduced, Amount: 433.58, Tax: 39.42}},
				CreatedAt:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
				UpdatedAt:  time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			}
		})

		JustBeforeEach(func() {
			err = db.SaveReport(report)
		})

		It("should save the report", func() {
			Expect(err).NotTo(HaveOccurred())
			saved, getErr := db.GetReport("report-1")
			Expect(getErr).NotTo(HaveOccurred())
			Expect(saved).To(Equal(report))
		})

		It("should link the receipts to the report", func() {
			for _, id := range []string{"id1", "id2"} {
				receipt, getErr := db.GetReceipt(id)
				Expect(getErr).NotTo(HaveOccurred())
				Expect(receipt.ReportID).To(Equal("report-1"))
				Expect(receipt.UpdatedAt).To(Equal(report.UpdatedAt))
			}
		})

		It("should list the report", func() {
			reports, listErr := db.ListReports()
			Expect(listErr).NotTo(HaveOccurred())
			Expect(reports).To(HaveLen(1))
			Expect(reports[0].ID).To(Equal("report-1"))
		})

		When("a receipt was reported after the caller read it", func() {
			BeforeEach(func() {
				Expect(db.SaveReport(&BillReport{ID: "report-0", ReceiptIDs: []string{"id2"}})).To(Succeed())
			})

			It("returns ErrReceiptInReport", func() {
				Expect(err).To(MatchError(ErrReceiptInReport))
				Expect(err).To(MatchError(ContainSubstring("report-0")))
			})

			It("should not write anything", func() {
				_, getErr := db.GetReport("report-1")
				Expect(getErr).To(MatchError(ErrNotFound))

				first, getErr := db.GetReceipt("id1")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(first.ReportID).To(BeEmpty())

				second, getErr := db.GetReceipt("id2")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(second.ReportID).To(Equal("report-0"))
			})
		})

		When("a receipt was deleted after the caller read it", func() {
			BeforeEach(func() {
				Expect(db.DeleteReceipt("id2")).To(Succeed())
			})

			It("returns ErrNotFound", func() {
				Expect(err).To(MatchError(ErrNotFound))
			})

			It("should not bring the receipt back", func() {
				_, getErr := db.GetReceipt("id2")
				Expect(getErr).To(MatchError(ErrNotFound))

				_, getErr = db.GetReport("report-1")
				Expect(getErr).To(MatchError(ErrNotFound))
			})
		})
	})

	Describe("GetReport", func() {
		It("returns a not found error", func() {
			_, err := db.GetReport("nonexistent")
			Expect(err).To(MatchError(ErrNotFound))
		})
	})

	Describe("ListReports", func() {
		It("should return an empty list", func() {
			reports, err := db.ListReports()
			Expect(err).NotTo(HaveOccurred())
			Expect(reports).To(BeEmpty())
		})
	})

	Describe("reopening the database", func() {
		It("should keep the saved receipts", func() {
			Expect(db.SaveReceipt(newReceipt("test-id"))).To(Succeed())
			Expect(db.Close()).To(Succeed())

			var err error
			db, err = NewBoltDB(dbPath)
			Expect(err).NotTo(HaveOccurred())

			receipt, err := db.GetReceipt("test-id")
			Expect(err).NotTo(HaveOccurred())
			Expect(receipt.Bill.Price).To(Equal(1985.76))
		})
	})
})
