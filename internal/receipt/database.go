package receipt

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	receiptBucketName = "receipts"
	reportBucketName  = "reports"
)

// ErrNotFound is returned when a receipt or report does not exist
var ErrNotFound = errors.New("not found")

// DB defines the interface for database operations
type DB interface {
	// SaveReceipt saves a receipt to the database
	SaveReceipt(receipt *Receipt) error

	// GetReceipt retrieves a receipt by ID
	GetReceipt(id string) (*Receipt, error)

	// ListReceipts returns all receipts
	ListReceipts() ([]*Receipt, error)

	// DeleteReceipt removes a receipt from the database.
	// Receipts that belong to a report are refused with ErrReceiptInReport.
	DeleteReceipt(id string) error

	// SaveReport saves a report and links report.ReceiptIDs to it in one transaction.
	// Fails with ErrNotFound or ErrReceiptInReport without writing anything.
	SaveReport(report *BillReport) error

	// GetReport retrieves a report by ID
	GetReport(id string) (*BillReport, error)

	// ListReports returns all reports
	ListReports() ([]*BillReport, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{receiptBucketName, reportBucketName} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

func putJSON(bucket *bbolt.Bucket, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}
	return bucket.Put([]byte(key), data)
}

// SaveReceipt saves a receipt to the database
func (b *BoltDB) SaveReceipt(receipt *Receipt) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptBucketName))
		data, err := json.Marshal(receipt)
		if err != nil {
			return fmt.Errorf("marshaling receipt: %w", err)
		}
		return bucket.Put([]byte(receipt.ID), data)
	})
}

// GetReceipt retrieves a receipt by ID
func (b *BoltDB) GetReceipt(id string) (*Receipt, error) {
	var receipt *Receipt
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(receiptBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: receipt %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &receipt)
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ListReceipts returns all receipts
func (b *BoltDB) ListReceipts() ([]*Receipt, error) {
	receipts := make([]*Receipt, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(receiptBucketName)).ForEach(func(k, v []byte) error {
			var receipt Receipt
			if err := json.Unmarshal(v, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt: %w", err)
			}
			receipts = append(receipts, &receipt)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return receipts, nil
}

// DeleteReceipt removes a receipt from the database
func (b *BoltDB) DeleteReceipt(id string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(receiptBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return nil
		}

		var receipt Receipt
		if err := json.Unmarshal(data, &receipt); err != nil {
			return fmt.Errorf("unmarshaling receipt: %w", err)
		}
		if receipt.ReportID != "" {
			return fmt.Errorf("receipt %s: %w %s", id, ErrReceiptInReport, receipt.ReportID)
		}

		return bucket.Delete([]byte(id))
	})
}

// SaveReport stores the report and links every receipt to it.
// Receipts are read again inside the transaction so a receipt deleted or
// reported since the caller looked at it is never linked.
func (b *BoltDB) SaveReport(report *BillReport) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		receiptBucket := tx.Bucket([]byte(receiptBucketName))
		for _, id := range report.ReceiptIDs {
			data := receiptBucket.Get([]byte(id))
			if data == nil {
				return fmt.Errorf("%w: receipt %s", ErrNotFound, id)
			}

			var receipt Receipt
			if err := json.Unmarshal(data, &receipt); err != nil {
				return fmt.Errorf("unmarshaling receipt %s: %w", id, err)
			}
			if receipt.ReportID != "" {
				return fmt.Errorf("receipt %s: %w %s", id, ErrReceiptInReport, receipt.ReportID)
			}

			receipt.ReportID = report.ID
			receipt.UpdatedAt = report.UpdatedAt
			if err := putJSON(receiptBucket, id, &receipt); err != nil {
				return fmt.Errorf("updating receipt %s: %w", id, err)
			}
		}

		return putJSON(tx.Bucket([]byte(reportBucketName)), report.ID, report)
	})
}

// GetReport retrieves a report by ID
func (b *BoltDB) GetReport(id string) (*BillReport, error) {
	var report *BillReport
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(reportBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: report %s", ErrNotFound, id)
		}
		return json.Unmarshal(data, &report)
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ListReports returns all reports
func (b *BoltDB) ListReports() ([]*BillReport, error) {
	reports := make([]*BillReport, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(reportBucketName)).ForEach(func(k, v []byte) error {
			var report BillReport
			if err := json.Unmarshal(v, &report); err != nil {
				return fmt.Errorf("unmarshaling report: %w", err)
			}
			reports = append(reports, &report)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
