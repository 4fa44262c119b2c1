package receipt

import (
	"time"

	"github.com/zombor/fiscal-receipts/internal/fiscal"
)

// Receipt is an uploaded fiscal receipt together with its parsed bill
type Receipt struct {
	ID               string       `json:"id"`
	OriginalFilename string       `json:"original_filename"`
	Filename         string       `json:"filename"`      // stored upload
	TextFilename     string       `json:"text_filename"` // stored receipt text
	ContentType      string       `json:"content_type"`
	Bill             *fiscal.Bill `json:"bill"`
	ReportID         string       `json:"report_id,omitempty"` // ID of the report this receipt belongs to
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Total returns the grand total printed on the receipt
func (r *Receipt) Total() float64 {
	if r.Bill == nil {
		return 0
	}
	return r.Bill.Price
}

// BillReport groups receipts for bookkeeping
type BillReport struct {
	ID         string     `json:"id"`
	ReceiptIDs []string   `json:"receipt_ids"`
	Total      float64    `json:"total"`
	VATTotals  []VATTotal `json:"vat_totals"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// VATTotal sums the items of one VAT class. Prices include VAT.
type VATTotal struct {
	Rate   fiscal.VATRate `json:"rate"`
	Amount float64        `json:"amount"`
	Tax    float64        `json:"tax"`
}
