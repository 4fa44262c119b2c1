package fiscal

import "time"

// MeasurementUnit is the unit an item quantity is expressed in
type MeasurementUnit string

const (
	UnitPiece       MeasurementUnit = "kom"
	UnitKilogram    MeasurementUnit = "kg"
	UnitLiter       MeasurementUnit = "l"
	UnitBox         MeasurementUnit = "kut"
	UnitPieceIntl   MeasurementUnit = "pce"
	UnitMeter       MeasurementUnit = "m"
	UnitSquareMeter MeasurementUnit = "m2"
)

// VATRate is a VAT bucket encoded as a fraction (0.2 for 20%)
type VATRate float64

const (
	VATExempt   VATRate = 0
	VATReduced  VATRate = 0.1
	VATStandard VATRate = 0.2
)

// Bill is the structured form of a single fiscal receipt
type Bill struct {
	Company *Company     `json:"company" yaml:"company"`
	POS     *PointOfSale `json:"pos" yaml:"pos"`
	Price   float64      `json:"price" yaml:"price"` // Grand total, 0 when not found
	Date    *time.Time   `json:"date" yaml:"date"`
	Number  *string      `json:"number" yaml:"number"`   // PFR receipt number
	Counter *string      `json:"counter" yaml:"counter"` // Receipt counter
	Items   []Item       `json:"items" yaml:"items"`
}

// Company is the issuer printed in the receipt header
type Company struct {
	TaxID        *string `json:"taxId" yaml:"taxId"`
	Name         *string `json:"name" yaml:"name"`
	City         *string `json:"city" yaml:"city"`
	Address      *string `json:"address" yaml:"address"`
	Municipality *string `json:"municipality" yaml:"municipality"`
}

// PointOfSale identifies the register that issued the receipt
type PointOfSale struct {
	ID   *string `json:"id" yaml:"id"`
	Name *string `json:"name" yaml:"name"`
}

// Item is one purchased line of the receipt
type Item struct {
	SKU             *string         `json:"sku" yaml:"sku"`
	Name            *string         `json:"name" yaml:"name"`
	FullName        *string         `json:"fullName" yaml:"fullName"`
	MeasurementUnit MeasurementUnit `json:"measurementUnit" yaml:"measurementUnit"`
	VATType         VATRate         `json:"vatType" yaml:"vatType"`
	UnitPrice       *float64        `json:"unitPrice" yaml:"unitPrice"`
	Amount          *float64        `json:"amount" yaml:"amount"`
	Price           *float64        `json:"price" yaml:"price"`
}
