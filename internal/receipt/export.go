package receipt

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the MIME type of exported workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	itemsSheet    = "Items"
	receiptsSheet = "Receipts"
)

var (
	itemsHeader = []any{
		"Receipt", "Date", "Company", "Tax ID", "SKU", "Name",
		"Unit", "VAT", "Unit price", "Amount", "Price",
	}
	receiptsHeader = []any{
		"Receipt", "Date", "Company", "Tax ID", "Point of sale", "Number", "Counter", "Items", "Total",
	}
)

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

// writeWorkbook lays out one row per item and one row per receipt
func writeWorkbook(receipts []*Receipt) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", itemsSheet); err != nil {
		return nil, fmt.Errorf("renaming sheet: %w", err)
	}
	if _, err := f.NewSheet(receiptsSheet); err != nil {
		return nil, fmt.Errorf("creating sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	dateStyle, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	if err != nil {
		return nil, fmt.Errorf("creating date style: %w", err)
	}

	for sheet, header := range map[string][]any{itemsSheet: itemsHeader, receiptsSheet: receiptsHeader} {
		if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
			return nil, fmt.Errorf("writing %s header: %w", sheet, err)
		}
		last, _ := excelize.CoordinatesToCellName(len(header), 1)
		if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
			return nil, fmt.Errorf("styling %s header: %w", sheet, err)
		}
	}

	itemRow := 2
	for i, r := range receipts {
		bill := r.Bill
		if bill == nil {
			continue
		}

		var company, taxID, pos string
		if bill.Company != nil {
			company = stringOrEmpty(bill.Company.Name)
			taxID = stringOrEmpty(bill.Company.TaxID)
		}
		if bill.POS != nil {
			pos = stringOrEmpty(bill.POS.Name)
		}
		var date any
		if bill.Date != nil {
			date = *bill.Date
		}

		receiptCell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := []any{r.ID, date, company, taxID, pos, stringOrEmpty(bill.Number), stringOrEmpty(bill.Counter), len(bill.Items), bill.Price}
		if err := f.SetSheetRow(receiptsSheet, receiptCell, &row); err != nil {
			return nil, fmt.Errorf("writing receipt %s: %w", r.ID, err)
		}
		if date != nil {
			dateCell, _ := excelize.CoordinatesToCellName(2, i+2)
			f.SetCellStyle(receiptsSheet, dateCell, dateCell, dateStyle)
		}

		for _, item := range bill.Items {
			itemCell, _ := excelize.CoordinatesToCellName(1, itemRow)
			row := []any{
				r.ID, date, company, taxID,
				stringOrEmpty(item.SKU), stringOrEmpty(item.Name),
				string(item.MeasurementUnit), float64(item.VATType),
				floatOrZero(item.UnitPrice), floatOrZero(item.Amount), floatOrZero(item.Price),
			}
			if err := f.SetSheetRow(itemsSheet, itemCell, &row); err != nil {
				return nil, fmt.Errorf("writing items of receipt %s: %w", r.ID, err)
			}
			if date != nil {
				dateCell, _ := excelize.CoordinatesToCellName(2, itemRow)
				f.SetCellStyle(itemsSheet, dateCell, dateCell, dateStyle)
			}
			itemRow++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	return buf.Bytes(), nil
}
