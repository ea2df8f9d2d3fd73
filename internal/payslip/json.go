package payslip

import "github.com/shopspring/decimal"

func init() {
	// Amounts travel as plain JSON numbers, the shape the extractor and clients use.
	decimal.MarshalJSONWithoutQuotes = true
}
