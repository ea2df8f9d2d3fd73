package payslip

import (
	"github.com/shopspring/decimal"
)

type ItemType string

const (
	ItemIncome    ItemType = "income"
	ItemDeduction ItemType = "deduction"
	ItemOther     ItemType = "other"
)

// HistoricalAnalysis compares one payslip against the average of earlier ones.
type HistoricalAnalysis struct {
	Summary            string          `json:"summary"`
	AverageNetSalary   decimal.Decimal `json:"averageNetSalary"`
	AverageGrossSalary decimal.Decimal `json:"averageGrossSalary"`
	DifferingItems     []DifferingItem `json:"differingItems"`
}

type DifferingItem struct {
	Description  string          `json:"description"`
	CurrentValue decimal.Decimal `json:"currentValue"`
	AverageValue decimal.Decimal `json:"averageValue"`
	Difference   decimal.Decimal `json:"difference"`
	Type         ItemType        `json:"type"`
	Comment      string          `json:"comment"`
}

// Averages holds the gross and net means of a set of payslips.
type Averages struct {
	Gross decimal.Decimal
	Net   decimal.Decimal
	Count int
}

// AverageOf computes gross and net means rounded to cents. An empty list yields zeros.
func AverageOf(list []Payslip) Averages {
	if len(list) == 0 {
		return Averages{Gross: decimal.Zero, Net: decimal.Zero}
	}
	gross, net := decimal.Zero, decimal.Zero
	for _, p := range list {
		gross = gross.Add(p.GrossSalary)
		net = net.Add(p.NetSalary)
	}
	n := decimal.NewFromInt(int64(len(list)))
	return Averages{
		Gross: gross.Div(n).Round(2),
		Net:   net.Div(n).Round(2),
		Count: len(list),
	}
}

// Normalize fills derived fields the model may leave out: averages computed from
// history when zero, differences recomputed from current and average values, and
// unknown item types folded into "other".
func (h *HistoricalAnalysis) Normalize(history []Payslip) {
	avg := AverageOf(history)
	if h.AverageGrossSalary.IsZero() {
		h.AverageGrossSalary = avg.Gross
	}
	if h.AverageNetSalary.IsZero() {
		h.AverageNetSalary = avg.Net
	}
	for i := range h.DifferingItems {
		item := &h.DifferingItems[i]
		item.Difference = item.CurrentValue.Sub(item.AverageValue)
		switch item.Type {
		case ItemIncome, ItemDeduction, ItemOther:
		default:
			item.Type = ItemOther
		}
	}
	if h.DifferingItems == nil {
		h.DifferingItems = []DifferingItem{}
	}
}
