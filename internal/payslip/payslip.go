package payslip

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Payslip is one pay period transcribed from an uploaded document. Amounts are
// trusted as extracted; nothing here enforces gross - deductions == net.
type Payslip struct {
	ID                   string             `json:"id"`
	Period               Period             `json:"period"`
	Company              Company            `json:"company"`
	Employee             Employee           `json:"employee"`
	RemunerationElements []PayItem          `json:"remunerationElements"`
	IncomeItems          []PayItem          `json:"incomeItems"`
	DeductionItems       []PayItem          `json:"deductionItems"`
	GrossSalary          decimal.Decimal    `json:"grossSalary"`
	TotalDeductions      decimal.Decimal    `json:"totalDeductions"`
	NetSalary            decimal.Decimal    `json:"netSalary"`
	TaxData              TaxData            `json:"taxData"`
	SocialSecurityData   SocialSecurityData `json:"socialSecurityData"`
	TFR                  TFR                `json:"tfr"`
	LeaveData            LeaveData          `json:"leaveData"`
}

type Period struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

// Before reports whether p is strictly earlier than other.
func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

func (p Period) Valid() bool {
	return p.Month >= 1 && p.Month <= 12 && p.Year > 0
}

type Company struct {
	Name    string `json:"name"`
	TaxID   string `json:"taxId"`
	Address string `json:"address,omitempty"`
}

type Employee struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	TaxID        string `json:"taxId"`
	Level        string `json:"level,omitempty"`
	ContractType string `json:"contractType,omitempty"`
}

type PayItem struct {
	Description string           `json:"description"`
	Quantity    *decimal.Decimal `json:"quantity,omitempty"`
	Rate        *decimal.Decimal `json:"rate,omitempty"`
	Value       decimal.Decimal  `json:"value"`
}

type TaxData struct {
	TaxableBase     decimal.Decimal `json:"taxableBase"`
	GrossTax        decimal.Decimal `json:"grossTax"`
	Deductions      TaxDeductions   `json:"deductions"`
	NetTax          decimal.Decimal `json:"netTax"`
	RegionalSurtax  decimal.Decimal `json:"regionalSurtax"`
	MunicipalSurtax decimal.Decimal `json:"municipalSurtax"`
}

type TaxDeductions struct {
	Employee decimal.Decimal  `json:"employee"`
	Family   *decimal.Decimal `json:"family,omitempty"`
	Total    decimal.Decimal  `json:"total"`
}

type SocialSecurityData struct {
	TaxableBase          decimal.Decimal  `json:"taxableBase"`
	EmployeeContribution decimal.Decimal  `json:"employeeContribution"`
	CompanyContribution  decimal.Decimal  `json:"companyContribution"`
	InailContribution    *decimal.Decimal `json:"inailContribution,omitempty"`
}

// TFR is the severance fund accrual carried on each payslip.
type TFR struct {
	TaxableBase     decimal.Decimal `json:"taxableBase"`
	Accrued         decimal.Decimal `json:"accrued"`
	PreviousBalance decimal.Decimal `json:"previousBalance"`
	TotalFund       decimal.Decimal `json:"totalFund"`
}

type LeaveData struct {
	Vacation LeaveBalance `json:"vacation"`
	Permits  LeaveBalance `json:"permits"`
}

type LeaveBalance struct {
	Previous decimal.Decimal `json:"previous"`
	Accrued  decimal.Decimal `json:"accrued"`
	Taken    decimal.Decimal `json:"taken"`
	Balance  decimal.Decimal `json:"balance"`
}

// Balanced reports whether gross minus deductions equals net. It is informational only.
func (p *Payslip) Balanced() bool {
	return p.GrossSalary.Sub(p.TotalDeductions).Equal(p.NetSalary)
}

// SortByPeriodDesc orders payslips newest first (year desc, then month desc).
// The sort is stable so same-period duplicates keep their relative order.
func SortByPeriodDesc(list []Payslip) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[j].Period.Before(list[i].Period)
	})
}

// Find returns the payslip with id and whether it was present.
func Find(list []Payslip, id string) (Payslip, bool) {
	for _, p := range list {
		if p.ID == id {
			return p, true
		}
	}
	return Payslip{}, false
}

// Without returns a copy of list with every payslip carrying id removed.
func Without(list []Payslip, id string) []Payslip {
	out := make([]Payslip, 0, len(list))
	for _, p := range list {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}

// Before returns the payslips strictly older than current, newest first.
func Before(list []Payslip, current Period) []Payslip {
	out := make([]Payslip, 0, len(list))
	for _, p := range list {
		if p.Period.Before(current) {
			out = append(out, p)
		}
	}
	SortByPeriodDesc(out)
	return out
}
