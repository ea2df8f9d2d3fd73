package user

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/gianix81/payAnalyst/internal/payslip"
)

const (
	SourceAccount = "account"
	SourcePayslip = "payslip"
)

var ErrNotFound = errors.New("user not found")

// User is one row of the admin user listing: either a registered account or
// an employee named on an archived payslip.
type User struct {
	UID         string     `json:"uid,omitempty" db:"uid"`
	Email       string     `json:"email" db:"email"`
	FirstName   string     `json:"firstName" db:"first_name"`
	LastName    string     `json:"lastName" db:"last_name"`
	TaxID       string     `json:"taxId,omitempty" db:"-"`
	Role        string     `json:"role" db:"role"`
	Provider    string     `json:"provider,omitempty" db:"provider"`
	IsActive    bool       `json:"isActive" db:"is_active"`
	Source      string     `json:"source" db:"-"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// key identifies a person across sources: tax id when known, else email,
// else the full name.
func (u User) key() string {
	if id := strings.ToUpper(strings.TrimSpace(u.TaxID)); id != "" {
		return "tax:" + id
	}
	if e := strings.ToLower(strings.TrimSpace(u.Email)); e != "" {
		return "email:" + e
	}
	return "name:" + strings.ToLower(u.FullName())
}

// FromPayslips lists the employees named on the given payslips, newest first.
func FromPayslips(list []payslip.Payslip) []User {
	out := make([]User, 0, len(list))
	sorted := append([]payslip.Payslip(nil), list...)
	payslip.SortByPeriodDesc(sorted)
	for _, p := range sorted {
		e := p.Employee
		if strings.TrimSpace(e.FirstName) == "" && strings.TrimSpace(e.LastName) == "" {
			continue
		}
		out = append(out, User{
			FirstName: strings.TrimSpace(e.FirstName),
			LastName:  strings.TrimSpace(e.LastName),
			TaxID:     strings.ToUpper(strings.TrimSpace(e.TaxID)),
			Role:      "user",
			IsActive:  true,
			Source:    SourcePayslip,
		})
	}
	return out
}

// Merge joins accounts and payslip employees, dropping later duplicates. An
// employee whose name matches an account is the same person.
func Merge(accounts, employees []User) []User {
	seen := make(map[string]bool, len(accounts)+len(employees))
	names := make(map[string]bool, len(accounts))
	out := make([]User, 0, len(accounts)+len(employees))

	for _, a := range accounts {
		a.Source = SourceAccount
		if seen[a.key()] {
			continue
		}
		seen[a.key()] = true
		if n := strings.ToLower(a.FullName()); n != "" {
			names[n] = true
		}
		out = append(out, a)
	}
	for _, e := range employees {
		if seen[e.key()] || names[strings.ToLower(e.FullName())] {
			continue
		}
		seen[e.key()] = true
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role == "admin"
		}
		return strings.ToLower(out[i].FullName()) < strings.ToLower(out[j].FullName())
	})
	return out
}
