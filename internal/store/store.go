package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Port when the key holds no value.
var ErrNotFound = errors.New("store: key not found")

// Port is the durable key/value medium the cache mirrors into.
type Port interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Fixed key names, one per collection plus the profile.
const (
	KeyProfile    = "user"
	KeyPayslips   = "data"
	KeyShifts     = "shifts"
	KeyLeavePlans = "leave_plans"
	KeyAbsences   = "absences"
)

// Keys lists every name a workspace persists under.
var Keys = []string{KeyProfile, KeyPayslips, KeyShifts, KeyLeavePlans, KeyAbsences}

const DefaultPrefix = "payslip_"

// ComposeKey scopes name to owner and deployment prefix: <owner>:<prefix><name>.
func ComposeKey(owner, prefix, name string) string {
	return owner + ":" + prefix + name
}
