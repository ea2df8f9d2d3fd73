package workspace

import (
	"encoding/json"
	"log/slog"

	"github.com/gianix81/payAnalyst/internal/payslip"
	"github.com/gianix81/payAnalyst/internal/remote"
)

// pendingCreate tracks a payslip whose backend create has not finished.
type pendingCreate struct {
	assigned string // backend id, empty while the create is in flight
	body     string // canonical fields without the id
}

func newPendingCreate(p payslip.Payslip, logger *slog.Logger) *pendingCreate {
	body, err := payslipBody(p)
	if err != nil {
		logger.Warn("failed to fingerprint pending payslip", "payslip_id", p.ID, "error", err)
	}
	return &pendingCreate{body: body}
}

// payslipBody renders the stored fields of p the way the backend keeps them,
// so an echoed document compares equal to the payslip that produced it.
func payslipBody(p payslip.Payslip) (string, error) {
	fields, err := remote.EncodeFields(p, true)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// echoOf returns the payslip in list that is the backend copy of the pending
// create: the assigned id once known, otherwise an entry with an unknown id
// and an identical body.
func (pc *pendingCreate) echoOf(list, previous []payslip.Payslip) (payslip.Payslip, bool) {
	if pc.assigned != "" {
		return payslip.Find(list, pc.assigned)
	}
	if pc.body == "" {
		return payslip.Payslip{}, false
	}
	for _, q := range list {
		if _, known := payslip.Find(previous, q.ID); known {
			continue
		}
		if body, err := payslipBody(q); err == nil && body == pc.body {
			return q, true
		}
	}
	return payslip.Payslip{}, false
}
