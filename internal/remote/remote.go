package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gianix81/payAnalyst/internal/profile"
)

type Collection string

const (
	Payslips   Collection = "payslips"
	Shifts     Collection = "shifts"
	Absences   Collection = "absences"
	LeavePlans Collection = "leave_plans"
)

// Collections lists every per-user collection a workspace subscribes to.
var Collections = []Collection{Payslips, Shifts, Absences, LeavePlans}

// Document is one record of a snapshot. Data always carries the "id" field set
// to the document id, whether or not the stored payload had one.
type Document struct {
	ID   string
	Data json.RawMessage
}

// SnapshotFunc receives the full ordered collection after every change.
type SnapshotFunc func(docs []Document)

type Subscription interface {
	Unsubscribe()
}

// Adapter is a hosted per-user document backend.
type Adapter interface {
	// Subscribe delivers the current collection and then every later state of it.
	// Payslips arrive newest period first, leave plans by start date.
	Subscribe(ctx context.Context, userID string, c Collection, fn SnapshotFunc) (Subscription, error)
	// Add creates a document with a backend-assigned id. Any "id" field in data is dropped.
	Add(ctx context.Context, userID string, c Collection, data interface{}) (string, error)
	// Set creates or merges the document id.
	Set(ctx context.Context, userID string, c Collection, id string, data interface{}) error
	// Delete is idempotent.
	Delete(ctx context.Context, userID string, c Collection, id string) error
	GetProfile(ctx context.Context, userID string) (profile.UserProfile, bool, error)
	SaveProfile(ctx context.Context, userID string, p profile.UserProfile) error
	Close() error
}

// EncodeFields converts v into the field map stored remotely. With stripID the
// "id" field is removed so the backend can assign one.
func EncodeFields(v interface{}, stripID bool) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("document is not an object: %w", err)
	}
	if stripID {
		delete(fields, "id")
	}
	return fields, nil
}

// NewDocument builds a snapshot entry from stored fields, stamping id into them.
func NewDocument(id string, fields map[string]interface{}) (Document, error) {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["id"] = id
	raw, err := json.Marshal(out)
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode document %s: %w", id, err)
	}
	return Document{ID: id, Data: raw}, nil
}

// MergeFields overlays src onto dst the way a merge write does: nested objects
// merge key by key, everything else is replaced.
func MergeFields(dst, src map[string]interface{}) map[string]interface{} {
	if dst == nil {
		dst = map[string]interface{}{}
	}
	for k, v := range src {
		srcMap, srcIsMap := v.(map[string]interface{})
		dstMap, dstIsMap := dst[k].(map[string]interface{})
		if srcIsMap && dstIsMap {
			dst[k] = MergeFields(dstMap, srcMap)
			continue
		}
		dst[k] = v
	}
	return dst
}

// Decode converts a snapshot into typed records. Documents that do not decode
// are skipped and logged so one bad record cannot blank the collection.
func Decode[T any](docs []Document, logger *slog.Logger) []T {
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		var v T
		if err := json.Unmarshal(d.Data, &v); err != nil {
			if logger != nil {
				logger.Warn("skipping undecodable remote document", "document_id", d.ID, "error", err)
			}
			continue
		}
		out = append(out, v)
	}
	return out
}
