package gormsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	remoteDatamodel "github.com/gianix81/payAnalyst/internal/core/datamodel/remote"
	"github.com/gianix81/payAnalyst/internal/core/events"
	"github.com/gianix81/payAnalyst/internal/profile"
	"github.com/gianix81/payAnalyst/internal/remote"
)

const profileCollection = "profile"

// Adapter is the SQL rendition of the hosted document store. Writes publish
// remote.changed on the bus and every matching subscription re-queries its
// collection and delivers a full snapshot.
type Adapter struct {
	db     *gorm.DB
	bus    *events.EventBus
	logger *slog.Logger
}

func NewAdapter(db *gorm.DB, bus *events.EventBus, logger *slog.Logger) *Adapter {
	return &Adapter{db: db, bus: bus, logger: logger.With("component", "gormsync")}
}

func (a *Adapter) snapshot(ctx context.Context, userID string, c remote.Collection) ([]remote.Document, error) {
	q := a.db.WithContext(ctx).Where("user_id = ? AND collection = ?", userID, string(c))
	switch c {
	case remote.Payslips:
		q = q.Order("sort_year DESC").Order("sort_month DESC")
	case remote.LeavePlans:
		q = q.Order("sort_date ASC")
	}
	var rows []remoteDatamodel.Document
	if err := q.Order("doc_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c, err)
	}
	docs := make([]remote.Document, 0, len(rows))
	for _, row := range rows {
		fields := map[string]interface{}{}
		if err := json.Unmarshal(row.Data, &fields); err != nil {
			a.logger.Warn("skipping corrupt document", "document_id", row.DocID, "error", err)
			continue
		}
		doc, err := remote.NewDocument(row.DocID, fields)
		if err != nil {
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

type subscription struct {
	cancel   context.CancelFunc
	unlisten func()
	once     sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.unlisten()
		s.cancel()
	})
}

func (a *Adapter) Subscribe(ctx context.Context, userID string, c remote.Collection, fn remote.SnapshotFunc) (remote.Subscription, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	// A pending signal coalesces bursts of writes into one re-query.
	dirty := make(chan struct{}, 1)
	dirty <- struct{}{}

	unlisten := a.bus.Listen(events.EventTypeRemoteChanged, func(_ context.Context, e events.Event) error {
		changed, ok := e.(*events.RemoteChangedEvent)
		if !ok || changed.UserID != userID || changed.Collection != string(c) {
			return nil
		}
		select {
		case dirty <- struct{}{}:
		default:
		}
		return nil
	})

	sub := &subscription{cancel: cancel, unlisten: unlisten}
	go func() {
		for {
			select {
			case <-subCtx.Done():
				return
			case <-dirty:
				docs, err := a.snapshot(subCtx, userID, c)
				if err != nil {
					if subCtx.Err() == nil {
						a.logger.Error("snapshot query failed", "user_id", userID, "collection", c, "error", err)
					}
					continue
				}
				if subCtx.Err() != nil {
					return
				}
				fn(docs)
			}
		}
	}()
	return sub, nil
}

func (a *Adapter) notify(ctx context.Context, userID string, c remote.Collection, id, op string) {
	if err := a.bus.PublishSync(ctx, events.NewRemoteChangedEvent(userID, string(c), id, op)); err != nil {
		a.logger.Warn("change notification failed", "collection", c, "error", err)
	}
}

func sortColumns(fields map[string]interface{}) (year, month int, date string) {
	if period, ok := fields["period"].(map[string]interface{}); ok {
		if y, ok := period["year"].(float64); ok {
			year = int(y)
		}
		if m, ok := period["month"].(float64); ok {
			month = int(m)
		}
	}
	if d, ok := fields["startDate"].(string); ok {
		date = d
	} else if d, ok := fields["date"].(string); ok {
		date = d
	}
	return year, month, date
}

func (a *Adapter) upsert(ctx context.Context, userID string, c string, id string, fields map[string]interface{}) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return err
	}
	year, month, date := sortColumns(fields)
	row := remoteDatamodel.Document{
		UserID:     userID,
		Collection: c,
		DocID:      id,
		Data:       raw,
		SortYear:   year,
		SortMonth:  month,
		SortDate:   date,
	}
	return a.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "collection"}, {Name: "doc_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "sort_year", "sort_month", "sort_date", "updated_at"}),
	}).Create(&row).Error
}

func (a *Adapter) load(ctx context.Context, userID, c, id string) (map[string]interface{}, bool, error) {
	var row remoteDatamodel.Document
	err := a.db.WithContext(ctx).
		Where("user_id = ? AND collection = ? AND doc_id = ?", userID, c, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	fields := map[string]interface{}{}
	if err := json.Unmarshal(row.Data, &fields); err != nil {
		// A corrupt stored value is overwritten rather than merged.
		return nil, false, nil
	}
	return fields, true, nil
}

func (a *Adapter) Add(ctx context.Context, userID string, c remote.Collection, data interface{}) (string, error) {
	fields, err := remote.EncodeFields(data, true)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := a.upsert(ctx, userID, string(c), id, fields); err != nil {
		return "", fmt.Errorf("failed to add %s document: %w", c, err)
	}
	a.notify(ctx, userID, c, id, "add")
	return id, nil
}

func (a *Adapter) Set(ctx context.Context, userID string, c remote.Collection, id string, data interface{}) error {
	fields, err := remote.EncodeFields(data, false)
	if err != nil {
		return err
	}
	existing, _, err := a.load(ctx, userID, string(c), id)
	if err != nil {
		return fmt.Errorf("failed to read %s document %s: %w", c, id, err)
	}
	if err := a.upsert(ctx, userID, string(c), id, remote.MergeFields(existing, fields)); err != nil {
		return fmt.Errorf("failed to set %s document %s: %w", c, id, err)
	}
	a.notify(ctx, userID, c, id, "set")
	return nil
}

func (a *Adapter) Delete(ctx context.Context, userID string, c remote.Collection, id string) error {
	err := a.db.WithContext(ctx).
		Where("user_id = ? AND collection = ? AND doc_id = ?", userID, string(c), id).
		Delete(&remoteDatamodel.Document{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete %s document %s: %w", c, id, err)
	}
	a.notify(ctx, userID, c, id, "delete")
	return nil
}

func (a *Adapter) GetProfile(ctx context.Context, userID string) (profile.UserProfile, bool, error) {
	fields, ok, err := a.load(ctx, userID, profileCollection, userID)
	if err != nil {
		return profile.UserProfile{}, false, fmt.Errorf("failed to get profile: %w", err)
	}
	if !ok {
		return profile.UserProfile{}, false, nil
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return profile.UserProfile{}, false, err
	}
	var p profile.UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return profile.UserProfile{}, false, nil
	}
	p.UID = userID
	return p, true, nil
}

func (a *Adapter) SaveProfile(ctx context.Context, userID string, p profile.UserProfile) error {
	p.UID = userID
	fields, err := remote.EncodeFields(p, false)
	if err != nil {
		return err
	}
	existing, _, err := a.load(ctx, userID, profileCollection, userID)
	if err != nil {
		return fmt.Errorf("failed to read profile: %w", err)
	}
	if err := a.upsert(ctx, userID, profileCollection, userID, remote.MergeFields(existing, fields)); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (a *Adapter) Close() error {
	return nil
}
