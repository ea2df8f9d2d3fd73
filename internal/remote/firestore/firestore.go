package firestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	gcfirestore "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/gianix81/payAnalyst/internal/profile"
	"github.com/gianix81/payAnalyst/internal/remote"
)

const usersCollection = "users"

// NewApp initialises the Firebase Admin SDK. An empty credentialsFile falls back
// to application default credentials.
func NewApp(ctx context.Context, projectID, credentialsFile string) (*firebase.App, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	var cfg *firebase.Config
	if projectID != "" {
		cfg = &firebase.Config{ProjectID: projectID}
	}
	app, err := firebase.NewApp(ctx, cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	return app, nil
}

// Adapter stores each user's records under users/{uid}/{collection}.
type Adapter struct {
	client *gcfirestore.Client
	logger *slog.Logger
}

func NewAdapter(ctx context.Context, app *firebase.App, logger *slog.Logger) (*Adapter, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Firestore client: %w", err)
	}
	return &Adapter{client: client, logger: logger.With("component", "firestore")}, nil
}

func (a *Adapter) collection(userID string, c remote.Collection) *gcfirestore.CollectionRef {
	return a.client.Collection(usersCollection).Doc(userID).Collection(string(c))
}

func (a *Adapter) query(userID string, c remote.Collection) gcfirestore.Query {
	col := a.collection(userID, c)
	switch c {
	case remote.Payslips:
		return col.OrderBy("period.year", gcfirestore.Desc).OrderBy("period.month", gcfirestore.Desc)
	case remote.LeavePlans:
		return col.OrderBy("startDate", gcfirestore.Asc)
	default:
		return col.Query
	}
}

type subscription struct {
	cancel context.CancelFunc
	once   sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.cancel()
	})
}

func (a *Adapter) Subscribe(ctx context.Context, userID string, c remote.Collection, fn remote.SnapshotFunc) (remote.Subscription, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &subscription{cancel: cancel}
	it := a.query(userID, c).Snapshots(subCtx)

	go func() {
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if subCtx.Err() == nil && !errors.Is(err, iterator.Done) {
					a.logger.Error("snapshot listener stopped", "user_id", userID, "collection", c, "error", err)
				}
				return
			}
			raw, err := snap.Documents.GetAll()
			if err != nil {
				a.logger.Error("failed to read snapshot", "user_id", userID, "collection", c, "error", err)
				continue
			}
			docs := make([]remote.Document, 0, len(raw))
			for _, ds := range raw {
				doc, err := remote.NewDocument(ds.Ref.ID, ds.Data())
				if err != nil {
					a.logger.Warn("skipping document", "document_id", ds.Ref.ID, "error", err)
					continue
				}
				docs = append(docs, doc)
			}
			fn(docs)
		}
	}()

	return sub, nil
}

func (a *Adapter) Add(ctx context.Context, userID string, c remote.Collection, data interface{}) (string, error) {
	fields, err := remote.EncodeFields(data, true)
	if err != nil {
		return "", err
	}
	ref, _, err := a.collection(userID, c).Add(ctx, fields)
	if err != nil {
		return "", fmt.Errorf("failed to add %s document: %w", c, err)
	}
	return ref.ID, nil
}

func (a *Adapter) Set(ctx context.Context, userID string, c remote.Collection, id string, data interface{}) error {
	fields, err := remote.EncodeFields(data, false)
	if err != nil {
		return err
	}
	if _, err := a.collection(userID, c).Doc(id).Set(ctx, fields, gcfirestore.MergeAll); err != nil {
		return fmt.Errorf("failed to set %s document %s: %w", c, id, err)
	}
	return nil
}

func (a *Adapter) Delete(ctx context.Context, userID string, c remote.Collection, id string) error {
	if _, err := a.collection(userID, c).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete %s document %s: %w", c, id, err)
	}
	return nil
}

func (a *Adapter) GetProfile(ctx context.Context, userID string) (profile.UserProfile, bool, error) {
	snap, err := a.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if snap != nil && !snap.Exists() {
		return profile.UserProfile{}, false, nil
	}
	if err != nil {
		return profile.UserProfile{}, false, fmt.Errorf("failed to get profile: %w", err)
	}
	doc, err := remote.NewDocument(userID, snap.Data())
	if err != nil {
		return profile.UserProfile{}, false, err
	}
	list := remote.Decode[profile.UserProfile]([]remote.Document{doc}, a.logger)
	if len(list) == 0 {
		return profile.UserProfile{}, false, nil
	}
	p := list[0]
	p.UID = userID
	return p, true, nil
}

func (a *Adapter) SaveProfile(ctx context.Context, userID string, p profile.UserProfile) error {
	p.UID = userID
	fields, err := remote.EncodeFields(p, false)
	if err != nil {
		return err
	}
	delete(fields, "id")
	if _, err := a.client.Collection(usersCollection).Doc(userID).Set(ctx, fields, gcfirestore.MergeAll); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

func (a *Adapter) Close() error {
	return a.client.Close()
}
