package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeSignedIn         = "identity.signed_in"
	EventTypeSignedOut        = "identity.signed_out"
	EventTypeRemoteChanged    = "remote.changed"
	EventTypeRemoteWriteFault = "remote.write_failed"
)

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// IdentityEvent announces that the current user of a workspace changed.
type IdentityEvent struct {
	BaseEvent
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Provider string `json:"provider"`

	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func NewSignedInEvent(userID, email, role, provider string) *IdentityEvent {
	return &IdentityEvent{
		BaseEvent: newBase(EventTypeSignedIn, map[string]interface{}{
			"user_id":  userID,
			"email":    email,
			"role":     role,
			"provider": provider,
		}),
		UserID:   userID,
		Email:    email,
		Role:     role,
		Provider: provider,
	}
}

// WithNames attaches the names the provider reported for the user.
func (e *IdentityEvent) WithNames(first, last string) *IdentityEvent {
	e.FirstName = first
	e.LastName = last
	if e.Data != nil {
		e.Data["first_name"] = first
		e.Data["last_name"] = last
	}
	return e
}

func NewSignedOutEvent(userID string) *IdentityEvent {
	return &IdentityEvent{
		BaseEvent: newBase(EventTypeSignedOut, map[string]interface{}{"user_id": userID}),
		UserID:    userID,
	}
}

// RemoteChangedEvent is raised after a write to a user's remote collection.
type RemoteChangedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	Collection string `json:"collection"`
	DocumentID string `json:"document_id"`
	Operation  string `json:"operation"`
}

func NewRemoteChangedEvent(userID, collection, documentID, operation string) *RemoteChangedEvent {
	return &RemoteChangedEvent{
		BaseEvent: newBase(EventTypeRemoteChanged, map[string]interface{}{
			"user_id":     userID,
			"collection":  collection,
			"document_id": documentID,
			"operation":   operation,
		}),
		UserID:     userID,
		Collection: collection,
		DocumentID: documentID,
		Operation:  operation,
	}
}

// RemoteWriteFailedEvent records a mutation that applied locally but was not
// confirmed by the remote backend.
type RemoteWriteFailedEvent struct {
	BaseEvent
	UserID     string `json:"user_id"`
	Collection string `json:"collection"`
	DocumentID string `json:"document_id"`
	Reason     string `json:"reason"`
}

func NewRemoteWriteFailedEvent(userID, collection, documentID string, cause error) *RemoteWriteFailedEvent {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	return &RemoteWriteFailedEvent{
		BaseEvent: newBase(EventTypeRemoteWriteFault, map[string]interface{}{
			"user_id":     userID,
			"collection":  collection,
			"document_id": documentID,
			"reason":      reason,
		}),
		UserID:     userID,
		Collection: collection,
		DocumentID: documentID,
		Reason:     reason,
	}
}
