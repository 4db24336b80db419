package audit

import (
	"context"
	"errors"
	"time"

	"phonebook/internal/auth"
	"phonebook/pkg/logger"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit events.
// It is append-only; there is no Update or Delete.
type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records internal audit information.
// Callers treat it as best-effort.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s == nil || s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.Type == "" || e.EntityType == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.clock().UTC()
	}
	return s.repo.Append(ctx, e)
}

// Record appends an event for the caller identified in ctx and logs, rather
// than returns, any failure.
func (s *Service) Record(ctx context.Context, typ EventType, entityType string, entityID int64, message string) {
	if s == nil {
		return
	}
	userID, _ := auth.UserID(ctx)
	role, _ := auth.Role(ctx)
	err := s.Append(ctx, Event{
		Type:        typ,
		ActorUserID: userID,
		ActorRole:   role,
		IPAddress:   ClientIPFromContext(ctx),
		EntityType:  entityType,
		EntityID:    entityID,
		Message:     message,
	})
	if err != nil {
		logger.From(ctx).Warn("audit append failed", "type", typ, "entity_type", entityType, "entity_id", entityID, "err", err)
	}
}
