// Package service holds the portal's business rules. Services depend only
// on the repository interfaces and return *apperr.Error values that
// handlers map to HTTP statuses.
package service

import (
	"context"
	"errors"

	"github.com/labstack/gommon/log"

	"github.com/duongquang05/marathon-portal/internal/apperr"
	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/queue"
	"github.com/duongquang05/marathon-portal/internal/repository"
)

// Caller is the authenticated principal behind a request.
type Caller struct {
	UserID int64
	Role   string
}

func (c Caller) IsAdmin() bool { return c.Role == model.RoleAdmin }

// EventPublisher receives participation state changes. Publishing is best
// effort: a failure is logged and never undoes the change.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.ParticipationEvent) error
}

// fromStorage converts repository sentinels into typed errors. notFound and
// conflict are the user-facing messages for those two cases; a missing
// referenced record reads as not found.
func fromStorage(err error, notFound, conflict string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, repository.ErrMissingReference):
		return apperr.NotFound("%s", notFound)
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict("%s", conflict)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Internal("request cancelled", err)
	default:
		return apperr.Internal("storage failure", err)
	}
}

func publish(ctx context.Context, p EventPublisher, ev queue.ParticipationEvent) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, ev); err != nil {
		log.Warnf("publish %s for %d-%d: %v", ev.Type, ev.MarathonID, ev.UserID, err)
	}
}

// optional trims s and maps blank input to nil.
func optional(s *string) *string {
	if s == nil {
		return nil
	}
	return trimmedOrNil(*s)
}

func trimmedOrNil(s string) *string {
	t := trimSpace(s)
	if t == "" {
		return nil
	}
	return &t
}
