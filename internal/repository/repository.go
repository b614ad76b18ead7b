package repository

import (
	"context"
	"io"
	"time"

	"github.com/duongquang05/marathon-portal/internal/model"
)

// MarathonRepository persists marathons. List returns every marathon in no
// particular order; callers filter and sort.
type MarathonRepository interface {
	List(ctx context.Context) ([]model.Marathon, error)
	Get(ctx context.Context, id int64) (model.Marathon, error)
	// Insert assigns m.ID.
	Insert(ctx context.Context, m *model.Marathon) error
	Update(ctx context.Context, m model.Marathon) error
	Delete(ctx context.Context, id int64) error
}

// UserFilter narrows UserRepository.List. Zero values match everything.
type UserFilter struct {
	Role string
}

type UserRepository interface {
	List(ctx context.Context, f UserFilter) ([]model.User, error)
	Get(ctx context.Context, id int64) (model.User, error)
	FindByEmail(ctx context.Context, email string) (model.User, error)
	FindByPassportNo(ctx context.Context, passportNo string) (model.User, error)
	FindByMobile(ctx context.Context, mobile string) (model.User, error)
	// Insert assigns u.ID. Duplicate email, passport or mobile yields ErrConflict.
	Insert(ctx context.Context, u *model.User) error
	Update(ctx context.Context, u model.User) error
	// Delete removes the user together with every participation that has
	// no recorded result, as one unit.
	Delete(ctx context.Context, id int64) error
}

// ParticipationFilter narrows ParticipationRepository.List. Zero values
// match everything.
type ParticipationFilter struct {
	MarathonID int64
	UserID     int64
}

type ParticipationRepository interface {
	List(ctx context.Context, f ParticipationFilter) ([]model.Participation, error)
	Get(ctx context.Context, marathonID, userID int64) (model.Participation, error)
	// Insert fails with ErrConflict when the pair is already registered.
	Insert(ctx context.Context, p model.Participation) error
	// Update fails with ErrConflict when p.EntryNumber is positive and held
	// by another user of the same marathon.
	Update(ctx context.Context, p model.Participation) error
	Delete(ctx context.Context, marathonID, userID int64) error
}

// PassingPointRepository persists the course gallery.
type PassingPointRepository interface {
	List(ctx context.Context) ([]model.PassingPoint, error)
	Get(ctx context.Context, id int64) (model.PassingPoint, error)
	Insert(ctx context.Context, p *model.PassingPoint) error
	Update(ctx context.Context, p model.PassingPoint) error
	Delete(ctx context.Context, id int64) error
}

// TokenRepository persists refresh token hashes.
type TokenRepository interface {
	StoreRefresh(ctx context.Context, userID int64, tokenHash string, exp time.Time) error
	// ValidateRefresh returns the owner of a live token or ErrNotFound.
	ValidateRefresh(ctx context.Context, tokenHash string) (int64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
}

// Stores bundles one backend's repositories. It is opened once at startup
// and closed at shutdown.
type Stores struct {
	Marathons      MarathonRepository
	Users          UserRepository
	Participations ParticipationRepository
	PassingPoints  PassingPointRepository
	Tokens         TokenRepository

	Closer io.Closer
	Pinger func(ctx context.Context) error
}

// Ping checks the backend is reachable. Backends without a connection
// report healthy.
func (s *Stores) Ping(ctx context.Context) error {
	if s == nil || s.Pinger == nil {
		return nil
	}
	return s.Pinger(ctx)
}

// Close releases the backend.
func (s *Stores) Close() error {
	if s == nil || s.Closer == nil {
		return nil
	}
	return s.Closer.Close()
}
