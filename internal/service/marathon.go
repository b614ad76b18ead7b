package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/duongquang05/marathon-portal/internal/apperr"
	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/repository"
)

type MarathonService struct {
	Marathons      repository.MarathonRepository
	Participations repository.ParticipationRepository
}

func NewMarathonService(s *repository.Stores) *MarathonService {
	return &MarathonService{Marathons: s.Marathons, Participations: s.Participations}
}

// List returns marathons by race date. Unless includeAll is set only Active
// marathons are returned.
func (s *MarathonService) List(ctx context.Context, includeAll bool) ([]model.Marathon, error) {
	all, err := s.Marathons.List(ctx)
	if err != nil {
		return nil, fromStorage(err, "", "")
	}
	out := make([]model.Marathon, 0, len(all))
	for _, m := range all {
		if includeAll || m.Status == model.MarathonActive {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].RaceDate.Equal(out[j].RaceDate.Time) {
			return out[i].RaceDate.Before(out[j].RaceDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MarathonService) Get(ctx context.Context, id int64) (model.Marathon, error) {
	m, err := s.Marathons.Get(ctx, id)
	return m, fromStorage(err, "marathon not found", "")
}

// Create adds an Active marathon.
func (s *MarathonService) Create(ctx context.Context, raceName, raceDate string) (model.Marathon, error) {
	raceName = strings.TrimSpace(raceName)
	if raceName == "" || strings.TrimSpace(raceDate) == "" {
		return model.Marathon{}, apperr.Validation("raceName and raceDate are required")
	}
	d, err := model.ParseDate(raceDate)
	if err != nil {
		return model.Marathon{}, apperr.Validation("raceDate must be a date (YYYY-MM-DD)")
	}
	m := model.Marathon{RaceName: raceName, RaceDate: d, Status: model.MarathonActive}
	if err := s.Marathons.Insert(ctx, &m); err != nil {
		return model.Marathon{}, fromStorage(err, "", "marathon already exists")
	}
	return m, nil
}

// MarathonPatch holds the fields of a partial update. Nil fields are kept.
type MarathonPatch struct {
	RaceName *string
	RaceDate *string
	Status   *string
}

func (s *MarathonService) Update(ctx context.Context, id int64, patch MarathonPatch) (model.Marathon, error) {
	m, err := s.Marathons.Get(ctx, id)
	if err != nil {
		return model.Marathon{}, fromStorage(err, "marathon not found", "")
	}
	if patch.RaceName != nil {
		name := strings.TrimSpace(*patch.RaceName)
		if name == "" {
			return model.Marathon{}, apperr.Validation("raceName cannot be empty")
		}
		m.RaceName = name
	}
	if patch.RaceDate != nil {
		d, err := model.ParseDate(*patch.RaceDate)
		if err != nil {
			return model.Marathon{}, apperr.Validation("raceDate must be a date (YYYY-MM-DD)")
		}
		m.RaceDate = d
	}
	if patch.Status != nil {
		if !model.ValidMarathonStatus(*patch.Status) {
			return model.Marathon{}, apperr.Validation("status must be one of Active, Cancelled, Postponed, Completed")
		}
		m.Status = *patch.Status
	}
	if err := s.Marathons.Update(ctx, m); err != nil {
		return model.Marathon{}, fromStorage(err, "marathon not found", "")
	}
	return m, nil
}

// Cancel marks a marathon Cancelled. Its participations are kept.
func (s *MarathonService) Cancel(ctx context.Context, id int64) (model.Marathon, error) {
	cancelled := model.MarathonCancelled
	return s.Update(ctx, id, MarathonPatch{Status: &cancelled})
}

const marathonInUse = "cannot delete marathon with existing participations, cancel it instead"

// Delete removes a marathon nobody has registered for.
func (s *MarathonService) Delete(ctx context.Context, id int64) error {
	if _, err := s.Marathons.Get(ctx, id); err != nil {
		return fromStorage(err, "marathon not found", "")
	}
	refs, err := s.Participations.List(ctx, repository.ParticipationFilter{MarathonID: id})
	if err != nil {
		return fromStorage(err, "", "")
	}
	if len(refs) > 0 {
		return apperr.Conflict(marathonInUse)
	}
	err = s.Marathons.Delete(ctx, id)
	if errors.Is(err, repository.ErrConflict) {
		return apperr.Conflict(marathonInUse)
	}
	return fromStorage(err, "marathon not found", "")
}
