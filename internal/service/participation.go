package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/labstack/gommon/log"

	"github.com/duongquang05/marathon-portal/internal/apperr"
	"github.com/duongquang05/marathon-portal/internal/lock"
	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/queue"
	"github.com/duongquang05/marathon-portal/internal/repository"
)

// ParticipationService runs the participation state machine:
//
//	[none] -Register-> Pending -Accept-> Accepted -SetResult-> Resulted
//
// Cancel deletes a Pending or Accepted entry up to the day before the race.
type ParticipationService struct {
	Marathons      repository.MarathonRepository
	Users          repository.UserRepository
	Participations repository.ParticipationRepository
	// Locker serializes writes to a marathon's participations.
	Locker lock.Locker
	Events EventPublisher
	Now    func() time.Time
}

func NewParticipationService(s *repository.Stores, locker lock.Locker, events EventPublisher) *ParticipationService {
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &ParticipationService{
		Marathons:      s.Marathons,
		Users:          s.Users,
		Participations: s.Participations,
		Locker:         locker,
		Events:         events,
		Now:            time.Now,
	}
}

var registrationClosed = map[string]string{
	model.MarathonCancelled: "this marathon has been cancelled",
	model.MarathonPostponed: "this marathon has been postponed",
	model.MarathonCompleted: "this marathon has already been completed",
}

const alreadyRegistered = "you already registered this marathon"

// Register enrols userID in an Active marathon as a pending entry.
func (s *ParticipationService) Register(ctx context.Context, userID, marathonID int64, hotel *string) (model.Participation, error) {
	if _, err := s.Users.Get(ctx, userID); err != nil {
		return model.Participation{}, fromStorage(err, "user not found", "")
	}
	m, err := s.Marathons.Get(ctx, marathonID)
	if err != nil {
		return model.Participation{}, fromStorage(err, "marathon not found", "")
	}
	if m.Status != model.MarathonActive {
		if msg, ok := registrationClosed[m.Status]; ok {
			return model.Participation{}, apperr.InvalidState("%s", msg)
		}
		return model.Participation{}, apperr.InvalidState("this marathon is not available for registration")
	}

	if _, err := s.Participations.Get(ctx, marathonID, userID); err == nil {
		return model.Participation{}, apperr.Conflict(alreadyRegistered)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return model.Participation{}, fromStorage(err, "", "")
	}

	p := model.Participation{
		MarathonID:  marathonID,
		UserID:      userID,
		EntryNumber: -userID,
		Hotel:       optional(hotel),
	}
	if err := s.Participations.Insert(ctx, p); err != nil {
		return model.Participation{}, fromStorage(err, "marathon not found", alreadyRegistered)
	}
	publish(ctx, s.Events, s.event(queue.EventRegistered, userID, m, p))
	return p, nil
}

// Accept assigns a bib. An explicit entryNumber must be positive and free
// within the marathon (the participant's own current number counts as
// free). A blank entryNumber takes max(positive bibs)+1, or keeps the bib
// of an entry that already has one.
func (s *ParticipationService) Accept(ctx context.Context, actor Caller, marathonID, userID int64, entryNumber string) (model.Participation, error) {
	explicit, err := ParseEntryNumber(entryNumber)
	if err != nil {
		return model.Participation{}, err
	}

	unlock, err := s.lockMarathon(ctx, marathonID)
	if err != nil {
		return model.Participation{}, err
	}
	defer unlock()

	p, err := s.Participations.Get(ctx, marathonID, userID)
	if err != nil {
		return model.Participation{}, fromStorage(err, "participation not found", "")
	}
	siblings, err := s.Participations.List(ctx, repository.ParticipationFilter{MarathonID: marathonID})
	if err != nil {
		return model.Participation{}, fromStorage(err, "", "")
	}

	var bib int64
	switch {
	case explicit != nil:
		bib = *explicit
		for _, o := range siblings {
			if o.UserID != userID && o.EntryNumber == bib {
				return model.Participation{}, entryTaken(bib)
			}
		}
	case !p.IsPending():
		bib = p.EntryNumber
	default:
		bib = nextEntryNumber(siblings)
	}

	p.EntryNumber = bib
	if err := s.Participations.Update(ctx, p); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return model.Participation{}, entryTaken(bib)
		}
		return model.Participation{}, fromStorage(err, "participation not found", "")
	}

	ev := s.event(queue.EventAccepted, actor.UserID, s.marathonForEvent(ctx, marathonID), p)
	publish(ctx, s.Events, ev)
	return p, nil
}

// lockMarathon takes the per-marathon write lock. The lock is not
// reentrant.
func (s *ParticipationService) lockMarathon(ctx context.Context, marathonID int64) (func(), error) {
	unlock, err := s.Locker.Lock(ctx, marathonLockKey(marathonID))
	if err != nil {
		return nil, apperr.Internal("could not lock marathon", err)
	}
	return unlock, nil
}

func marathonLockKey(marathonID int64) string {
	return "accept:marathon:" + strconv.FormatInt(marathonID, 10)
}

// marathonForEvent loads the marathon for an event payload. The write has
// already happened, so a failed lookup only thins out the event.
func (s *ParticipationService) marathonForEvent(ctx context.Context, marathonID int64) model.Marathon {
	m, err := s.Marathons.Get(ctx, marathonID)
	if err != nil {
		log.Warnf("load marathon %d for event: %v", marathonID, err)
		return model.Marathon{ID: marathonID}
	}
	return m
}

func entryTaken(n int64) error {
	return apperr.Conflict("entry number %d already exists for this marathon", n)
}

// nextEntryNumber is one past the highest positive bib, starting at 1.
func nextEntryNumber(list []model.Participation) int64 {
	var max int64
	for _, p := range list {
		if p.EntryNumber > max {
			max = p.EntryNumber
		}
	}
	return max + 1
}

// SetResult records finish time and position together. The entry must have
// been accepted.
func (s *ParticipationService) SetResult(ctx context.Context, actor Caller, marathonID, userID int64, timeRecord, standings string) (model.Participation, error) {
	tr, err := NormalizeTimeRecord(timeRecord)
	if err != nil {
		return model.Participation{}, err
	}
	st, err := ParseStandings(standings)
	if err != nil {
		return model.Participation{}, err
	}

	unlock, err := s.lockMarathon(ctx, marathonID)
	if err != nil {
		return model.Participation{}, err
	}
	defer unlock()

	p, err := s.Participations.Get(ctx, marathonID, userID)
	if err != nil {
		return model.Participation{}, fromStorage(err, "participation not found", "")
	}
	if p.IsPending() {
		return model.Participation{}, apperr.InvalidState("participation must be accepted before a result is recorded")
	}
	p.TimeRecord, p.Standings = &tr, &st
	if err := s.Participations.Update(ctx, p); err != nil {
		return model.Participation{}, fromStorage(err, "participation not found", "")
	}

	m := s.marathonForEvent(ctx, marathonID)
	publish(ctx, s.Events, s.event(queue.EventResultRecorded, actor.UserID, m, p))
	return p, nil
}

// Cancel deletes a participation. Participants may cancel only their own
// entries; nobody may cancel on or after race day (compared as calendar
// days against asOf) or once a result exists.
func (s *ParticipationService) Cancel(ctx context.Context, caller Caller, marathonID, userID int64, asOf time.Time) error {
	if !caller.IsAdmin() && caller.UserID != userID {
		return apperr.Forbidden("cannot cancel others participation")
	}
	unlock, err := s.lockMarathon(ctx, marathonID)
	if err != nil {
		return err
	}
	defer unlock()

	p, err := s.Participations.Get(ctx, marathonID, userID)
	if err != nil {
		return fromStorage(err, "participation not found", "")
	}
	m, err := s.Marathons.Get(ctx, marathonID)
	if err != nil {
		return fromStorage(err, "marathon not found", "")
	}
	if p.HasResult() {
		return apperr.InvalidState("cannot cancel a participation with a recorded result")
	}
	if !m.RaceDate.After(model.NewDate(asOf)) {
		return apperr.InvalidState("cannot cancel on or after race date")
	}
	if err := s.Participations.Delete(ctx, marathonID, userID); err != nil {
		return fromStorage(err, "participation not found", "")
	}
	publish(ctx, s.Events, s.event(queue.EventCancelled, caller.UserID, m, p))
	return nil
}

// ListMine returns userID's participations joined with their marathons,
// earliest race first.
func (s *ParticipationService) ListMine(ctx context.Context, userID int64) ([]model.ParticipationView, error) {
	parts, err := s.Participations.List(ctx, repository.ParticipationFilter{UserID: userID})
	if err != nil {
		return nil, fromStorage(err, "", "")
	}
	marathons, err := s.marathonIndex(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.ParticipationView, 0, len(parts))
	for _, p := range parts {
		out = append(out, view(p, marathons[p.MarathonID], model.User{}))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RaceDate.Before(out[j].RaceDate) })
	return out, nil
}

// ListAll returns every participation with marathon and participant
// details, ordered by race date then bib, pending entries last.
func (s *ParticipationService) ListAll(ctx context.Context) ([]model.ParticipationView, error) {
	parts, err := s.Participations.List(ctx, repository.ParticipationFilter{})
	if err != nil {
		return nil, fromStorage(err, "", "")
	}
	marathons, err := s.marathonIndex(ctx)
	if err != nil {
		return nil, err
	}
	users, err := s.Users.List(ctx, repository.UserFilter{})
	if err != nil {
		return nil, fromStorage(err, "", "")
	}
	byID := make(map[int64]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	out := make([]model.ParticipationView, 0, len(parts))
	for _, p := range parts {
		out = append(out, view(p, marathons[p.MarathonID], byID[p.UserID]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.RaceDate.Equal(b.RaceDate.Time) {
			return a.RaceDate.Before(b.RaceDate)
		}
		if a.IsPending() != b.IsPending() {
			return !a.IsPending()
		}
		return a.EntryNumber < b.EntryNumber
	})
	return out, nil
}

func (s *ParticipationService) marathonIndex(ctx context.Context) (map[int64]model.Marathon, error) {
	list, err := s.Marathons.List(ctx)
	if err != nil {
		return nil, fromStorage(err, "", "")
	}
	idx := make(map[int64]model.Marathon, len(list))
	for _, m := range list {
		idx[m.ID] = m
	}
	return idx, nil
}

func view(p model.Participation, m model.Marathon, u model.User) model.ParticipationView {
	return model.ParticipationView{
		ID:                 model.ParticipationID(p.MarathonID, p.UserID),
		Participation:      p,
		State:              p.Status(),
		EntryNumberDisplay: p.EntryNumberDisplay(),
		RaceName:           m.RaceName,
		RaceDate:           m.RaceDate,
		MarathonStatus:     m.Status,
		FullName:           u.FullName,
		Email:              u.Email,
	}
}

func (s *ParticipationService) event(typ string, actor int64, m model.Marathon, p model.Participation) queue.ParticipationEvent {
	ev := queue.ParticipationEvent{
		Type:        typ,
		MarathonID:  p.MarathonID,
		UserID:      p.UserID,
		ActorID:     actor,
		RaceName:    m.RaceName,
		EntryNumber: p.EntryNumber,
		TimeRecord:  p.TimeRecord,
		Standings:   p.Standings,
	}
	ev.Stamp(s.Now())
	return ev
}
