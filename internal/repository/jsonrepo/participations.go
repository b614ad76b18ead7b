package jsonrepo

import (
	"context"
	"slices"

	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/repository"
)

// ParticipationRepo keeps participations.json. Bib uniqueness is re-checked
// under the store lock on every write.
type ParticipationRepo struct{ s *Store }

func (r *ParticipationRepo) List(ctx context.Context, f repository.ParticipationFilter) ([]model.Participation, error) {
	var out []model.Participation
	err := r.s.locked(ctx, func() error {
		list, err := readCollection[model.Participation](r.s, participationsFile)
		if err != nil {
			return err
		}
		for _, p := range list {
			if (f.MarathonID == 0 || p.MarathonID == f.MarathonID) &&
				(f.UserID == 0 || p.UserID == f.UserID) {
				out = append(out, p)
			}
		}
		return nil
	})
	return out, err
}

func (r *ParticipationRepo) Get(ctx context.Context, marathonID, userID int64) (model.Participation, error) {
	var out model.Participation
	err := r.s.locked(ctx, func() error {
		list, err := readCollection[model.Participation](r.s, participationsFile)
		if err != nil {
			return err
		}
		if i := indexOf(list, marathonID, userID); i >= 0 {
			out = list[i]
			return nil
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *ParticipationRepo) Insert(ctx context.Context, p model.Participation) error {
	return r.s.locked(ctx, func() error {
		list, err := readCollection[model.Participation](r.s, participationsFile)
		if err != nil {
			return err
		}
		if indexOf(list, p.MarathonID, p.UserID) >= 0 || entryTaken(list, p) {
			return repository.ErrConflict
		}
		if err := r.referencesExist(p); err != nil {
			return err
		}
		return writeCollection(r.s, participationsFile, append(list, p))
	})
}

func (r *ParticipationRepo) Update(ctx context.Context, p model.Participation) error {
	return r.s.locked(ctx, func() error {
		list, err := readCollection[model.Participation](r.s, participationsFile)
		if err != nil {
			return err
		}
		i := indexOf(list, p.MarathonID, p.UserID)
		if i < 0 {
			return repository.ErrNotFound
		}
		if entryTaken(list, p) {
			return repository.ErrConflict
		}
		list[i] = p
		return writeCollection(r.s, participationsFile, list)
	})
}

func (r *ParticipationRepo) Delete(ctx context.Context, marathonID, userID int64) error {
	return r.s.locked(ctx, func() error {
		list, err := readCollection[model.Participation](r.s, participationsFile)
		if err != nil {
			return err
		}
		i := indexOf(list, marathonID, userID)
		if i < 0 {
			return repository.ErrNotFound
		}
		return writeCollection(r.s, participationsFile, append(list[:i], list[i+1:]...))
	})
}

func indexOf(list []model.Participation, marathonID, userID int64) int {
	for i, p := range list {
		if p.MarathonID == marathonID && p.UserID == userID {
			return i
		}
	}
	return -1
}

// entryTaken reports whether p's entry number is held by another user of
// the same marathon.
func entryTaken(list []model.Participation, p model.Participation) bool {
	for _, other := range list {
		if other.MarathonID == p.MarathonID && other.UserID != p.UserID && other.EntryNumber == p.EntryNumber {
			return true
		}
	}
	return false
}

func (r *ParticipationRepo) referencesExist(p model.Participation) error {
	marathons, err := readCollection[model.Marathon](r.s, marathonsFile)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(marathons, func(m model.Marathon) bool { return m.ID == p.MarathonID }) {
		return repository.ErrMissingReference
	}
	users, err := readCollection[storedUser](r.s, usersFile)
	if err != nil {
		return err
	}
	if !slices.ContainsFunc(users, func(u storedUser) bool { return u.ID == p.UserID }) {
		return repository.ErrMissingReference
	}
	return nil
}
