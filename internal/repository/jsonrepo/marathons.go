package jsonrepo

import (
	"context"

	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/repository"
)

type MarathonRepo struct{ s *Store }

func marathonID(m model.Marathon) int64 { return m.ID }

func (r *MarathonRepo) List(ctx context.Context) ([]model.Marathon, error) {
	var out []model.Marathon
	err := r.s.locked(ctx, func() error {
		var err error
		out, err = readCollection[model.Marathon](r.s, marathonsFile)
		return err
	})
	return out, err
}

func (r *MarathonRepo) Get(ctx context.Context, id int64) (model.Marathon, error) {
	var out model.Marathon
	err := r.s.locked(ctx, func() error {
		list, err := readCollection[model.Marathon](r.s, marathonsFile)
		if err != nil {
			return err
		}
		for _, m := range list {
			if m.ID == id {
				out = m
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *MarathonRepo) Insert(ctx context.Context, m *model.Marathon) error {
	return r.s.locked(ctx, func() error {
		list, err := readCollection[model.Marathon](r.s, marathonsFile)
		if err != nil {
			return err
		}
		m.ID = nextID(list, marathonID)
		return writeCollection(r.s, marathonsFile, append(list, *m))
	})
}

func (r *MarathonRepo) Update(ctx context.Context, m model.Marathon) error {
	return r.s.locked(ctx, func() error {
		list, err := readCollection[model.Marathon](r.s, marathonsFile)
		if err != nil {
			return err
		}
		for i := range list {
			if list[i].ID == m.ID {
				list[i] = m
				return writeCollection(r.s, marathonsFile, list)
			}
		}
		return repository.ErrNotFound
	})
}

// Delete refuses while any participation references the marathon.
func (r *MarathonRepo) Delete(ctx context.Context, id int64) error {
	return r.s.locked(ctx, func() error {
		list, err := readCollection[model.Marathon](r.s, marathonsFile)
		if err != nil {
			return err
		}
		idx := -1
		for i := range list {
			if list[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return repository.ErrNotFound
		}
		parts, err := readCollection[model.Participation](r.s, participationsFile)
		if err != nil {
			return err
		}
		for _, p := range parts {
			if p.MarathonID == id {
				return repository.ErrConflict
			}
		}
		return writeCollection(r.s, marathonsFile, append(list[:idx], list[idx+1:]...))
	})
}
