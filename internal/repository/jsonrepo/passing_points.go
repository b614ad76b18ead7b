package jsonrepo

import (
	"context"
	"sort"

	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/repository"
)

type PassingPointRepo struct{ s *Store }

// List returns points by display order, then id.
func (r *PassingPointRepo) List(ctx context.Context) ([]model.PassingPoint, error) {
	var out []model.PassingPoint
	err := r.s.locked(ctx, func() error {
		var err error
		out, err = readCollection[model.PassingPoint](r.s, passingPointsFile)
		return err
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, err
}

func (r *PassingPointRepo) Get(ctx context.Context, id int64) (model.PassingPoint, error) {
	var out model.PassingPoint
	err := r.s.locked(ctx, func() error {
		list, err := readCollection[model.PassingPoint](r.s, passingPointsFile)
		if err != nil {
			return err
		}
		for _, p := range list {
			if p.ID == id {
				out = p
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *PassingPointRepo) Insert(ctx context.Context, p *model.PassingPoint) error {
	return r.s.locked(ctx, func() error {
		list, err := readCollection[model.PassingPoint](r.s, passingPointsFile)
		if err != nil {
			return err
		}
		p.ID = nextID(list, func(pp model.PassingPoint) int64 { return pp.ID })
		return writeCollection(r.s, passingPointsFile, append(list, *p))
	})
}

func (r *PassingPointRepo) Update(ctx context.Context, p model.PassingPoint) error {
	return r.s.locked(ctx, func() error {
		list, err := readCollection[model.PassingPoint](r.s, passingPointsFile)
		if err != nil {
			return err
		}
		for i := range list {
			if list[i].ID == p.ID {
				list[i] = p
				return writeCollection(r.s, passingPointsFile, list)
			}
		}
		return repository.ErrNotFound
	})
}

func (r *PassingPointRepo) Delete(ctx context.Context, id int64) error {
	return r.s.locked(ctx, func() error {
		list, err := readCollection[model.PassingPoint](r.s, passingPointsFile)
		if err != nil {
			return err
		}
		for i := range list {
			if list[i].ID == id {
				return writeCollection(r.s, passingPointsFile, append(list[:i], list[i+1:]...))
			}
		}
		return repository.ErrNotFound
	})
}
