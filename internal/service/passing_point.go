package service

import (
	"context"
	"strings"

	"github.com/duongquang05/marathon-portal/internal/apperr"
	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/repository"
)

type PassingPointService struct {
	Points repository.PassingPointRepository
}

func NewPassingPointService(s *repository.Stores) *PassingPointService {
	return &PassingPointService{Points: s.PassingPoints}
}

func (s *PassingPointService) List(ctx context.Context) ([]model.PassingPoint, error) {
	list, err := s.Points.List(ctx)
	return list, fromStorage(err, "", "")
}

func (s *PassingPointService) Get(ctx context.Context, id int64) (model.PassingPoint, error) {
	p, err := s.Points.Get(ctx, id)
	return p, fromStorage(err, "passing point not found", "")
}

// PassingPointInput carries create and update fields. On update nil fields
// keep their stored value.
type PassingPointInput struct {
	PointName         *string  `json:"point_name"`
	Description       *string  `json:"description"`
	DistanceFromStart *float64 `json:"distance_from_start"`
	Location          *string  `json:"location"`
	PhotoPath         *string  `json:"photo_path"`
	ThumbnailPath     *string  `json:"thumbnail_path"`
	DisplayOrder      *int     `json:"display_order"`
}

func (s *PassingPointService) Create(ctx context.Context, in PassingPointInput) (model.PassingPoint, error) {
	if in.PointName == nil || strings.TrimSpace(*in.PointName) == "" {
		return model.PassingPoint{}, apperr.Validation("pointName is required")
	}
	var p model.PassingPoint
	if err := in.apply(&p); err != nil {
		return model.PassingPoint{}, err
	}
	if err := s.Points.Insert(ctx, &p); err != nil {
		return model.PassingPoint{}, fromStorage(err, "", "passing point already exists")
	}
	return p, nil
}

func (s *PassingPointService) Update(ctx context.Context, id int64, in PassingPointInput) (model.PassingPoint, error) {
	p, err := s.Points.Get(ctx, id)
	if err != nil {
		return model.PassingPoint{}, fromStorage(err, "passing point not found", "")
	}
	if err := in.apply(&p); err != nil {
		return model.PassingPoint{}, err
	}
	if err := s.Points.Update(ctx, p); err != nil {
		return model.PassingPoint{}, fromStorage(err, "passing point not found", "")
	}
	return p, nil
}

func (s *PassingPointService) Delete(ctx context.Context, id int64) error {
	return fromStorage(s.Points.Delete(ctx, id), "passing point not found", "")
}

func (in PassingPointInput) apply(p *model.PassingPoint) error {
	if in.PointName != nil {
		name := strings.TrimSpace(*in.PointName)
		if name == "" {
			return apperr.Validation("pointName cannot be empty")
		}
		p.PointName = name
	}
	if in.DistanceFromStart != nil && *in.DistanceFromStart < 0 {
		return apperr.Validation("distanceFromStart cannot be negative")
	}
	if in.Description != nil {
		p.Description = optional(in.Description)
	}
	if in.DistanceFromStart != nil {
		p.DistanceFromStart = in.DistanceFromStart
	}
	if in.Location != nil {
		p.Location = optional(in.Location)
	}
	if in.PhotoPath != nil {
		p.PhotoPath = optional(in.PhotoPath)
	}
	if in.ThumbnailPath != nil {
		p.ThumbnailPath = optional(in.ThumbnailPath)
	}
	if in.DisplayOrder != nil {
		p.DisplayOrder = *in.DisplayOrder
	}
	return nil
}
