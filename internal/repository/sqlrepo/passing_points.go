package sqlrepo

import (
	"context"
	"database/sql"

	"github.com/duongquang05/marathon-portal/internal/model"
)

type PassingPointRepo struct{ DB *sql.DB }

const passingPointColumns = "id, point_name, description, distance_from_start, location, photo_path, thumbnail_path, display_order"

func scanPassingPoint(s rowScanner) (model.PassingPoint, error) {
	var (
		p                     model.PassingPoint
		desc, loc, photo, thb sql.NullString
		dist                  sql.NullFloat64
	)
	if err := s.Scan(&p.ID, &p.PointName, &desc, &dist, &loc, &photo, &thb, &p.DisplayOrder); err != nil {
		return p, err
	}
	p.Description = nullString(desc)
	p.Location = nullString(loc)
	p.PhotoPath = nullString(photo)
	p.ThumbnailPath = nullString(thb)
	if dist.Valid {
		d := dist.Float64
		p.DistanceFromStart = &d
	}
	return p, nil
}

func (r *PassingPointRepo) List(ctx context.Context) ([]model.PassingPoint, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+passingPointColumns+" FROM passing_points ORDER BY display_order, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PassingPoint
	for rows.Next() {
		p, err := scanPassingPoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PassingPointRepo) Get(ctx context.Context, id int64) (model.PassingPoint, error) {
	p, err := scanPassingPoint(r.DB.QueryRowContext(ctx,
		"SELECT "+passingPointColumns+" FROM passing_points WHERE id=? LIMIT 1", id))
	return p, notFound(err)
}

func (r *PassingPointRepo) Insert(ctx context.Context, p *model.PassingPoint) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO passing_points (point_name, description, distance_from_start, location,
		 photo_path, thumbnail_path, display_order) VALUES (?,?,?,?,?,?,?)`,
		p.PointName, p.Description, p.DistanceFromStart, p.Location, p.PhotoPath, p.ThumbnailPath, p.DisplayOrder)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *PassingPointRepo) Update(ctx context.Context, p model.PassingPoint) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE passing_points SET point_name=?, description=?, distance_from_start=?, location=?,
		 photo_path=?, thumbnail_path=?, display_order=? WHERE id=?`,
		p.PointName, p.Description, p.DistanceFromStart, p.Location, p.PhotoPath, p.ThumbnailPath, p.DisplayOrder, p.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := r.Get(ctx, p.ID)
		return err
	}
	return nil
}

func (r *PassingPointRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM passing_points WHERE id=?", id)
	if err != nil {
		return err
	}
	return expectOne(res)
}
