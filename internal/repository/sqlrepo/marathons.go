package sqlrepo

import (
	"context"
	"database/sql"

	"github.com/duongquang05/marathon-portal/internal/model"
)

type MarathonRepo struct{ DB *sql.DB }

const marathonColumns = "id, race_name, race_date, status"

func (r *MarathonRepo) List(ctx context.Context) ([]model.Marathon, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+marathonColumns+" FROM marathons ORDER BY race_date, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Marathon
	for rows.Next() {
		var m model.Marathon
		if err := rows.Scan(&m.ID, &m.RaceName, &m.RaceDate, &m.Status); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MarathonRepo) Get(ctx context.Context, id int64) (model.Marathon, error) {
	var m model.Marathon
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+marathonColumns+" FROM marathons WHERE id=? LIMIT 1", id).
		Scan(&m.ID, &m.RaceName, &m.RaceDate, &m.Status)
	return m, notFound(err)
}

func (r *MarathonRepo) Insert(ctx context.Context, m *model.Marathon) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO marathons (race_name, race_date, status) VALUES (?,?,?)",
		m.RaceName, m.RaceDate, m.Status)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = id
	return nil
}

func (r *MarathonRepo) Update(ctx context.Context, m model.Marathon) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE marathons SET race_name=?, race_date=?, status=? WHERE id=?",
		m.RaceName, m.RaceDate, m.Status, m.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	// MySQL reports 0 affected rows for a no-op update, so confirm existence.
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := r.Get(ctx, m.ID)
		return err
	}
	return nil
}

// Delete fails with ErrConflict while participations reference the marathon.
func (r *MarathonRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM marathons WHERE id=?", id)
	if err != nil {
		return mapWriteErr(err)
	}
	return expectOne(res)
}
