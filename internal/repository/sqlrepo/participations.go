package sqlrepo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/repository"
)

// ParticipationRepo persists the participations table. The unique index on
// (marathon_id, entry_number) backs the bib uniqueness rule.
type ParticipationRepo struct{ DB *sql.DB }

const participationColumns = "marathon_id, user_id, entry_number, hotel, time_record, standings"

func scanParticipation(s rowScanner) (model.Participation, error) {
	var (
		p         model.Participation
		hotel, tr sql.NullString
		standings sql.NullInt64
	)
	if err := s.Scan(&p.MarathonID, &p.UserID, &p.EntryNumber, &hotel, &tr, &standings); err != nil {
		return p, err
	}
	p.Hotel = nullString(hotel)
	p.TimeRecord = nullString(tr)
	if standings.Valid {
		v := int(standings.Int64)
		p.Standings = &v
	}
	return p, nil
}

func (r *ParticipationRepo) List(ctx context.Context, f repository.ParticipationFilter) ([]model.Participation, error) {
	var (
		where []string
		args  []any
	)
	if f.MarathonID != 0 {
		where = append(where, "marathon_id=?")
		args = append(args, f.MarathonID)
	}
	if f.UserID != 0 {
		where = append(where, "user_id=?")
		args = append(args, f.UserID)
	}
	q := "SELECT " + participationColumns + " FROM participations"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY marathon_id, user_id"

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Participation
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ParticipationRepo) Get(ctx context.Context, marathonID, userID int64) (model.Participation, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+participationColumns+" FROM participations WHERE marathon_id=? AND user_id=? LIMIT 1",
		marathonID, userID)
	p, err := scanParticipation(row)
	return p, notFound(err)
}

func (r *ParticipationRepo) Insert(ctx context.Context, p model.Participation) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO participations ("+participationColumns+") VALUES (?,?,?,?,?,?)",
		p.MarathonID, p.UserID, p.EntryNumber, p.Hotel, p.TimeRecord, p.Standings)
	return mapInsertErr(err)
}

func (r *ParticipationRepo) Update(ctx context.Context, p model.Participation) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE participations SET entry_number=?, hotel=?, time_record=?, standings=? WHERE marathon_id=? AND user_id=?",
		p.EntryNumber, p.Hotel, p.TimeRecord, p.Standings, p.MarathonID, p.UserID)
	if err != nil {
		return mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := r.Get(ctx, p.MarathonID, p.UserID)
		return err
	}
	return nil
}

func (r *ParticipationRepo) Delete(ctx context.Context, marathonID, userID int64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM participations WHERE marathon_id=? AND user_id=?", marathonID, userID)
	if err != nil {
		return err
	}
	return expectOne(res)
}
