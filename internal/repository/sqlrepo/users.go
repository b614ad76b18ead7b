package sqlrepo

import (
	"context"
	"database/sql"
	"strings"

	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/repository"
)

// UserRepo persists accounts in the users table.
type UserRepo struct{ DB *sql.DB }

const userColumns = "id, full_name, email, password_hash, role, nationality, sex, birth_year, passport_no, mobile, current_address, best_record"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (model.User, error) {
	var (
		u         model.User
		birthYear sql.NullInt64
		nat, sex  sql.NullString
		passport  sql.NullString
		mobile    sql.NullString
		address   sql.NullString
		best      sql.NullString
	)
	err := s.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Role,
		&nat, &sex, &birthYear, &passport, &mobile, &address, &best)
	if err != nil {
		return u, err
	}
	u.Nationality = nullString(nat)
	u.Sex = nullString(sex)
	u.PassportNo = nullString(passport)
	u.Mobile = nullString(mobile)
	u.CurrentAddress = nullString(address)
	u.BestRecord = nullString(best)
	if birthYear.Valid {
		y := int(birthYear.Int64)
		u.BirthYear = &y
	}
	return u, nil
}

func (r *UserRepo) List(ctx context.Context, f repository.UserFilter) ([]model.User, error) {
	q := "SELECT " + userColumns + " FROM users"
	var args []any
	if f.Role != "" {
		q += " WHERE role=?"
		args = append(args, f.Role)
	}
	q += " ORDER BY id"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepo) Get(ctx context.Context, id int64) (model.User, error) {
	return r.getBy(ctx, "id", id)
}

// FindByEmail matches the normalized (trimmed, lower-cased) address.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getBy(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepo) FindByPassportNo(ctx context.Context, passportNo string) (model.User, error) {
	return r.getBy(ctx, "passport_no", strings.TrimSpace(passportNo))
}

func (r *UserRepo) FindByMobile(ctx context.Context, mobile string) (model.User, error) {
	return r.getBy(ctx, "mobile", strings.TrimSpace(mobile))
}

// column is always one of the literals above, never caller input.
func (r *UserRepo) getBy(ctx context.Context, column string, value any) (model.User, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE "+column+"=? LIMIT 1", value)
	u, err := scanUser(row)
	return u, notFound(err)
}

func (r *UserRepo) Insert(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (full_name, email, password_hash, role, nationality, sex, birth_year,
		 passport_no, mobile, current_address, best_record) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		u.FullName, u.Email, u.PasswordHash, u.Role, u.Nationality, u.Sex, u.BirthYear,
		u.PassportNo, u.Mobile, u.CurrentAddress, u.BestRecord)
	if err != nil {
		return mapWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func (r *UserRepo) Update(ctx context.Context, u model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET full_name=?, email=?, password_hash=?, role=?, nationality=?, sex=?,
		 birth_year=?, passport_no=?, mobile=?, current_address=?, best_record=? WHERE id=?`,
		u.FullName, u.Email, u.PasswordHash, u.Role, u.Nationality, u.Sex, u.BirthYear,
		u.PassportNo, u.Mobile, u.CurrentAddress, u.BestRecord, u.ID)
	if err != nil {
		return mapWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err := r.Get(ctx, u.ID)
		return err
	}
	return nil
}

// Delete removes the user's result-free participations, its refresh tokens
// and the user in one transaction. A participation with a result left
// behind makes the foreign key refuse the delete (ErrConflict).
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM participations WHERE user_id=? AND (time_record IS NULL OR standings IS NULL)", id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE user_id=?", id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return mapWriteErr(err)
	}
	if err := expectOne(res); err != nil {
		return err
	}
	return tx.Commit()
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
