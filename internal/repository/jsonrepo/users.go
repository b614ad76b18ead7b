package jsonrepo

import (
	"context"
	"strings"

	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/repository"
)

type UserRepo struct{ s *Store }

func (r *UserRepo) List(ctx context.Context, f repository.UserFilter) ([]model.User, error) {
	var out []model.User
	err := r.s.locked(ctx, func() error {
		list, err := readCollection[storedUser](r.s, usersFile)
		if err != nil {
			return err
		}
		for _, su := range list {
			if f.Role == "" || su.Role == f.Role {
				out = append(out, su.model())
			}
		}
		return nil
	})
	return out, err
}

func (r *UserRepo) Get(ctx context.Context, id int64) (model.User, error) {
	return r.find(ctx, func(u model.User) bool { return u.ID == id })
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	email = normalizeEmail(email)
	return r.find(ctx, func(u model.User) bool { return u.Email == email })
}

func (r *UserRepo) FindByPassportNo(ctx context.Context, passportNo string) (model.User, error) {
	passportNo = strings.TrimSpace(passportNo)
	return r.find(ctx, func(u model.User) bool { return u.PassportNo != nil && *u.PassportNo == passportNo })
}

func (r *UserRepo) FindByMobile(ctx context.Context, mobile string) (model.User, error) {
	mobile = strings.TrimSpace(mobile)
	return r.find(ctx, func(u model.User) bool { return u.Mobile != nil && *u.Mobile == mobile })
}

func (r *UserRepo) find(ctx context.Context, match func(model.User) bool) (model.User, error) {
	var out model.User
	err := r.s.locked(ctx, func() error {
		list, err := readCollection[storedUser](r.s, usersFile)
		if err != nil {
			return err
		}
		for _, su := range list {
			if u := su.model(); match(u) {
				out = u
				return nil
			}
		}
		return repository.ErrNotFound
	})
	return out, err
}

func (r *UserRepo) Insert(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	return r.s.locked(ctx, func() error {
		list, err := readCollection[storedUser](r.s, usersFile)
		if err != nil {
			return err
		}
		if clash(list, *u) {
			return repository.ErrConflict
		}
		u.ID = nextID(list, func(su storedUser) int64 { return su.ID })
		return writeCollection(r.s, usersFile, append(list, stored(*u)))
	})
}

func (r *UserRepo) Update(ctx context.Context, u model.User) error {
	u.Email = normalizeEmail(u.Email)
	return r.s.locked(ctx, func() error {
		list, err := readCollection[storedUser](r.s, usersFile)
		if err != nil {
			return err
		}
		idx := -1
		for i := range list {
			if list[i].ID == u.ID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return repository.ErrNotFound
		}
		if clash(list, u) {
			return repository.ErrConflict
		}
		list[idx] = stored(u)
		return writeCollection(r.s, usersFile, list)
	})
}

// Delete drops the user's result-free participations and tokens, then the
// user. A remaining result refuses the whole delete with ErrConflict
// before anything is written.
func (r *UserRepo) Delete(ctx context.Context, id int64) error {
	return r.s.locked(ctx, func() error {
		users, err := readCollection[storedUser](r.s, usersFile)
		if err != nil {
			return err
		}
		idx := -1
		for i := range users {
			if users[i].ID == id {
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
		kept := parts[:0]
		for _, p := range parts {
			if p.UserID != id {
				kept = append(kept, p)
				continue
			}
			if p.HasResult() {
				return repository.ErrConflict
			}
		}
		tokens, err := readCollection[model.RefreshToken](r.s, refreshTokensFile)
		if err != nil {
			return err
		}
		keptTokens := tokens[:0]
		for _, tk := range tokens {
			if tk.UserID != id {
				keptTokens = append(keptTokens, tk)
			}
		}
		if err := writeCollection(r.s, participationsFile, kept); err != nil {
			return err
		}
		if err := writeCollection(r.s, refreshTokensFile, keptTokens); err != nil {
			return err
		}
		return writeCollection(r.s, usersFile, append(users[:idx], users[idx+1:]...))
	})
}

// clash reports whether u shares email, passport or mobile with another user.
func clash(list []storedUser, u model.User) bool {
	for _, other := range list {
		if other.ID == u.ID {
			continue
		}
		if other.Email == u.Email ||
			sameOptional(other.PassportNo, u.PassportNo) ||
			sameOptional(other.Mobile, u.Mobile) {
			return true
		}
	}
	return false
}

func sameOptional(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func normalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// storedUser keeps the password hash in the file; model.User hides it from
// JSON so it never leaks through API responses.
type storedUser struct {
	model.User
	PasswordHash string `json:"password_hash"`
}

func stored(u model.User) storedUser { return storedUser{User: u, PasswordHash: u.PasswordHash} }

func (su storedUser) model() model.User {
	u := su.User
	u.PasswordHash = su.PasswordHash
	return u
}
