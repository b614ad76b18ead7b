package jsonrepo

import (
	"context"
	"time"

	"github.com/duongquang05/marathon-portal/internal/model"
	"github.com/duongquang05/marathon-portal/internal/repository"
)

type TokenRepo struct{ s *Store }

func (r *TokenRepo) StoreRefresh(ctx context.Context, userID int64, tokenHash string, exp time.Time) error {
	return r.s.locked(ctx, func() error {
		list, err := readCollection[model.RefreshToken](r.s, refreshTokensFile)
		if err != nil {
			return err
		}
		for _, tk := range list {
			if tk.TokenHash == tokenHash {
				return repository.ErrConflict
			}
		}
		list = append(list, model.RefreshToken{
			ID:        nextID(list, func(tk model.RefreshToken) int64 { return tk.ID }),
			UserID:    userID,
			TokenHash: tokenHash,
			ExpiresAt: exp.UTC(),
		})
		return writeCollection(r.s, refreshTokensFile, list)
	})
}

func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (int64, error) {
	var userID int64
	err := r.s.locked(ctx, func() error {
		list, err := readCollection[model.RefreshToken](r.s, refreshTokensFile)
		if err != nil {
			return err
		}
		for _, tk := range list {
			if tk.TokenHash != tokenHash {
				continue
			}
			if tk.RevokedAt != nil || time.Now().UTC().After(tk.ExpiresAt) {
				return repository.ErrNotFound
			}
			userID = tk.UserID
			return nil
		}
		return repository.ErrNotFound
	})
	return userID, err
}

func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	return r.revoke(ctx, func(tk model.RefreshToken) bool { return tk.TokenHash == tokenHash })
}

func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID int64) error {
	return r.revoke(ctx, func(tk model.RefreshToken) bool { return tk.UserID == userID })
}

func (r *TokenRepo) revoke(ctx context.Context, match func(model.RefreshToken) bool) error {
	return r.s.locked(ctx, func() error {
		list, err := readCollection[model.RefreshToken](r.s, refreshTokensFile)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		changed := false
		for i := range list {
			if list[i].RevokedAt == nil && match(list[i]) {
				list[i].RevokedAt = &now
				changed = true
			}
		}
		if !changed {
			return nil
		}
		return writeCollection(r.s, refreshTokensFile, list)
	})
}
