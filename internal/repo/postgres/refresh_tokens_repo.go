package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/admissionhub/internal/domain/user"
	"github.com/geocoder89/admissionhub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RefreshTokensRepo struct {
	base
}

func NewRefreshTokensRepo(pool *pgxpool.Pool, prom *observability.Prom) *RefreshTokensRepo {
	return &RefreshTokensRepo{base{pool: pool, prom: prom}}
}

func (r *RefreshTokensRepo) Create(ctx context.Context, t user.RefreshToken) error {
	return r.observe("refresh_tokens.create", func() error {
		_, err := r.pool.Exec(ctx, `
			INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, t.ID, t.UserID, t.TokenHash, t.ExpiresAt, t.RevokedAt, t.ReplacedBy, t.CreatedAt)
		return err
	})
}

// Rotate swaps the token identified by oldID for next. The old row is locked so
// two concurrent refreshes with the same token can't both win. Presenting an
// already revoked token revokes every session of that user.
func (r *RefreshTokensRepo) Rotate(ctx context.Context, oldID, presentedHash string, next user.RefreshToken) error {
	var reused *string

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		var cur user.RefreshToken

		err := r.observe("refresh_tokens.get_for_update", func() error {
			return tx.QueryRow(ctx, `
				SELECT id, user_id, token_hash, expires_at, revoked_at, replaced_by, created_at
				FROM refresh_tokens
				WHERE id = $1
				FOR UPDATE
			`, oldID).Scan(&cur.ID, &cur.UserID, &cur.TokenHash, &cur.ExpiresAt, &cur.RevokedAt, &cur.ReplacedBy, &cur.CreatedAt)
		})
		if errors.Is(err, pgx.ErrNoRows) {
			return user.ErrRefreshNotFound
		}
		if err != nil {
			return err
		}

		if err := cur.CheckRotatable(presentedHash, time.Now().UTC()); err != nil {
			if errors.Is(err, user.ErrRefreshRevoked) {
				reused = &cur.UserID
			}
			return err
		}
		if cur.UserID != next.UserID {
			return user.ErrRefreshNotFound
		}

		err = r.observe("refresh_tokens.insert_rotated", func() error {
			_, e := tx.Exec(ctx, `
				INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, created_at)
				VALUES ($1,$2,$3,$4,$5)
			`, next.ID, next.UserID, next.TokenHash, next.ExpiresAt, next.CreatedAt)
			return e
		})
		if err != nil {
			return err
		}

		return r.observe("refresh_tokens.revoke", func() error {
			_, e := tx.Exec(ctx, `
				UPDATE refresh_tokens SET revoked_at = NOW(), replaced_by = $2 WHERE id = $1
			`, oldID, next.ID)
			return e
		})
	})

	if reused != nil {
		// the rotation tx rolled back; revoke outside it
		if rerr := r.RevokeAllForUser(ctx, *reused); rerr != nil {
			return rerr
		}
	}

	return err
}

func (r *RefreshTokensRepo) Revoke(ctx context.Context, id string) error {
	return r.observe("refresh_tokens.revoke", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE refresh_tokens SET revoked_at = NOW() WHERE id = $1 AND revoked_at IS NULL
		`, id)
		return err
	})
}

func (r *RefreshTokensRepo) RevokeAllForUser(ctx context.Context, userID string) error {
	return r.observe("refresh_tokens.revoke_all", func() error {
		_, err := r.pool.Exec(ctx, `
			UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL
		`, userID)
		return err
	})
}

// PurgeExpired deletes tokens that expired before cutoff. Their JWTs can no
// longer verify, so reuse detection doesn't need them.
func (r *RefreshTokensRepo) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	err := r.observe("refresh_tokens.purge_expired", func() error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, cutoff)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	return n, err
}
