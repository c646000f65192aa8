package sqlite

import (
	"context"
	"strings"

	"github.com/garnizeh/crackedclub/pkg/models"
)

// AddToWaitlist stores email once. A repeated email is not an error.
func (r *SQLiteRepo) AddToWaitlist(ctx context.Context, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.conn.Exec(ctx, `INSERT INTO waitlist (email, created) VALUES (?, ?) ON CONFLICT(email) DO NOTHING`, email, now())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *SQLiteRepo) ListWaitlist(ctx context.Context, limit, offset int) ([]models.WaitlistEntry, error) {
	limit, offset = clampPage(limit, offset)
	rows, err := r.conn.QueryRows(ctx, `SELECT id, email, created FROM waitlist ORDER BY created DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.WaitlistEntry{}
	for rows.Next() {
		var e models.WaitlistEntry
		if err := rows.Scan(&e.ID, &e.Email, &e.Created); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) CountWaitlist(ctx context.Context) (int64, error) {
	var cnt int64
	if err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM waitlist`).Scan(&cnt); err != nil {
		return 0, err
	}
	return cnt, nil
}
