package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/garnizeh/crackedclub/pkg/models"
)

const applicationColumns = `id, email, payload_json, schema_version, status, screening_json, client_ip, last_error, created, updated`

func (r *SQLiteRepo) CreateApplication(ctx context.Context, a *models.Application) error {
	if a == nil {
		return fmt.Errorf("application is nil")
	}
	if a.ID == "" {
		return fmt.Errorf("application id is required")
	}
	if a.Status == "" {
		a.Status = models.StatusQueued
	}
	ts := now()
	a.Created, a.Updated = ts, ts

	_, err := r.conn.Exec(ctx, `INSERT INTO applications (`+applicationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Email, string(a.PayloadJSON), a.SchemaVersion, a.Status, nullJSON(a.ScreeningJSON), nullString(a.ClientIP), nullString(a.LastError), a.Created, a.Updated)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	row := r.conn.QueryRow(ctx, `SELECT `+applicationColumns+` FROM applications WHERE id = ?`, id)
	a, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// ListApplications returns applications newest first. An empty status lists all.
func (r *SQLiteRepo) ListApplications(ctx context.Context, status string, limit, offset int) ([]models.Application, error) {
	limit, offset = clampPage(limit, offset)

	q := `SELECT ` + applicationColumns + ` FROM applications`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.conn.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) CountApplications(ctx context.Context, status string) (int64, error) {
	q := `SELECT COUNT(*) FROM applications`
	args := []any{}
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	var cnt int64
	if err := r.conn.QueryRow(ctx, q, args...).Scan(&cnt); err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *SQLiteRepo) UpdateApplicationStatus(ctx context.Context, id, status, lastError string) error {
	res, err := r.conn.Exec(ctx, `UPDATE applications SET status = ?, last_error = ?, updated = ? WHERE id = ?`, status, nullString(lastError), now(), id)
	if err != nil {
		return err
	}
	return expectOne(res, "application", id)
}

func (r *SQLiteRepo) SetScreening(ctx context.Context, id string, screeningJSON []byte) error {
	res, err := r.conn.Exec(ctx, `UPDATE applications SET screening_json = ?, updated = ? WHERE id = ?`, nullJSON(screeningJSON), now(), id)
	if err != nil {
		return err
	}
	return expectOne(res, "application", id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApplication(s scanner) (*models.Application, error) {
	var (
		a         models.Application
		payload   string
		screening sql.NullString
		clientIP  sql.NullString
		lastError sql.NullString
	)
	if err := s.Scan(&a.ID, &a.Email, &payload, &a.SchemaVersion, &a.Status, &screening, &clientIP, &lastError, &a.Created, &a.Updated); err != nil {
		return nil, err
	}
	a.PayloadJSON = json.RawMessage(payload)
	if screening.Valid {
		a.ScreeningJSON = json.RawMessage(screening.String)
	}
	a.ClientIP = clientIP.String
	a.LastError = lastError.String
	return &a, nil
}

func expectOne(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, sql.ErrNoRows)
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
