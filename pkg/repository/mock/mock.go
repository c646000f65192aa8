package mock

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/garnizeh/crackedclub/pkg/models"
	"github.com/garnizeh/crackedclub/pkg/repository"
)

var (
	_ repository.ApplicationRepo = (*ApplicationRepo)(nil)
	_ repository.WaitlistRepo    = (*WaitlistRepo)(nil)
)

// Test helpers and mocks
type Mocks struct {
	Apps     *ApplicationRepo
	Waitlist *WaitlistRepo
}

func NewMocks() *Mocks {
	return &Mocks{
		Apps:     &ApplicationRepo{byID: map[string]*models.Application{}},
		Waitlist: &WaitlistRepo{seen: map[string]bool{}},
	}
}

// ApplicationRepo keeps applications in memory. Set CreateErr to make
// CreateApplication fail.
type ApplicationRepo struct {
	mu        sync.Mutex
	byID      map[string]*models.Application
	order     []string
	CreateErr error
}

func (m *ApplicationRepo) CreateApplication(ctx context.Context, a *models.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if a.Status == "" {
		a.Status = models.StatusQueued
	}
	a.Created = int64(len(m.order) + 1)
	a.Updated = a.Created
	cp := *a
	m.byID[a.ID] = &cp
	m.order = append(m.order, a.ID)
	return nil
}

func (m *ApplicationRepo) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *ApplicationRepo) ListApplications(ctx context.Context, status string, limit, offset int) ([]models.Application, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Application{}
	for i := len(m.order) - 1; i >= 0; i-- {
		a := m.byID[m.order[i]]
		if status != "" && a.Status != status {
			continue
		}
		out = append(out, *a)
	}
	if offset >= len(out) {
		return []models.Application{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *ApplicationRepo) CountApplications(ctx context.Context, status string) (int64, error) {
	list, _ := m.ListApplications(ctx, status, 0, 0)
	return int64(len(list)), nil
}

func (m *ApplicationRepo) UpdateApplicationStatus(ctx context.Context, id, status, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("application %s: %w", id, sql.ErrNoRows)
	}
	a.Status = status
	a.LastError = lastError
	return nil
}

func (m *ApplicationRepo) SetScreening(ctx context.Context, id string, screeningJSON []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("application %s: %w", id, sql.ErrNoRows)
	}
	a.ScreeningJSON = append([]byte(nil), screeningJSON...)
	return nil
}

// WaitlistRepo keeps waitlist emails in memory.
type WaitlistRepo struct {
	mu      sync.Mutex
	seen    map[string]bool
	entries []models.WaitlistEntry
	AddErr  error
}

func (m *WaitlistRepo) AddToWaitlist(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AddErr != nil {
		return false, m.AddErr
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if m.seen[email] {
		return false, nil
	}
	m.seen[email] = true
	m.entries = append(m.entries, models.WaitlistEntry{ID: int64(len(m.entries) + 1), Email: email, Created: int64(len(m.entries) + 1)})
	return true, nil
}

func (m *WaitlistRepo) ListWaitlist(ctx context.Context, limit, offset int) ([]models.WaitlistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.WaitlistEntry(nil), m.entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return []models.WaitlistEntry{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (m *WaitlistRepo) CountWaitlist(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.entries)), nil
}
