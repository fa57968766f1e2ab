package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ricirt/autoblog/internal/domain"
)

// MockQueueRepository is a hand-written, in-memory implementation of
// QueueRepository used in unit tests.
type MockQueueRepository struct {
	mu     sync.RWMutex
	items  map[int64]*domain.QueueItem
	nextID int64

	// Optional error overrides; set in tests to simulate failure paths.
	InsertErr error
	UpdateErr error
	GetErr    error
}

func NewMockQueueRepository() *MockQueueRepository {
	return &MockQueueRepository{items: make(map[int64]*domain.QueueItem)}
}

func (m *MockQueueRepository) Insert(_ context.Context, title string, opts domain.Options) (int64, error) {
	if m.InsertErr != nil {
		return 0, m.InsertErr
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, fmt.Errorf("%w: title is empty", domain.ErrValidation)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.items[m.nextID] = &domain.QueueItem{
		ID:        m.nextID,
		Title:     title,
		Options:   opts,
		Status:    domain.StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	return m.nextID, nil
}

func (m *MockQueueRepository) Update(_ context.Context, id int64, u domain.QueueUpdate) (bool, error) {
	if m.UpdateErr != nil {
		return false, m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return false, nil
	}
	u.Apply(item)
	return true, nil
}

func (m *MockQueueRepository) Get(_ context.Context, id int64) (*domain.QueueItem, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	clone := *item
	return &clone, nil
}

func (m *MockQueueRepository) List(_ context.Context, limit int) ([]*domain.QueueItem, error) {
	items := m.snapshot(func(*domain.QueueItem) bool { return true })
	slices.Reverse(items)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MockQueueRepository) Delete(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return false, nil
	}
	delete(m.items, id)
	return true, nil
}

func (m *MockQueueRepository) Claim(_ context.Context, id int64, startedAt time.Time, from ...domain.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || !slices.Contains(from, item.Status) {
		return false, nil
	}
	item.Status = domain.StatusGenerating
	item.StartedAt = &startedAt
	item.CompletedAt = nil
	item.ResultRef = nil
	item.ErrorMessage = nil
	return true, nil
}

func (m *MockQueueRepository) Transition(_ context.Context, id int64, from domain.Status, startedAt time.Time, u domain.QueueUpdate) (bool, error) {
	if m.UpdateErr != nil {
		return false, m.UpdateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.Status != from || item.StartedAt == nil || !item.StartedAt.Equal(startedAt) {
		return false, nil
	}
	u.Apply(item)
	return true, nil
}

func (m *MockQueueRepository) FindByStatus(_ context.Context, status domain.Status, afterID int64, limit int) ([]*domain.QueueItem, error) {
	items := m.snapshot(func(item *domain.QueueItem) bool { return item.Status == status && item.ID > afterID })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MockQueueRepository) FindStale(_ context.Context, cutoff time.Time, limit int) ([]*domain.QueueItem, error) {
	items := m.snapshot(func(item *domain.QueueItem) bool {
		return item.Status == domain.StatusGenerating && item.StartedAt != nil && item.StartedAt.Before(cutoff)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// snapshot returns clones of the matching items in ascending id order.
func (m *MockQueueRepository) snapshot(match func(*domain.QueueItem) bool) []*domain.QueueItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.QueueItem, 0, len(m.items))
	for _, item := range m.items {
		if match(item) {
			clone := *item
			result = append(result, &clone)
		}
	}
	slices.SortFunc(result, func(a, b *domain.QueueItem) int { return int(a.ID - b.ID) })
	return result
}
