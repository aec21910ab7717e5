// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/playkit/dtg/internal/item"
)

// MemoryStore is an in-memory Store intended for tests and local iteration.
// Not durable: all state is lost on process exit.
type MemoryStore struct {
	mu sync.RWMutex

	// tasks[itemID][sourceURL] = task
	tasks map[string]map[string]item.Task
	items map[string]*item.Item
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tasks: make(map[string]map[string]item.Task),
		items: make(map[string]*item.Item),
	}
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) InsertTasks(ctx context.Context, itemID string, tasks []item.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byURL := make(map[string]item.Task, len(tasks))
	for _, t := range tasks {
		byURL[t.SourceURL] = t
	}
	m.tasks[itemID] = byURL
	return nil
}

func (m *MemoryStore) ListTasks(ctx context.Context, itemID string) ([]item.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byURL := m.tasks[itemID]
	out := make([]item.Task, 0, len(byURL))
	for _, t := range byURL {
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *MemoryStore) UpdateTask(ctx context.Context, task item.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byURL, ok := m.tasks[task.ItemID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := byURL[task.SourceURL]; !ok {
		return ErrNotFound
	}
	byURL[task.SourceURL] = task
	return nil
}

func (m *MemoryStore) DeleteTask(ctx context.Context, itemID, sourceURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	byURL, ok := m.tasks[itemID]
	if !ok {
		return nil
	}
	delete(byURL, sourceURL)
	return nil
}

func (m *MemoryStore) DeleteItemTasks(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tasks, itemID)
	return nil
}

func (m *MemoryStore) PutItem(ctx context.Context, it *item.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *it
	m.items[it.ID] = &cp
	return nil
}

func (m *MemoryStore) GetItem(ctx context.Context, itemID string) (*item.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.items[itemID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *it
	return &cp, nil
}

func (m *MemoryStore) DeleteItem(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, itemID)
	return nil
}

func (m *MemoryStore) ListItemsByState(ctx context.Context, state item.State) ([]*item.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*item.Item
	for _, it := range m.items {
		if it.State == state {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}
