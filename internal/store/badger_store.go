// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"encoding/json"

	"github.com/dgraph-io/badger/v4"

	"github.com/playkit/dtg/internal/item"
)

// BadgerStore is a durable Store backed by a Badger key-value database.
// Keys follow "item:<id>" for item records and "task:<itemID>/<sourceURL>"
// for tasks, so a prefix iterator scans one item's tasks without touching
// any other item's.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (creating if absent) a Badger database at path.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func itemKey(id string) []byte { return []byte("item:" + id) }
func taskBadgerKey(itemID, sourceURL string) []byte {
	return []byte("task:" + itemID + "/" + sourceURL)
}
func taskBadgerPrefix(itemID string) []byte {
	return []byte("task:" + itemID + "/")
}

func (s *BadgerStore) InsertTasks(ctx context.Context, itemID string, tasks []item.Task) error {
	return s.db.Update(func(txn *badger.Txn) error {
		prefix := taskBadgerPrefix(itemID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := it.Item().KeyCopy(nil)
			stale = append(stale, k)
		}
		it.Close()
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		for _, t := range tasks {
			val, err := json.Marshal(t)
			if err != nil {
				return err
			}
			if err := txn.Set(taskBadgerKey(itemID, t.SourceURL), val); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) ListTasks(ctx context.Context, itemID string) ([]item.Task, error) {
	var out []item.Task
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := taskBadgerPrefix(itemID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var t item.Task
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &t)
			})
			if err != nil {
				return err
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortTasksByOrder(out)
	return out, nil
}

func (s *BadgerStore) UpdateTask(ctx context.Context, task item.Task) error {
	key := taskBadgerKey(task.ItemID, task.SourceURL)
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrNotFound
			}
			return err
		}
		val, err := json.Marshal(task)
		if err != nil {
			return err
		}
		return txn.Set(key, val)
	})
}

func (s *BadgerStore) DeleteTask(ctx context.Context, itemID, sourceURL string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(taskBadgerKey(itemID, sourceURL))
	})
}

func (s *BadgerStore) DeleteItemTasks(ctx context.Context, itemID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		prefix := taskBadgerPrefix(itemID)
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		var stale [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			stale = append(stale, it.Item().KeyCopy(nil))
		}
		it.Close()
		for _, k := range stale {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BadgerStore) PutItem(ctx context.Context, it *item.Item) error {
	val, err := json.Marshal(it)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(itemKey(it.ID), val)
	})
}

func (s *BadgerStore) GetItem(ctx context.Context, itemID string) (*item.Item, error) {
	var out item.Item
	err := s.db.View(func(txn *badger.Txn) error {
		dbItem, err := txn.Get(itemKey(itemID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return ErrNotFound
			}
			return err
		}
		return dbItem.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) DeleteItem(ctx context.Context, itemID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(itemKey(itemID))
	})
}

func (s *BadgerStore) ListItemsByState(ctx context.Context, state item.State) ([]*item.Item, error) {
	var out []*item.Item
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte("item:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec item.Item
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return err
			}
			if rec.State == state {
				cp := rec
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}
