// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/playkit/dtg/internal/item"
)

var (
	bucketItems = []byte("b_items")
	bucketTasks = []byte("b_tasks")
)

// BoltStore is a durable Store backed by a single bbolt database file. Tasks
// are keyed "<itemID>\x00<sourceURL>" within one shared bucket so DeleteItemTasks
// and ListTasks can use a prefix scan over the bucket's cursor.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if absent) a bbolt database at path and
// ensures its buckets exist.
func OpenBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketItems, bucketTasks} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init bolt buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Close() error { return b.db.Close() }

func taskKey(itemID, sourceURL string) []byte {
	return []byte(itemID + "\x00" + sourceURL)
}

func taskKeyPrefix(itemID string) []byte {
	return []byte(itemID + "\x00")
}

func (b *BoltStore) InsertTasks(ctx context.Context, itemID string, tasks []item.Task) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketTasks)
		c := bkt.Cursor()
		prefix := taskKeyPrefix(itemID)
		var stale [][]byte
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			cp := append([]byte(nil), k...)
			stale = append(stale, cp)
		}
		for _, k := range stale {
			if err := bkt.Delete(k); err != nil {
				return err
			}
		}
		for _, t := range tasks {
			val, err := json.Marshal(t)
			if err != nil {
				return err
			}
			if err := bkt.Put(taskKey(itemID, t.SourceURL), val); err != nil {
				return err
			}
		}
		return nil
	})
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (b *BoltStore) ListTasks(ctx context.Context, itemID string) ([]item.Task, error) {
	var out []item.Task
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketTasks).Cursor()
		prefix := taskKeyPrefix(itemID)
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			var t item.Task
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			out = append(out, t)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (b *BoltStore) UpdateTask(ctx context.Context, task item.Task) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketTasks)
		key := taskKey(task.ItemID, task.SourceURL)
		if bkt.Get(key) == nil {
			return ErrNotFound
		}
		val, err := json.Marshal(task)
		if err != nil {
			return err
		}
		return bkt.Put(key, val)
	})
}

func (b *BoltStore) DeleteTask(ctx context.Context, itemID, sourceURL string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketTasks).Delete(taskKey(itemID, sourceURL))
	})
}

func (b *BoltStore) DeleteItemTasks(ctx context.Context, itemID string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketTasks)
		c := bkt.Cursor()
		prefix := taskKeyPrefix(itemID)
		var stale [][]byte
		for k, _ := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, _ = c.Next() {
			cp := append([]byte(nil), k...)
			stale = append(stale, cp)
		}
		for _, k := range stale {
			if err := bkt.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *BoltStore) PutItem(ctx context.Context, it *item.Item) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		val, err := json.Marshal(it)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketItems).Put([]byte(it.ID), val)
	})
}

func (b *BoltStore) GetItem(ctx context.Context, itemID string) (*item.Item, error) {
	var it item.Item
	var found bool
	err := b.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket(bucketItems).Get([]byte(itemID))
		if val == nil {
			return nil
		}
		found = true
		return json.Unmarshal(val, &it)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return &it, nil
}

func (b *BoltStore) DeleteItem(ctx context.Context, itemID string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketItems).Delete([]byte(itemID))
	})
}

func (b *BoltStore) ListItemsByState(ctx context.Context, state item.State) ([]*item.Item, error) {
	var out []*item.Item
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketItems).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var it item.Item
			if err := json.Unmarshal(v, &it); err != nil {
				return err
			}
			if it.State == state {
				cp := it
				out = append(out, &cp)
			}
		}
		return nil
	})
	return out, err
}
