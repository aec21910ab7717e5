// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/playkit/dtg/internal/config"
	"github.com/playkit/dtg/internal/item"
)

// Open constructs a Store for the given backend, rooted at dataDir (a
// directory; ignored for memory). bolt opens a single "store.db" file
// inside dataDir, badger owns the whole directory.
func Open(backend config.StoreBackend, dataDir string) (Store, error) {
	switch backend {
	case config.StoreBackendMemory, "":
		return NewMemoryStore(), nil
	case config.StoreBackendBolt:
		return OpenBoltStore(filepath.Join(dataDir, "store.db"))
	case config.StoreBackendBadger:
		return OpenBadgerStore(dataDir)
	default:
		return nil, fmt.Errorf("store: unknown backend %q", backend)
	}
}

func sortTasksByOrder(tasks []item.Task) {
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Order < tasks[j].Order })
}
