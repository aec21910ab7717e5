// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resume

import (
	"fmt"
	"path/filepath"

	"github.com/playkit/dtg/internal/config"
)

// Open constructs a checkpoint Store for the given backend, rooted at
// dataDir (ignored for memory). With an empty dataDir the sqlite (default)
// backend yields a MemoryStore, since sqlite has nowhere durable to write;
// an unknown backend is an error whatever dataDir is.
func Open(backend config.ResumeBackend, dataDir string) (Store, error) {
	switch backend {
	case config.ResumeBackendMemory:
		return NewMemoryStore(), nil
	case config.ResumeBackendSqlite, "":
		if dataDir == "" {
			return NewMemoryStore(), nil
		}
		return NewSqliteStore(filepath.Join(dataDir, "resume.sqlite"))
	default:
		return nil, fmt.Errorf("resume: unknown backend %q", backend)
	}
}
