// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package useragent builds the HTTP User-Agent string this module sends on
// every outbound fetch.
package useragent

import (
	"fmt"
	"runtime"
)

// Build returns "playkit-dtg/<platform>-<version>", the fixed shape every
// outbound GET must carry. platform defaults to runtime.GOOS when empty.
func Build(version, platform string) string {
	if platform == "" {
		platform = runtime.GOOS
	}
	if version == "" {
		version = "dev"
	}
	return fmt.Sprintf("playkit-dtg/%s-%s", platform, version)
}
