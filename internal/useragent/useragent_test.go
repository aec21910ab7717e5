// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package useragent

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	require.Equal(t, "playkit-dtg/linux-1.2.3", Build("1.2.3", "linux"))
}

func TestBuild_DefaultsPlatformToGOOS(t *testing.T) {
	got := Build("1.0.0", "")
	require.Equal(t, "playkit-dtg/"+runtime.GOOS+"-1.0.0", got)
}

func TestBuild_DefaultsVersionWhenEmpty(t *testing.T) {
	got := Build("", "linux")
	require.Equal(t, "playkit-dtg/linux-dev", got)
}
