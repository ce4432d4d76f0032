//go:build !cgo_sqlite
// +build !cgo_sqlite

package storage

// This file is compiled when building without CGO (the default).
//
// Build command:
//   CGO_ENABLED=0 go build ./...
//
// The pure Go implementation provides:
//   - No C compiler required
//   - Cross-platform compilation
//   - FTS5 support built in
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
