//go:build cgo_sqlite
// +build cgo_sqlite

package storage

// This file is compiled when building with CGO and the cgo_sqlite tag.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "cgo_sqlite,fts5" ./...
//
// The CGO build uses the C SQLite implementation:
//   - Fast FTS5 full-text queries
//   - Recommended for production deployments
//
// Driver used: github.com/mattn/go-sqlite3

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
