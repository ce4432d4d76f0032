// Package storage provides SQLite-based persistence for indexed résumé data.
//
// Two logical structures are kept in one database file:
//   - documents: one metadata row per résumé file (filename is the unique key)
//   - documents_fts: an FTS5 projection of {filename, content, candidate_name}
//     with porter stemming and unicode61 tokenization
//
// The two are always written and deleted together inside a transaction, so a
// cleanup pass can never leave an orphaned full-text row behind.
//
// # Concurrency
//
// The database runs in WAL mode so searches (read-only) are not blocked by
// index writes. Transient "database is locked" contention is classified by
// IsBusy and retried by the indexer, never surfaced to search callers.
//
// # Build Tags
//
// Two drivers are supported, selected at build time:
//
// CGO build (cgo_sqlite tag), using github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags "cgo_sqlite,fts5" ./...
//
// Pure Go build (default), using modernc.org/sqlite:
//
//	CGO_ENABLED=0 go build ./...
package storage
