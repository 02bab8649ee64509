//go:build cgo

package store

import _ "github.com/mattn/go-sqlite3"

// defaultDriver prefers the cgo SQLite build when it is available.
const defaultDriver = DriverCGO
