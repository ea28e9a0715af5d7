// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// pseudonymPrefix namespaces generated ids so they are recognizable
// in exports and cannot collide with platform UUIDs.
const pseudonymPrefix = "flowmirror-id-"

const schema = `
CREATE TABLE IF NOT EXISTS identities (
    external_id TEXT PRIMARY KEY,
    pseudonym   TEXT NOT NULL UNIQUE
) STRICT;
`

// Table is a durable external-id to pseudonym mapping backed by
// SQLite. Safe for concurrent use; each operation borrows its own
// connection from the pool.
type Table struct {
	pool   *sqlitex.Pool
	logger *slog.Logger
	path   string
}

// Open opens the table at path, creating the database and schema if
// needed. Use ":memory:" for tests. The caller must Close.
func Open(path string, logger *slog.Logger) (*Table, error) {
	if path == "" {
		return nil, fmt.Errorf("identity: path is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	poolSize := 4
	poolPath := path
	if path == ":memory:" {
		// In-memory connections are independent databases; a pool
		// of one keeps them coherent. sqlitex.NewPool rejects the
		// bare ":memory:" spelling, so pass the URI form it requires.
		poolSize = 1
		poolPath = "file::memory:?mode=memory&cache=shared"
	}

	pool, err := sqlitex.NewPool(poolPath, sqlitex.PoolOptions{
		PoolSize: poolSize,
		PrepareConn: func(conn *sqlite.Conn) error {
			return prepareConnection(conn)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("identity: opening %s: %w", path, err)
	}

	logger.Info("identity table opened", "path", path)
	return &Table{pool: pool, logger: logger, path: path}, nil
}

func prepareConnection(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("identity: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("identity: creating schema: %w", err)
	}
	return nil
}

// Add returns the pseudonym for externalID, creating one on first
// sight. Re-adding an existing identifier returns the stored
// pseudonym, never a new one.
func (t *Table) Add(ctx context.Context, externalID string) (string, error) {
	if externalID == "" {
		return "", fmt.Errorf("identity: external id is empty")
	}

	conn, err := t.pool.Take(ctx)
	if err != nil {
		return "", fmt.Errorf("identity: take connection: %w", err)
	}
	defer t.pool.Put(conn)

	pseudonym := pseudonymPrefix + uuid.NewString()
	err = sqlitex.Execute(conn,
		`INSERT INTO identities (external_id, pseudonym) VALUES (?, ?)
		 ON CONFLICT (external_id) DO NOTHING`,
		&sqlitex.ExecOptions{Args: []any{externalID, pseudonym}})
	if err != nil {
		return "", fmt.Errorf("identity: inserting %s: %w", redact(externalID), err)
	}

	// Read back: the insert may have been a no-op against an
	// existing row.
	var stored string
	err = sqlitex.Execute(conn,
		`SELECT pseudonym FROM identities WHERE external_id = ?`,
		&sqlitex.ExecOptions{
			Args: []any{externalID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				stored = stmt.ColumnText(0)
				return nil
			},
		})
	if err != nil {
		return "", fmt.Errorf("identity: looking up %s: %w", redact(externalID), err)
	}
	if stored == "" {
		return "", fmt.Errorf("identity: no pseudonym stored for %s", redact(externalID))
	}
	return stored, nil
}

// LookupBatch returns the pseudonyms for the given identifiers.
// Identifiers never added are absent from the result, not an error.
func (t *Table) LookupBatch(ctx context.Context, externalIDs []string) (map[string]string, error) {
	conn, err := t.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("identity: take connection: %w", err)
	}
	defer t.pool.Put(conn)

	found := make(map[string]string, len(externalIDs))
	for _, externalID := range externalIDs {
		err := sqlitex.Execute(conn,
			`SELECT pseudonym FROM identities WHERE external_id = ?`,
			&sqlitex.ExecOptions{
				Args: []any{externalID},
				ResultFunc: func(stmt *sqlite.Stmt) error {
					found[externalID] = stmt.ColumnText(0)
					return nil
				},
			})
		if err != nil {
			return nil, fmt.Errorf("identity: looking up %s: %w", redact(externalID), err)
		}
	}
	return found, nil
}

// Len returns the number of stored identities.
func (t *Table) Len(ctx context.Context) (int, error) {
	conn, err := t.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("identity: take connection: %w", err)
	}
	defer t.pool.Put(conn)

	count := 0
	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM identities`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			count = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("identity: counting: %w", err)
	}
	return count, nil
}

// Close closes the underlying pool. Blocks until borrowed connections
// are returned.
func (t *Table) Close() error {
	if err := t.pool.Close(); err != nil {
		return fmt.Errorf("identity: closing %s: %w", t.path, err)
	}
	t.logger.Info("identity table closed", "path", t.path)
	return nil
}

// redact keeps only a short suffix of an external id for error text.
func redact(externalID string) string {
	const visible = 3
	if len(externalID) <= visible {
		return "..." + externalID
	}
	return "..." + externalID[len(externalID)-visible:]
}
