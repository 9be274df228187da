package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	generrors "github.com/arkilian/telemetrygen/internal/errors"
	"github.com/arkilian/telemetrygen/pkg/types"
	"github.com/mattn/go-sqlite3"
)

// offlinePragmas trade durability for load speed. The database is rebuilt
// from scratch on every run.
var offlinePragmas = []string{
	"PRAGMA journal_mode = OFF",
	"PRAGMA synchronous = OFF",
	"PRAGMA temp_store = MEMORY",
	"PRAGMA cache_size = -200000",
}

// SQLiteSink writes into a single SQLite database file.
type SQLiteSink struct {
	path string
	db   *sql.DB
}

// OpenSQLite replaces any database at path with a fresh one initialized from
// schema, with foreign keys enforced.
func OpenSQLite(ctx context.Context, path, schema string) (*SQLiteSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, generrors.NewStorageError(generrors.CodeOpenFailed, "failed to create database directory", err)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, generrors.NewStorageError(generrors.CodeOpenFailed, "failed to remove previous database", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, generrors.NewStorageError(generrors.CodeOpenFailed, "failed to open SQLite database", err)
	}
	// A single connection keeps the per-connection pragmas in effect.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, generrors.NewStorageError(generrors.CodeOpenFailed, "failed to enable foreign keys", err)
	}
	for _, pragma := range offlinePragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, generrors.NewStorageError(generrors.CodeOpenFailed, fmt.Sprintf("failed to apply %q", pragma), err)
		}
	}

	for _, stmt := range SplitStatements(schema) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, generrors.NewSchemaError(generrors.CodeSchemaApply, "failed to apply schema", err)
		}
	}

	return &SQLiteSink{path: path, db: db}, nil
}

// Path returns the database file path.
func (s *SQLiteSink) Path() string {
	return s.path
}

// DB exposes the underlying handle for read-back.
func (s *SQLiteSink) DB() *sql.DB {
	return s.db
}

// WritePlayers inserts the population in one transaction.
func (s *SQLiteSink) WritePlayers(ctx context.Context, players []types.Player) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insertRows(ctx, tx, types.TablePlayers, playerColumns, len(players), func(i int) []interface{} {
			return playerValues(&players[i])
		})
	})
}

// WriteTeams inserts teams, then memberships, in one transaction.
func (s *SQLiteSink) WriteTeams(ctx context.Context, teams []types.Team, members []types.Membership) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertRows(ctx, tx, types.TableTeams, teamColumns, len(teams), func(i int) []interface{} {
			return teamValues(&teams[i])
		}); err != nil {
			return err
		}
		return insertRows(ctx, tx, types.TableTeamMemberships, membershipColumns, len(members), func(i int) []interface{} {
			return membershipValues(&members[i])
		})
	})
}

// WriteAssignments inserts experiment assignments in one transaction.
func (s *SQLiteSink) WriteAssignments(ctx context.Context, assignments []types.Assignment) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insertRows(ctx, tx, types.TableExperimentAssignments, assignmentColumns, len(assignments), func(i int) []interface{} {
			return assignmentValues(&assignments[i])
		})
	})
}

// WriteActivity inserts one batch in one transaction.
func (s *SQLiteSink) WriteActivity(ctx context.Context, batch *Batch) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := insertRows(ctx, tx, types.TableSessions, sessionColumns, len(batch.Sessions), func(i int) []interface{} {
			return sessionValues(&batch.Sessions[i])
		}); err != nil {
			return err
		}
		if err := insertRows(ctx, tx, types.TableEvents, eventColumns, len(batch.Events), func(i int) []interface{} {
			return eventValues(&batch.Events[i])
		}); err != nil {
			return err
		}
		return insertRows(ctx, tx, types.TablePurchases, purchaseColumns, len(batch.Purchases), func(i int) []interface{} {
			return purchaseValues(&batch.Purchases[i])
		})
	})
}

// UpdatePlayerProgress writes back level and total spend.
func (s *SQLiteSink) UpdatePlayerProgress(ctx context.Context, players []types.Player) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, "UPDATE players SET level = ?, total_spend_eur = ? WHERE player_id = ?")
		if err != nil {
			return generrors.NewStorageError(generrors.CodeWriteFailed, "failed to prepare progress update", err)
		}
		defer stmt.Close()

		for i := range players {
			p := &players[i]
			if !progressed(p) {
				continue
			}
			if _, err := stmt.ExecContext(ctx, p.Level, p.TotalSpendCents, p.PlayerID); err != nil {
				return classify(types.TablePlayers, err)
			}
		}
		return nil
	})
}

// Close closes the database.
func (s *SQLiteSink) Close() error {
	if err := s.db.Close(); err != nil {
		return generrors.NewStorageError(generrors.CodeWriteFailed, "failed to close SQLite database", err)
	}
	return nil
}

func (s *SQLiteSink) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return generrors.NewStorageError(generrors.CodeWriteFailed, "failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

func insertRows(ctx context.Context, tx *sql.Tx, table string, columns []string, n int, values func(i int) []interface{}) error {
	if n == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL(table, columns))
	if err != nil {
		return generrors.NewStorageError(generrors.CodeWriteFailed, fmt.Sprintf("failed to prepare insert into %s", table), err)
	}
	defer stmt.Close()

	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, values(i)...); err != nil {
			return classify(table, err)
		}
	}
	return nil
}

// classify maps constraint violations to CONSTRAINT and everything else to
// WRITE_FAILED.
func classify(table string, err error) error {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return generrors.NewStorageError(generrors.CodeConstraint, fmt.Sprintf("constraint violated in %s", table), err)
	}
	return generrors.NewStorageError(generrors.CodeWriteFailed, fmt.Sprintf("failed to write %s", table), err)
}
