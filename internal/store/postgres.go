package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	generrors "github.com/arkilian/telemetrygen/internal/errors"
	"github.com/arkilian/telemetrygen/pkg/types"
	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

const (
	pgConnectTimeout = 5 * time.Second
	pgConnectRetries = 5
)

// PostgresSink bulk-loads rows into PostgreSQL with COPY.
type PostgresSink struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn, drops the generated tables if present and
// applies schema.
func OpenPostgres(ctx context.Context, dsn, schema string) (*PostgresSink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, generrors.NewStorageError(generrors.CodeOpenFailed, "invalid postgres DSN", err)
	}
	cfg.MaxConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, generrors.NewStorageError(generrors.CodeOpenFailed, "failed to create postgres pool", err)
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), pgConnectRetries), ctx)
	err = backoff.Retry(func() error {
		pingCtx, cancel := context.WithTimeout(ctx, pgConnectTimeout)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			logrus.Warnf("postgres ping failed: %v, retrying...", err)
			return err
		}
		return nil
	}, b)
	if err != nil {
		pool.Close()
		return nil, generrors.NewStorageError(generrors.CodeOpenFailed, fmt.Sprintf("postgres unreachable after %d attempts", pgConnectRetries), err)
	}

	tables := types.AllTables()
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+tables[i]+" CASCADE"); err != nil {
			pool.Close()
			return nil, generrors.NewStorageError(generrors.CodeOpenFailed, "failed to drop "+tables[i], err)
		}
	}
	for _, stmt := range SplitStatements(schema) {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, generrors.NewSchemaError(generrors.CodeSchemaApply, "failed to apply schema", err)
		}
	}

	return &PostgresSink{pool: pool}, nil
}

// WritePlayers copies the population.
func (s *PostgresSink) WritePlayers(ctx context.Context, players []types.Player) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return copyRows(ctx, tx, types.TablePlayers, playerColumns, len(players), func(i int) []interface{} {
			return playerValues(&players[i])
		})
	})
}

// WriteTeams copies teams, then memberships.
func (s *PostgresSink) WriteTeams(ctx context.Context, teams []types.Team, members []types.Membership) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := copyRows(ctx, tx, types.TableTeams, teamColumns, len(teams), func(i int) []interface{} {
			return teamValues(&teams[i])
		}); err != nil {
			return err
		}
		return copyRows(ctx, tx, types.TableTeamMemberships, membershipColumns, len(members), func(i int) []interface{} {
			return membershipValues(&members[i])
		})
	})
}

// WriteAssignments copies experiment assignments.
func (s *PostgresSink) WriteAssignments(ctx context.Context, assignments []types.Assignment) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		return copyRows(ctx, tx, types.TableExperimentAssignments, assignmentColumns, len(assignments), func(i int) []interface{} {
			return assignmentValues(&assignments[i])
		})
	})
}

// WriteActivity copies one batch.
func (s *PostgresSink) WriteActivity(ctx context.Context, batch *Batch) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if err := copyRows(ctx, tx, types.TableSessions, sessionColumns, len(batch.Sessions), func(i int) []interface{} {
			return sessionValues(&batch.Sessions[i])
		}); err != nil {
			return err
		}
		if err := copyRows(ctx, tx, types.TableEvents, eventColumns, len(batch.Events), func(i int) []interface{} {
			return eventValues(&batch.Events[i])
		}); err != nil {
			return err
		}
		return copyRows(ctx, tx, types.TablePurchases, purchaseColumns, len(batch.Purchases), func(i int) []interface{} {
			return purchaseValues(&batch.Purchases[i])
		})
	})
}

// UpdatePlayerProgress sends the level and spend updates as one batch.
func (s *PostgresSink) UpdatePlayerProgress(ctx context.Context, players []types.Player) error {
	batch := &pgx.Batch{}
	for i := range players {
		p := &players[i]
		if !progressed(p) {
			continue
		}
		batch.Queue("UPDATE players SET level = $1, total_spend_eur = $2 WHERE player_id = $3",
			p.Level, p.TotalSpendCents, p.PlayerID)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return classifyPg(types.TablePlayers, err)
	}
	return nil
}

// Close closes the pool.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresSink) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return generrors.NewStorageError(generrors.CodeWriteFailed, "failed to begin transaction", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classifyPg("commit", err)
	}
	return nil
}

func copyRows(ctx context.Context, tx pgx.Tx, table string, columns []string, n int, values func(i int) []interface{}) error {
	if n == 0 {
		return nil
	}
	src := pgx.CopyFromSlice(n, func(i int) ([]any, error) {
		return values(i), nil
	})
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, src); err != nil {
		return classifyPg(table, err)
	}
	return nil
}

// classifyPg maps SQLSTATE class 23 (integrity constraint violation) to
// CONSTRAINT.
func classifyPg(table string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) == 5 && pgErr.Code[:2] == "23" {
		return generrors.NewStorageError(generrors.CodeConstraint, fmt.Sprintf("constraint violated in %s", table), err)
	}
	return generrors.NewStorageError(generrors.CodeWriteFailed, fmt.Sprintf("failed to write %s", table), err)
}
