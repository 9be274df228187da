// Package store persists generated rows into a relational store.
package store

import (
	"context"

	"github.com/arkilian/telemetrygen/pkg/types"
)

// Sink receives generated rows. A sink has exactly one producer; none of the
// implementations are safe for concurrent use.
type Sink interface {
	// WritePlayers inserts the population.
	WritePlayers(ctx context.Context, players []types.Player) error

	// WriteTeams inserts teams and their memberships.
	WriteTeams(ctx context.Context, teams []types.Team, members []types.Membership) error

	// WriteAssignments inserts experiment assignments.
	WriteAssignments(ctx context.Context, assignments []types.Assignment) error

	// WriteActivity inserts one flushed batch of sessions, events and purchases.
	// Sessions are written before the events and purchases that reference them.
	WriteActivity(ctx context.Context, batch *Batch) error

	// UpdatePlayerProgress stores the final level and spend of every player
	// whose values moved away from the initial ones.
	UpdatePlayerProgress(ctx context.Context, players []types.Player) error

	// Close releases the underlying connection.
	Close() error
}

// Batch is a set of activity rows flushed together.
type Batch struct {
	Sessions  []types.Session
	Events    []types.Event
	Purchases []types.Purchase
}

// Len returns the combined row count.
func (b *Batch) Len() int {
	return len(b.Sessions) + len(b.Events) + len(b.Purchases)
}

// reset empties the batch while keeping its capacity.
func (b *Batch) reset() {
	b.Sessions = b.Sessions[:0]
	b.Events = b.Events[:0]
	b.Purchases = b.Purchases[:0]
}

// progressed reports whether a player's level or spend changed during the run.
func progressed(p *types.Player) bool {
	return p.Level != 1 || p.TotalSpendCents != 0
}

// nullString maps the empty string to SQL NULL.
func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
