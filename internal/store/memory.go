package store

import (
	"context"

	"github.com/arkilian/telemetrygen/pkg/types"
)

// MemorySink keeps every written row in memory.
type MemorySink struct {
	Players     []types.Player
	Teams       []types.Team
	Memberships []types.Membership
	Assignments []types.Assignment
	Sessions    []types.Session
	Events      []types.Event
	Purchases   []types.Purchase

	// Batches records the row count of each WriteActivity call.
	Batches []int

	closed bool
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) WritePlayers(_ context.Context, players []types.Player) error {
	m.Players = append(m.Players, players...)
	return nil
}

func (m *MemorySink) WriteTeams(_ context.Context, teams []types.Team, members []types.Membership) error {
	m.Teams = append(m.Teams, teams...)
	m.Memberships = append(m.Memberships, members...)
	return nil
}

func (m *MemorySink) WriteAssignments(_ context.Context, assignments []types.Assignment) error {
	m.Assignments = append(m.Assignments, assignments...)
	return nil
}

func (m *MemorySink) WriteActivity(ctx context.Context, batch *Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.Sessions = append(m.Sessions, batch.Sessions...)
	m.Events = append(m.Events, batch.Events...)
	m.Purchases = append(m.Purchases, batch.Purchases...)
	m.Batches = append(m.Batches, batch.Len())
	return nil
}

func (m *MemorySink) UpdatePlayerProgress(_ context.Context, players []types.Player) error {
	byID := make(map[int64]int, len(m.Players))
	for i := range m.Players {
		byID[m.Players[i].PlayerID] = i
	}
	for i := range players {
		if j, ok := byID[players[i].PlayerID]; ok && progressed(&players[i]) {
			m.Players[j].Level = players[i].Level
			m.Players[j].TotalSpendCents = players[i].TotalSpendCents
		}
	}
	return nil
}

func (m *MemorySink) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *MemorySink) Closed() bool {
	return m.closed
}

// Counts returns the row count per table.
func (m *MemorySink) Counts() map[string]int {
	return map[string]int{
		types.TablePlayers:               len(m.Players),
		types.TableTeams:                 len(m.Teams),
		types.TableTeamMemberships:       len(m.Memberships),
		types.TableExperimentAssignments: len(m.Assignments),
		types.TableSessions:              len(m.Sessions),
		types.TableEvents:                len(m.Events),
		types.TablePurchases:             len(m.Purchases),
	}
}
