package manifest

import (
	"context"

	generrors "github.com/arkilian/telemetrygen/internal/errors"
	"github.com/arkilian/telemetrygen/internal/store"
	"github.com/arkilian/telemetrygen/pkg/types"
)

// Recorder is a store.Sink decorator that tracks what reaches the inner sink.
// Rows are only recorded after the inner write succeeds.
type Recorder struct {
	inner  store.Sink
	tables map[string]*tableTracker
}

// NewRecorder wraps inner.
func NewRecorder(inner store.Sink) *Recorder {
	r := &Recorder{inner: inner, tables: make(map[string]*tableTracker)}
	for _, name := range types.AllTables() {
		r.tables[name] = newTableTracker()
	}
	return r
}

// Inner returns the wrapped sink.
func (r *Recorder) Inner() store.Sink {
	return r.inner
}

func (r *Recorder) WritePlayers(ctx context.Context, players []types.Player) error {
	if err := r.inner.WritePlayers(ctx, players); err != nil {
		return err
	}
	t := r.tables[types.TablePlayers]
	for i := range players {
		if err := t.update(players[i].PlayerID, players[i].CreatedAt, &players[i]); err != nil {
			return fingerprintError(err)
		}
	}
	return nil
}

func (r *Recorder) WriteTeams(ctx context.Context, teams []types.Team, members []types.Membership) error {
	if err := r.inner.WriteTeams(ctx, teams, members); err != nil {
		return err
	}
	tt := r.tables[types.TableTeams]
	for i := range teams {
		if err := tt.update(teams[i].TeamID, teams[i].CreatedAt, &teams[i]); err != nil {
			return fingerprintError(err)
		}
	}
	mt := r.tables[types.TableTeamMemberships]
	for i := range members {
		if err := mt.update(members[i].MembershipID, members[i].JoinedAt, &members[i]); err != nil {
			return fingerprintError(err)
		}
	}
	return nil
}

// WriteAssignments tracks assignments by player id.
func (r *Recorder) WriteAssignments(ctx context.Context, assignments []types.Assignment) error {
	if err := r.inner.WriteAssignments(ctx, assignments); err != nil {
		return err
	}
	t := r.tables[types.TableExperimentAssignments]
	for i := range assignments {
		if err := t.update(assignments[i].PlayerID, assignments[i].AssignedAt, &assignments[i]); err != nil {
			return fingerprintError(err)
		}
	}
	return nil
}

func (r *Recorder) WriteActivity(ctx context.Context, batch *store.Batch) error {
	if err := r.inner.WriteActivity(ctx, batch); err != nil {
		return err
	}
	st := r.tables[types.TableSessions]
	for i := range batch.Sessions {
		s := &batch.Sessions[i]
		if err := st.update(s.SessionID, s.Start, s); err != nil {
			return fingerprintError(err)
		}
	}
	et := r.tables[types.TableEvents]
	for i := range batch.Events {
		e := &batch.Events[i]
		if err := et.update(e.EventID, e.Time, e); err != nil {
			return fingerprintError(err)
		}
	}
	pt := r.tables[types.TablePurchases]
	for i := range batch.Purchases {
		p := &batch.Purchases[i]
		if err := pt.update(p.PurchaseID, p.Time, p); err != nil {
			return fingerprintError(err)
		}
	}
	return nil
}

// UpdatePlayerProgress is forwarded as is; the player fingerprint covers the
// rows as first inserted.
func (r *Recorder) UpdatePlayerProgress(ctx context.Context, players []types.Player) error {
	return r.inner.UpdatePlayerProgress(ctx, players)
}

func (r *Recorder) Close() error {
	return r.inner.Close()
}

// Tables returns the current stats of every table.
func (r *Recorder) Tables() map[string]TableStats {
	out := make(map[string]TableStats, len(r.tables))
	for name, t := range r.tables {
		out[name] = t.stats()
	}
	return out
}

func fingerprintError(err error) error {
	return generrors.NewInternalError("failed to encode row for fingerprint", err)
}
