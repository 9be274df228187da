package simulation

import (
	"github.com/arkilian/telemetrygen/internal/sampling"
	"github.com/arkilian/telemetrygen/pkg/types"
)

// AssignExperiment places every player into one variant of the run's single
// experiment (Control 50%, A 25%, B 25%), assigned at account creation.
func AssignExperiment(src *sampling.Source, players []types.Player, p Params) []types.Assignment {
	out := make([]types.Assignment, len(players))
	for i := range players {
		out[i] = types.Assignment{
			ExperimentName: p.ExperimentName,
			PlayerID:       players[i].PlayerID,
			Variant:        variantDist.Draw(src),
			AssignedAt:     players[i].CreatedAt,
		}
	}
	return out
}
