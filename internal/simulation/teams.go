package simulation

import (
	"github.com/arkilian/telemetrygen/internal/sampling"
	"github.com/arkilian/telemetrygen/pkg/types"
)

// maxJoinDelayDays bounds how long after account creation a player joins.
const maxJoinDelayDays = 60

// GenerateTeams partitions the population into teams with a tri-modal size
// distribution: tiny groups of 1–5, 25-player teams and 45-player guilds.
//
// The population is shuffled and consumed greedily; the last team takes
// whatever is left, so it may be below its capacity. Every player ends up in
// exactly one team and the first member of each team is its leader. The
// players slice is not reordered.
func GenerateTeams(src *sampling.Source, players []types.Player, p Params) ([]types.Team, []types.Membership) {
	order := make([]int, len(players))
	for i := range order {
		order[i] = i
	}
	src.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	var teams []types.Team
	members := make([]types.Membership, 0, len(players))
	nextTeamID := int64(1)
	nextMembershipID := int64(1)

	for i := 0; i < len(order); {
		spec := tierDist.Draw(src)
		capacity := spec.MaxCap
		if spec.MinCap != spec.MaxCap {
			capacity = src.IntBetween(spec.MinCap, spec.MaxCap)
		}
		size := min(capacity, len(order)-i)

		team := types.Team{
			TeamID:     nextTeamID,
			CreatedAt:  p.DayStart(src.IntBetween(0, p.LastDay())),
			Tier:       spec.Tier,
			MaxMembers: capacity,
		}
		teams = append(teams, team)

		for j := 0; j < size; j++ {
			pl := &players[order[i+j]]
			members = append(members, types.Membership{
				MembershipID: nextMembershipID,
				PlayerID:     pl.PlayerID,
				TeamID:       team.TeamID,
				JoinedAt:     pl.CreatedAt.AddDate(0, 0, src.IntBetween(0, maxJoinDelayDays)),
				IsLeader:     j == 0,
			})
			nextMembershipID++
		}

		nextTeamID++
		i += size
	}
	return teams, members
}
