package players

import (
	"sort"

	"github.com/openleague/draftroom/go/internal/models"
)

// Less orders players the way the board does: ADP ascending, unranked last,
// ID as the tiebreak. Matches the ORDER BY used in ListAvailable so in-memory
// sorts agree with query results.
func Less(a, b *models.Player) bool {
	switch {
	case a.ADP != nil && b.ADP != nil:
		if *a.ADP != *b.ADP {
			return *a.ADP < *b.ADP
		}
	case a.ADP != nil:
		return true
	case b.ADP != nil:
		return false
	}
	return a.ID < b.ID
}

// SortByRank sorts players in place into board order.
func SortByRank(list []models.Player) {
	sort.SliceStable(list, func(i, j int) bool {
		return Less(&list[i], &list[j])
	})
}

// FilterEligible returns the players belonging to at least one of the given
// pools, preserving input order. An empty pool list means the default
// veteran+rookie pool.
func FilterEligible(list []models.Player, pools []models.PlayerPool) []models.Player {
	if len(pools) == 0 {
		pools = models.DraftSettings{}.EffectivePool()
	}
	out := make([]models.Player, 0, len(list))
	for _, p := range list {
		for _, pool := range pools {
			if p.InPool(pool) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
