package dal

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
)

// newID returns a random identifier for contests and participants
func newID() string {
	return uuid.NewString()
}

// now is swapped in tests that need stable timestamps
var now = func() time.Time {
	return time.Now().UTC()
}

func sortSeeds(seeds []models.Seed) {
	slices.SortFunc(seeds, func(a, b models.Seed) int {
		if d := cmp.Compare(a.Conference, b.Conference); d != 0 {
			return d
		}
		return cmp.Compare(a.Rank, b.Rank)
	})
}
