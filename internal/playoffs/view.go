package playoffs

import (
	"github.com/ZBugge/nfl-playoff-predictor/internal/bracket"
	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
)

// BracketView is the wire shape of a bracket shared by the HTTP and gRPC APIs
type BracketView struct {
	Season  int           `json:"season"`
	Version int64         `json:"version"`
	Games   []models.Game `json:"games"`
}

// View renders a bracket for transport
func View(b *bracket.Bracket) BracketView {
	return BracketView{Season: b.Season(), Version: b.Version(), Games: b.Games()}
}
