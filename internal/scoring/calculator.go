package scoring

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
)

// Outcome is the state of a single prediction against the current bracket
type Outcome string

const (
	OutcomeCorrect Outcome = "correct"
	OutcomeWrong   Outcome = "wrong"
	// OutcomePending covers games that are undecided, were invalidated by a
	// cascade, or no longer exist. Pending picks score zero but are not wrong.
	OutcomePending Outcome = "pending"
)

// GradedPrediction is a prediction with its current outcome and points
type GradedPrediction struct {
	models.Prediction
	Round   models.Round `json:"round,omitempty"`
	Outcome Outcome      `json:"outcome"`
	Points  float64      `json:"points"`
}

// Calculator scores predictions under one policy
type Calculator struct {
	policy  Policy
	weights Weights
}

// NewCalculator returns a calculator. Nil weights fall back to DefaultWeights.
func NewCalculator(policy Policy, weights Weights) *Calculator {
	if policy == "" {
		policy = DefaultPolicy
	}
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Calculator{policy: policy, weights: weights}
}

// Policy returns the calculator's policy
func (c *Calculator) Policy() Policy { return c.policy }

type tally struct {
	simple   decimal.Decimal
	weighted decimal.Decimal
	bonus    decimal.Decimal
	correct  int
	pending  int
	total    int
}

// Grade classifies one prediction and returns the points it earns under the
// simple, weighted and matchup-bonus rules.
func (c *Calculator) Grade(p models.Prediction, games map[string]models.Game) (Outcome, decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	g, ok := games[p.GameID]
	if !ok || !g.Decided() {
		return OutcomePending, decimal.Zero, decimal.Zero, decimal.Zero
	}
	if *g.Winner != p.PredictedWinner {
		return OutcomeWrong, decimal.Zero, decimal.Zero, decimal.Zero
	}

	weight := c.weights.For(g.Round)
	bonus := weight
	if p.PredictedOpponent != nil {
		loser, _ := g.Loser()
		if *p.PredictedOpponent == loser {
			bonus = weight.Mul(bonusCorrectOpponent)
		} else {
			bonus = weight.Mul(bonusWrongOpponent)
		}
	}
	return OutcomeCorrect, decimal.NewFromInt(1), weight, bonus
}

// GradeAll grades a list of predictions against the given games
func (c *Calculator) GradeAll(games []models.Game, predictions []models.Prediction) []GradedPrediction {
	byID := indexGames(games)
	out := make([]GradedPrediction, 0, len(predictions))
	for _, p := range predictions {
		outcome, simple, weighted, bonus := c.Grade(p, byID)
		gp := GradedPrediction{Prediction: p, Outcome: outcome}
		if g, ok := byID[p.GameID]; ok {
			gp.Round = g.Round
		}
		gp.Points = c.primary(simple, weighted, bonus).Round(2).InexactFloat64()
		out = append(out, gp)
	}
	return out
}

// Leaderboard ranks participants by the policy's score. Ties share a rank
// (1, 1, 3) and are listed by name.
func (c *Calculator) Leaderboard(games []models.Game, participants []models.Participant, predictions []models.Prediction) []models.LeaderboardEntry {
	byID := indexGames(games)

	tallies := make(map[string]*tally, len(participants))
	for _, p := range participants {
		tallies[p.ID] = &tally{}
	}

	for _, p := range predictions {
		t, ok := tallies[p.ParticipantID]
		if !ok {
			continue
		}
		t.total++
		outcome, simple, weighted, bonus := c.Grade(p, byID)
		switch outcome {
		case OutcomePending:
			t.pending++
		case OutcomeCorrect:
			t.correct++
			t.simple = t.simple.Add(simple)
			t.weighted = t.weighted.Add(weighted)
			t.bonus = t.bonus.Add(bonus)
		}
	}

	entries := make([]models.LeaderboardEntry, 0, len(participants))
	for _, p := range participants {
		t := tallies[p.ID]
		entries = append(entries, models.LeaderboardEntry{
			ParticipantID:    p.ID,
			Name:             p.Name,
			Score:            c.primary(t.simple, t.weighted, t.bonus).Round(2).InexactFloat64(),
			SimpleScore:      t.simple.Round(2).InexactFloat64(),
			WeightedScore:    t.weighted.Round(2).InexactFloat64(),
			CorrectCount:     t.correct,
			PendingCount:     t.pending,
			TotalPredictions: t.total,
		})
	}

	slices.SortStableFunc(entries, func(a, b models.LeaderboardEntry) int {
		if d := c.compareScores(a, b); d != 0 {
			return d
		}
		if d := cmp.Compare(a.Name, b.Name); d != 0 {
			return d
		}
		return cmp.Compare(a.ParticipantID, b.ParticipantID)
	})

	for i := range entries {
		if i > 0 && c.compareScores(entries[i-1], entries[i]) == 0 {
			entries[i].Rank = entries[i-1].Rank
			continue
		}
		entries[i].Rank = i + 1
	}

	return entries
}

// compareScores orders higher scores first
func (c *Calculator) compareScores(a, b models.LeaderboardEntry) int {
	if d := cmp.Compare(b.Score, a.Score); d != 0 {
		return d
	}
	if c.policy == PolicyBoth {
		return cmp.Compare(b.WeightedScore, a.WeightedScore)
	}
	return 0
}

func (c *Calculator) primary(simple, weighted, bonus decimal.Decimal) decimal.Decimal {
	switch c.policy {
	case PolicyWeighted:
		return weighted
	case PolicyMatchupBonus:
		return bonus
	default:
		return simple
	}
}

func indexGames(games []models.Game) map[string]models.Game {
	byID := make(map[string]models.Game, len(games))
	for _, g := range games {
		byID[g.ID] = g
	}
	return byID
}
