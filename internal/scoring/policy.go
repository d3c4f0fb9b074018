package scoring

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
)

// Policy selects how a contest turns correct picks into points
type Policy string

const (
	// PolicySimple awards one point per correct pick.
	PolicySimple Policy = "simple"
	// PolicyWeighted awards the round weight per correct pick.
	PolicyWeighted Policy = "weighted"
	// PolicyBoth ranks by simple score and breaks ties on weighted score.
	PolicyBoth Policy = "both"
	// PolicyMatchupBonus scales the round weight by whether the predicted opponent was right.
	PolicyMatchupBonus Policy = "matchup_bonus"
)

// DefaultPolicy is used for contests created without an explicit policy
const DefaultPolicy = PolicyBoth

var (
	bonusCorrectOpponent = decimal.RequireFromString("1.5")
	bonusWrongOpponent   = decimal.RequireFromString("0.75")
)

// ParsePolicy accepts the policy names used in the API. Empty means DefaultPolicy.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case "":
		return DefaultPolicy, nil
	case PolicySimple, PolicyWeighted, PolicyBoth, PolicyMatchupBonus:
		return p, nil
	case "matchup-bonus":
		return PolicyMatchupBonus, nil
	}
	return "", models.Validationf("unknown scoring policy %q (valid: simple, weighted, both, matchup_bonus)", s)
}

// Weights maps each round to the points a correct pick is worth
type Weights map[models.Round]decimal.Decimal

// DefaultWeights is wildcard=1, divisional=2, conference=3, final=5
func DefaultWeights() Weights {
	return Weights{
		models.RoundWildcard:   decimal.NewFromInt(1),
		models.RoundDivisional: decimal.NewFromInt(2),
		models.RoundConference: decimal.NewFromInt(3),
		models.RoundFinal:      decimal.NewFromInt(5),
	}
}

// ParseWeights reads a comma separated list of four weights in round order, e.g. "1,2,3,5"
func ParseWeights(s string) (Weights, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultWeights(), nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != len(models.Rounds) {
		return nil, fmt.Errorf("expected %d weights, got %d", len(models.Rounds), len(parts))
	}
	w := Weights{}
	for i, part := range parts {
		d, err := decimal.NewFromString(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("weight %d: %w", i+1, err)
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("weight %d must not be negative", i+1)
		}
		w[models.Rounds[i]] = d
	}
	return w, nil
}

// For returns the weight of a round, or zero for an unknown round
func (w Weights) For(round models.Round) decimal.Decimal {
	if d, ok := w[round]; ok {
		return d
	}
	return decimal.Zero
}

// String renders the weights in round order
func (w Weights) String() string {
	parts := make([]string, len(models.Rounds))
	for i, r := range models.Rounds {
		parts[i] = w.For(r).String()
	}
	return strings.Join(parts, ",")
}
