package models

import "time"

// Conference identifies one half of the playoff field
type Conference string

const (
	ConferenceA Conference = "A"
	ConferenceB Conference = "B"
)

// Conferences lists both conferences in slot order (A before B)
var Conferences = []Conference{ConferenceA, ConferenceB}

// Valid reports whether c is a known conference
func (c Conference) Valid() bool {
	return c == ConferenceA || c == ConferenceB
}

// Index returns 0 for conference A and 1 for conference B
func (c Conference) Index() int {
	if c == ConferenceB {
		return 1
	}
	return 0
}

// Round is a playoff round
type Round string

const (
	RoundWildcard   Round = "wildcard"
	RoundDivisional Round = "divisional"
	RoundConference Round = "conference"
	RoundFinal      Round = "final"
)

// Rounds lists every round in play order
var Rounds = []Round{RoundWildcard, RoundDivisional, RoundConference, RoundFinal}

// Index returns the round's position in play order, or -1 for an unknown round
func (r Round) Index() int {
	for i, round := range Rounds {
		if round == r {
			return i
		}
	}
	return -1
}

// Valid reports whether r is a known round
func (r Round) Valid() bool {
	return r.Index() >= 0
}

// SlotCount is the fixed number of games in the round
func (r Round) SlotCount() int {
	switch r {
	case RoundWildcard:
		return 6
	case RoundDivisional:
		return 4
	case RoundConference:
		return 2
	case RoundFinal:
		return 1
	}
	return 0
}

// SlotsPerConference is the number of games each conference plays in the round.
// The final is shared and returns 0.
func (r Round) SlotsPerConference() int {
	if r == RoundFinal {
		return 0
	}
	return r.SlotCount() / 2
}

// ConferenceForSlot maps a slot to the conference it belongs to.
// Conference A owns the first half of every round's slots.
func (r Round) ConferenceForSlot(slot int) (Conference, bool) {
	per := r.SlotsPerConference()
	if per == 0 || slot < 1 || slot > r.SlotCount() {
		return "", false
	}
	if slot <= per {
		return ConferenceA, true
	}
	return ConferenceB, true
}

// Next returns the round after r, or false for the final
func (r Round) Next() (Round, bool) {
	i := r.Index()
	if i < 0 || i+1 >= len(Rounds) {
		return "", false
	}
	return Rounds[i+1], true
}

// Previous returns the round feeding r, or false for the wildcard round
func (r Round) Previous() (Round, bool) {
	i := r.Index()
	if i <= 0 {
		return "", false
	}
	return Rounds[i-1], true
}

// TBD is the sentinel team name on placeholder games
const TBD = "TBD"

// SeedsPerConference is the number of playoff seeds in each conference
const SeedsPerConference = 7

// TotalGames is the number of games in a full bracket
const TotalGames = 13

// Seed is a team's rank within its conference for one season
type Seed struct {
	Season     int        `json:"season"`
	Conference Conference `json:"conference"`
	Rank       int        `json:"rank"`
	Team       string     `json:"team"`
}

// Game is one bracket slot
type Game struct {
	ID              string  `json:"id"`
	Season          int     `json:"season"`
	Round           Round   `json:"round"`
	Slot            int     `json:"slot"`
	HomeTeam        string  `json:"homeTeam"`
	AwayTeam        string  `json:"awayTeam"`
	HomeSeed        *int    `json:"homeSeed,omitempty"`
	AwaySeed        *int    `json:"awaySeed,omitempty"`
	Winner          *string `json:"winner,omitempty"`
	Completed       bool    `json:"completed"`
	IsActualMatchup bool    `json:"isActualMatchup"`
}

// HasTeam reports whether team is one of the game's two participants
func (g *Game) HasTeam(team string) bool {
	if team == "" || team == TBD {
		return false
	}
	return g.HomeTeam == team || g.AwayTeam == team
}

// Decided reports whether the game is completed with a winner
func (g *Game) Decided() bool {
	return g.Completed && g.Winner != nil
}

// Loser returns the team that did not win, if the game is decided
func (g *Game) Loser() (string, bool) {
	if !g.Decided() {
		return "", false
	}
	if *g.Winner == g.HomeTeam {
		return g.AwayTeam, true
	}
	return g.HomeTeam, true
}

// Clone returns a deep copy so callers cannot mutate shared pointers
func (g Game) Clone() Game {
	c := g
	c.HomeSeed = cloneInt(g.HomeSeed)
	c.AwaySeed = cloneInt(g.AwaySeed)
	if g.Winner != nil {
		w := *g.Winner
		c.Winner = &w
	}
	return c
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

// StringPtr returns a pointer to v
func StringPtr(v string) *string {
	return &v
}

// Contest is a prediction lobby over one season's bracket
type Contest struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Season    int       `json:"season"`
	Policy    string    `json:"policy"`
	CreatedAt time.Time `json:"createdAt"`
}

// Participant is a player entered in a contest
type Participant struct {
	ID        string    `json:"id"`
	ContestID string    `json:"contestId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Prediction is a participant's pick for one game.
// PredictedOpponent is optional and only used by the matchup-bonus policy.
type Prediction struct {
	ParticipantID     string    `json:"participantId"`
	GameID            string    `json:"gameId"`
	PredictedWinner   string    `json:"predictedWinner"`
	PredictedOpponent *string   `json:"predictedOpponent,omitempty"`
	SubmittedAt       time.Time `json:"submittedAt"`
}

// LeaderboardEntry is one ranked row of a contest leaderboard
type LeaderboardEntry struct {
	Rank             int     `json:"rank"`
	ParticipantID    string  `json:"participantId"`
	Name             string  `json:"name"`
	Score            float64 `json:"score"`
	SimpleScore      float64 `json:"simpleScore"`
	WeightedScore    float64 `json:"weightedScore"`
	CorrectCount     int     `json:"correctCount"`
	PendingCount     int     `json:"pendingCount"`
	TotalPredictions int     `json:"totalPredictions"`
}
