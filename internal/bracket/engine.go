package bracket

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
)

// GatePolicy decides when a round counts as finished for re-seeding
type GatePolicy string

const (
	// GateRound waits for every game in the round, both conferences.
	GateRound GatePolicy = "round"
	// GateConference advances each conference as soon as its own half is decided.
	// The final still needs both conference champions.
	GateConference GatePolicy = "conference"
)

// ParseGatePolicy parses GATE_POLICY values. Empty means GateRound.
func ParseGatePolicy(s string) (GatePolicy, error) {
	switch GatePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", GateRound:
		return GateRound, nil
	case GateConference:
		return GateConference, nil
	}
	return "", fmt.Errorf("unknown gate policy %q (valid: round, conference)", s)
}

// Result describes what one Reseed pass changed
type Result struct {
	// Revealed are placeholders that became real matchups.
	Revealed []string `json:"revealed,omitempty"`
	// Changed are real matchups whose team pair was replaced.
	Changed []string `json:"changed,omitempty"`
	// Invalidated are games whose winner was cleared by the cascade.
	Invalidated []string `json:"invalidated,omitempty"`
}

// Empty reports whether the pass left the bracket untouched
func (r Result) Empty() bool {
	return len(r.Revealed) == 0 && len(r.Changed) == 0 && len(r.Invalidated) == 0
}

func (r *Result) merge(o Result) {
	r.Revealed = append(r.Revealed, o.Revealed...)
	r.Changed = append(r.Changed, o.Changed...)
	r.Invalidated = append(r.Invalidated, o.Invalidated...)
}

// Engine recomputes later-round matchups from the seeds and the winners recorded so far.
type Engine struct {
	gate GatePolicy
}

// NewEngine returns an engine using the given gate policy
func NewEngine(gate GatePolicy) *Engine {
	if gate == "" {
		gate = GateRound
	}
	return &Engine{gate: gate}
}

// Gate returns the engine's gate policy
func (e *Engine) Gate() GatePolicy { return e.gate }

type rankedTeam struct {
	team string
	rank int
}

// Reseed walks the rounds in order and writes every matchup that is now
// determined. Matchup correctness is a pure function of the seeds and the
// upstream winners, so running it again without new results changes nothing.
func (e *Engine) Reseed(b *Bracket, seeds []models.Seed) (Result, error) {
	var res Result
	if err := b.Validate(); err != nil {
		return res, err
	}
	table := NewSeedTable(seeds)

	// wildcard -> divisional: bye team hosts the worst remaining seed,
	// the two middle seeds meet in the second slot.
	for _, conf := range models.Conferences {
		if !e.RoundReady(b, models.RoundWildcard, conf) {
			continue
		}
		winners, err := rankedWinners(b, table, models.RoundWildcard, conf)
		if err != nil {
			return res, err
		}
		if len(winners) != 3 {
			return res, models.Consistencyf("conference %s has %d wildcard winners, want 3", conf, len(winners))
		}
		bye, ok := table.Team(conf, 1)
		if !ok {
			return res, models.Consistencyf("conference %s has no top seed", conf)
		}
		base := conf.Index() * models.RoundDivisional.SlotsPerConference()
		r1, err := e.ApplyMatchup(b, models.RoundDivisional, base+1, pairing(rankedTeam{bye, 1}, winners[2]))
		if err != nil {
			return res, err
		}
		res.merge(r1)
		r2, err := e.ApplyMatchup(b, models.RoundDivisional, base+2, pairing(winners[0], winners[1]))
		if err != nil {
			return res, err
		}
		res.merge(r2)
	}

	// divisional -> conference: better seed hosts.
	for _, conf := range models.Conferences {
		if !e.RoundReady(b, models.RoundDivisional, conf) {
			continue
		}
		winners, err := rankedWinners(b, table, models.RoundDivisional, conf)
		if err != nil {
			return res, err
		}
		if len(winners) != 2 {
			return res, models.Consistencyf("conference %s has %d divisional winners, want 2", conf, len(winners))
		}
		r, err := e.ApplyMatchup(b, models.RoundConference, conf.Index()+1, pairing(winners[0], winners[1]))
		if err != nil {
			return res, err
		}
		res.merge(r)
	}

	// conference -> final: conference A hosts, no re-seeding.
	if e.RoundReady(b, models.RoundConference, "") {
		a, err := rankedWinners(b, table, models.RoundConference, models.ConferenceA)
		if err != nil {
			return res, err
		}
		bw, err := rankedWinners(b, table, models.RoundConference, models.ConferenceB)
		if err != nil {
			return res, err
		}
		if len(a) != 1 || len(bw) != 1 {
			return res, models.Consistencyf("season %d needs one champion per conference", b.season)
		}
		r, err := e.ApplyMatchup(b, models.RoundFinal, 1, Matchup{
			Home:     a[0].team,
			Away:     bw[0].team,
			HomeSeed: models.IntPtr(a[0].rank),
			AwaySeed: models.IntPtr(bw[0].rank),
		})
		if err != nil {
			return res, err
		}
		res.merge(r)
	}

	return res, nil
}

// ApplyMatchup writes a computed matchup into a slot.
//
// Same teams on a real matchup: no-op, so re-recording an upstream winner
// never erases downstream progress. Same teams on a placeholder: the slot
// becomes real and keeps its (empty) result. Different teams: the slot takes
// the new pair, loses its result, and every game in every later round is
// cleared to be re-derived later.
func (e *Engine) ApplyMatchup(b *Bracket, round models.Round, slot int, m Matchup) (Result, error) {
	var res Result
	g := b.game(round, slot)
	if g == nil {
		return res, models.Consistencyf("season %d has no %s game in slot %d", b.season, round, slot)
	}

	wasActual := g.IsActualMatchup
	if g.HomeTeam == m.Home && g.AwayTeam == m.Away {
		if wasActual {
			return res, nil
		}
		if err := b.UpdateGameMatchup(round, slot, m); err != nil {
			return res, err
		}
		res.Revealed = append(res.Revealed, g.ID)
		return res, nil
	}

	if err := b.UpdateGameMatchup(round, slot, m); err != nil {
		return res, err
	}
	if wasActual {
		res.Changed = append(res.Changed, g.ID)
	} else {
		res.Revealed = append(res.Revealed, g.ID)
	}
	if b.clear(g) {
		res.Invalidated = append(res.Invalidated, g.ID)
	}
	res.Invalidated = append(res.Invalidated, b.ClearDownstreamWinners(round)...)
	return res, nil
}

// RoundReady reports whether round is finished for the purpose of advancing
// conf. Under GateRound, or when conf is empty, every game in the round must
// be decided.
func (e *Engine) RoundReady(b *Bracket, round models.Round, conf models.Conference) bool {
	found := 0
	for _, g := range b.games {
		if g.Round != round {
			continue
		}
		if e.gate == GateConference && conf != "" {
			if gc, ok := round.ConferenceForSlot(g.Slot); ok && gc != conf {
				continue
			}
		}
		if !g.Decided() {
			return false
		}
		found++
	}
	return found > 0
}

// CanDecide reports whether a winner may be recorded for g. Placeholders and
// games whose feeding round is still open are rejected, since their matchup
// may still change.
func (e *Engine) CanDecide(b *Bracket, g models.Game) error {
	if !g.IsActualMatchup {
		return models.Validationf("game %s (%s slot %d) has no matchup yet", g.ID, g.Round, g.Slot)
	}
	prev, ok := g.Round.Previous()
	if !ok {
		return nil
	}
	conf, _ := g.Round.ConferenceForSlot(g.Slot)
	if !e.RoundReady(b, prev, conf) {
		return models.Validationf("game %s (%s slot %d) is waiting on the %s round", g.ID, g.Round, g.Slot, prev)
	}
	return nil
}

func rankedWinners(b *Bracket, table *SeedTable, round models.Round, conf models.Conference) ([]rankedTeam, error) {
	var out []rankedTeam
	for _, g := range b.games {
		if g.Round != round {
			continue
		}
		if gc, ok := round.ConferenceForSlot(g.Slot); !ok || gc != conf {
			continue
		}
		if !g.Decided() {
			continue
		}
		seedConf, rank, ok := table.Rank(*g.Winner)
		if !ok || seedConf != conf {
			return nil, models.Consistencyf("winner %s of %s slot %d has no seed in conference %s", *g.Winner, round, g.Slot, conf)
		}
		out = append(out, rankedTeam{team: *g.Winner, rank: rank})
	}
	slices.SortFunc(out, func(x, y rankedTeam) int {
		return cmp.Compare(x.rank, y.rank)
	})
	return out, nil
}

// pairing puts the better (lower) seed at home
func pairing(a, b rankedTeam) Matchup {
	if b.rank < a.rank {
		a, b = b, a
	}
	return Matchup{
		Home:     a.team,
		Away:     b.team,
		HomeSeed: models.IntPtr(a.rank),
		AwaySeed: models.IntPtr(b.rank),
	}
}
