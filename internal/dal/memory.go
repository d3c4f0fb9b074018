package dal

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/ZBugge/nfl-playoff-predictor/internal/bracket"
	"github.com/ZBugge/nfl-playoff-predictor/internal/models"
)

type seedKey struct {
	conference models.Conference
	rank       int
}

// MemoryDAL implements PlayoffDAL using in-memory storage
type MemoryDAL struct {
	mu           sync.RWMutex
	seeds        map[int]map[seedKey]models.Seed
	games        map[int][]models.Game
	versions     map[int]int64
	contests     map[string]models.Contest
	participants map[string]models.Participant
	predictions  map[string]map[string]models.Prediction // participantID -> gameID -> prediction
}

// NewMemoryDAL creates a new in-memory data access layer
func NewMemoryDAL() *MemoryDAL {
	return &MemoryDAL{
		seeds:        make(map[int]map[seedKey]models.Seed),
		games:        make(map[int][]models.Game),
		versions:     make(map[int]int64),
		contests:     make(map[string]models.Contest),
		participants: make(map[string]models.Participant),
		predictions:  make(map[string]map[string]models.Prediction),
	}
}

func (m *MemoryDAL) SetSeed(ctx context.Context, seed models.Seed) (*models.Seed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.seeds[seed.Season] == nil {
		m.seeds[seed.Season] = make(map[seedKey]models.Seed)
	}
	m.seeds[seed.Season][seedKey{seed.Conference, seed.Rank}] = seed
	return &seed, nil
}

func (m *MemoryDAL) GetSeeds(ctx context.Context, season int) ([]models.Seed, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seeds := make([]models.Seed, 0, len(m.seeds[season]))
	for _, s := range m.seeds[season] {
		seeds = append(seeds, s)
	}
	sortSeeds(seeds)
	return seeds, nil
}

func (m *MemoryDAL) DeleteSeason(ctx context.Context, season int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.seeds, season)
	delete(m.games, season)
	delete(m.versions, season)
	return nil
}

func (m *MemoryDAL) ReplaceBracket(ctx context.Context, season int, games []models.Game) (*bracket.Bracket, error) {
	return m.ReplaceSeason(ctx, season, nil, games)
}

func (m *MemoryDAL) ReplaceSeason(ctx context.Context, season int, seeds []models.Seed, games []models.Game) (*bracket.Bracket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, seed := range seeds {
		if m.seeds[seed.Season] == nil {
			m.seeds[seed.Season] = make(map[seedKey]models.Seed)
		}
		m.seeds[seed.Season][seedKey{seed.Conference, seed.Rank}] = seed
	}

	stored := make([]models.Game, len(games))
	for i, g := range games {
		stored[i] = g.Clone()
	}
	m.games[season] = stored
	m.versions[season]++

	return bracket.New(season, m.versions[season], stored), nil
}

func (m *MemoryDAL) GetBracket(ctx context.Context, season int) (*bracket.Bracket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	games, ok := m.games[season]
	if !ok {
		return nil, models.NotFoundf("no bracket for season %d", season)
	}
	return bracket.New(season, m.versions[season], games), nil
}

func (m *MemoryDAL) UpdateBracket(ctx context.Context, season int, fn func(*bracket.Bracket) error) (*bracket.Bracket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	games, ok := m.games[season]
	if !ok {
		return nil, models.NotFoundf("no bracket for season %d", season)
	}

	// The bracket works on copies, so a failing fn leaves the store untouched.
	b := bracket.New(season, m.versions[season], games)
	if err := fn(b); err != nil {
		return nil, err
	}

	dirty := b.Dirty()
	if len(dirty) == 0 {
		return b, nil
	}

	changed := make(map[string]models.Game, len(dirty))
	for _, g := range dirty {
		changed[g.ID] = g
	}
	for i := range games {
		if g, ok := changed[games[i].ID]; ok {
			games[i] = g
		}
	}

	m.versions[season]++
	b.Committed(m.versions[season])
	return b, nil
}

func (m *MemoryDAL) FindGame(ctx context.Context, gameID string) (*models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, games := range m.games {
		for _, g := range games {
			if g.ID == gameID {
				c := g.Clone()
				return &c, nil
			}
		}
	}
	return nil, models.NotFoundf("game %s", gameID)
}

func (m *MemoryDAL) CreateContest(ctx context.Context, contest *models.Contest) (*models.Contest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if contest.ID == "" {
		contest.ID = newID()
	}
	if contest.CreatedAt.IsZero() {
		contest.CreatedAt = now()
	}
	m.contests[contest.ID] = *contest
	return contest, nil
}

func (m *MemoryDAL) GetContest(ctx context.Context, id string) (*models.Contest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contests[id]
	if !ok {
		return nil, models.NotFoundf("contest %s", id)
	}
	return &c, nil
}

func (m *MemoryDAL) ListContests(ctx context.Context) ([]models.Contest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	contests := make([]models.Contest, 0, len(m.contests))
	for _, c := range m.contests {
		contests = append(contests, c)
	}
	slices.SortFunc(contests, func(a, b models.Contest) int {
		if d := a.CreatedAt.Compare(b.CreatedAt); d != 0 {
			return d
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return contests, nil
}

func (m *MemoryDAL) AddParticipant(ctx context.Context, participant *models.Participant) (*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.contests[participant.ContestID]; !ok {
		return nil, models.NotFoundf("contest %s", participant.ContestID)
	}
	if participant.ID == "" {
		participant.ID = newID()
	}
	if participant.CreatedAt.IsZero() {
		participant.CreatedAt = now()
	}
	m.participants[participant.ID] = *participant
	return participant, nil
}

func (m *MemoryDAL) GetParticipant(ctx context.Context, id string) (*models.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.participants[id]
	if !ok {
		return nil, models.NotFoundf("participant %s", id)
	}
	return &p, nil
}

func (m *MemoryDAL) ListParticipants(ctx context.Context, contestID string) ([]models.Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.participantsUnsafe(contestID), nil
}

func (m *MemoryDAL) participantsUnsafe(contestID string) []models.Participant {
	var out []models.Participant
	for _, p := range m.participants {
		if p.ContestID == contestID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b models.Participant) int {
		if d := a.CreatedAt.Compare(b.CreatedAt); d != 0 {
			return d
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (m *MemoryDAL) UpsertPrediction(ctx context.Context, prediction *models.Prediction) (*models.Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.participants[prediction.ParticipantID]; !ok {
		return nil, models.NotFoundf("participant %s", prediction.ParticipantID)
	}
	if prediction.SubmittedAt.IsZero() {
		prediction.SubmittedAt = now()
	}
	if m.predictions[prediction.ParticipantID] == nil {
		m.predictions[prediction.ParticipantID] = make(map[string]models.Prediction)
	}
	m.predictions[prediction.ParticipantID][prediction.GameID] = clonePrediction(*prediction)
	return prediction, nil
}

func (m *MemoryDAL) ListPredictions(ctx context.Context, participantID string) ([]models.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.predictionsUnsafe(participantID), nil
}

func (m *MemoryDAL) ListContestPredictions(ctx context.Context, contestID string) ([]models.Prediction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Prediction
	for _, p := range m.participantsUnsafe(contestID) {
		out = append(out, m.predictionsUnsafe(p.ID)...)
	}
	return out, nil
}

func (m *MemoryDAL) predictionsUnsafe(participantID string) []models.Prediction {
	out := make([]models.Prediction, 0, len(m.predictions[participantID]))
	for _, p := range m.predictions[participantID] {
		out = append(out, clonePrediction(p))
	}
	slices.SortFunc(out, func(a, b models.Prediction) int {
		return cmp.Compare(a.GameID, b.GameID)
	})
	return out
}

func (m *MemoryDAL) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryDAL) Close() error {
	return nil
}

func clonePrediction(p models.Prediction) models.Prediction {
	if p.PredictedOpponent != nil {
		p.PredictedOpponent = models.StringPtr(*p.PredictedOpponent)
	}
	return p
}
