package scores

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	espnName          = "espn"
	espnPostseason    = "3"
	espnClientTimeout = 10 * time.Second
)

// espnAliases maps scoreboard abbreviations onto the ones used for seeding
var espnAliases = map[string]string{
	"WSH": "WAS",
	"JAX": "JAC",
}

type espnScoreboard struct {
	Events []espnEvent `json:"events"`
}

type espnEvent struct {
	ID           string            `json:"id"`
	Status       espnStatus        `json:"status"`
	Competitions []espnCompetition `json:"competitions"`
}

type espnStatus struct {
	Type struct {
		Completed bool   `json:"completed"`
		State     string `json:"state"`
	} `json:"type"`
}

type espnCompetition struct {
	Competitors []espnCompetitor `json:"competitors"`
}

type espnCompetitor struct {
	HomeAway string `json:"homeAway"`
	Winner   bool   `json:"winner"`
	Score    string `json:"score"`
	Team     struct {
		Abbreviation string `json:"abbreviation"`
	} `json:"team"`
}

// ESPNProvider reads the public ESPN NFL scoreboard
type ESPNProvider struct {
	baseURL string
	client  *http.Client
}

// NewESPNProvider creates a provider for the scoreboard at baseURL.
// A nil client gets a default with a timeout.
func NewESPNProvider(baseURL string, client *http.Client) *ESPNProvider {
	if client == nil {
		client = &http.Client{Timeout: espnClientTimeout}
	}
	return &ESPNProvider{baseURL: baseURL, client: client}
}

// FetchFinals returns the season's completed postseason games
func (p *ESPNProvider) FetchFinals(ctx context.Context, season int) ([]Final, error) {
	u, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid scoreboard url: %w", err)
	}
	q := u.Query()
	q.Set("seasontype", espnPostseason)
	q.Set("dates", strconv.Itoa(season))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scoreboard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: espnName, StatusCode: resp.StatusCode}
	}

	var board espnScoreboard
	if err := json.NewDecoder(resp.Body).Decode(&board); err != nil {
		return nil, fmt.Errorf("failed to decode scoreboard: %w", err)
	}
	return mapFinals(board), nil
}

// mapFinals keeps completed two-team games with a clear winner
func mapFinals(board espnScoreboard) []Final {
	var finals []Final
	for _, ev := range board.Events {
		if !ev.Status.Type.Completed || len(ev.Competitions) == 0 {
			continue
		}
		comp := ev.Competitions[0]
		if len(comp.Competitors) != 2 {
			continue
		}

		f := Final{ExternalID: ev.ID}
		for _, c := range comp.Competitors {
			team := normalizeTeam(c.Team.Abbreviation)
			score, _ := strconv.Atoi(strings.TrimSpace(c.Score))
			if c.HomeAway == "home" {
				f.Home, f.HomeScore = team, score
			} else {
				f.Away, f.AwayScore = team, score
			}
			if c.Winner {
				f.Winner = team
			}
		}
		if f.Winner == "" {
			switch {
			case f.HomeScore > f.AwayScore:
				f.Winner = f.Home
			case f.AwayScore > f.HomeScore:
				f.Winner = f.Away
			}
		}
		if f.Home == "" || f.Away == "" || f.Winner == "" {
			continue
		}
		finals = append(finals, f)
	}
	return finals
}

func normalizeTeam(abbr string) string {
	abbr = strings.ToUpper(strings.TrimSpace(abbr))
	if alias, ok := espnAliases[abbr]; ok {
		return alias
	}
	return abbr
}
