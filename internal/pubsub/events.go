package pubsub

import "time"

// Event types published by the playoff service
const (
	EventSeedsSet           = "seeds:set"
	EventSeasonReset        = "season:reset"
	EventBracketGenerated   = "bracket:generated"
	EventBracketWinner      = "bracket:winner"
	EventBracketCleared     = "bracket:cleared"
	EventBracketMatchup     = "bracket:matchup"
	EventBracketInvalidated = "bracket:invalidated"
	EventContestCreated     = "contest:created"
	EventContestJoined      = "contest:joined"
	EventPredictionSubmit   = "prediction:submit"
)

// Event represents a pubsub event
type Event struct {
	Type    string         `json:"type"`
	Season  int            `json:"season,omitempty"`
	Time    time.Time      `json:"time"`
	Payload map[string]any `json:"payload,omitempty"`
}

// NewEvent stamps an event with the current time
func NewEvent(eventType string, season int, payload map[string]any) Event {
	return Event{Type: eventType, Season: season, Time: time.Now().UTC(), Payload: payload}
}

// Publisher is the write side used by the service layer
type Publisher interface {
	Publish(Event)
}
