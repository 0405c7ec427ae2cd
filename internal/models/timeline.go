package models

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
)

// TimelineSnapshot is the transient ball-by-ball structure fetched fresh for
// every resolution attempt. The upstream document is sparse: every nested
// field may be absent and consumers must tolerate that.
type TimelineSnapshot struct {
	Match   MatchInfo         `json:"match"`
	Innings []InningScorecard `json:"innings"`
	Events  []TimelineEvent   `json:"events"`
}

// MatchInfo summarises the match state.
type MatchInfo struct {
	Status     MatchStatusInfo     `json:"status"`
	Teams      map[string]TeamInfo `json:"teams"`
	ResultInfo ResultInfo          `json:"resultinfo"`
}

// MatchStatusInfo wraps the feed's match status. Different feed versions mark
// a finished match either with the string "Ended" or with the numeric code 4;
// both are accepted as ended.
type MatchStatusInfo struct {
	Name StatusName `json:"name"`
}

// StatusName holds either form of the upstream status value.
type StatusName struct {
	Text string
	Code int
	// IsCode distinguishes a real numeric 0 from an absent value.
	IsCode bool
}

const endedStatusCode = 4

func (n *StatusName) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*n = StatusName{}
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &n.Text)
	}
	if err := json.Unmarshal(data, &n.Code); err != nil {
		return err
	}
	n.IsCode = true
	return nil
}

// Ended reports whether the match has finished, accepting both feed
// representations.
func (n StatusName) Ended() bool {
	return n.Text == "Ended" || (n.IsCode && n.Code == endedStatusCode)
}

// Ended is a convenience accessor used by every statistic handler.
func (m *MatchInfo) Ended() bool { return m.Status.Name.Ended() }

// TeamInfo names one participating team, keyed "home"/"away" in Match.Teams.
type TeamInfo struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbr"`
}

// ResultInfo carries the per-innings summary table. The feed serves it as an
// object keyed by the 1-based innings number in string form.
type ResultInfo struct {
	Innings map[string]InningSummary `json:"innings"`
}

// InningSummary is the feed's running summary of one innings.
type InningSummary struct {
	Team    string  `json:"team"`
	Runs    int     `json:"runs"`
	Wickets int     `json:"wickets"`
	Overs   float64 `json:"overs"`
}

// OrderedInnings returns the innings summaries sorted by innings number.
// Index 0 is the first innings. Keys that are not numeric are dropped.
func (r ResultInfo) OrderedInnings() []InningSummary {
	type keyed struct {
		n       int
		summary InningSummary
	}
	rows := make([]keyed, 0, len(r.Innings))
	for k, v := range r.Innings {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		rows = append(rows, keyed{n: n, summary: v})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].n < rows[j].n })
	out := make([]InningSummary, len(rows))
	for i, row := range rows {
		out[i] = row.summary
	}
	return out
}

// InningScorecard is the per-innings batting card, used for dismissal-type
// statistics (caught, bowled, LBW).
type InningScorecard struct {
	Batsmen []BatsmanLine `json:"batsmen"`
}

// BatsmanLine is one row of an innings scorecard.
type BatsmanLine struct {
	Name        string `json:"batsmanName"`
	DidNotBat   bool   `json:"didNotBat"`
	Description string `json:"description"`
	Runs        int    `json:"runs"`
	Balls       int    `json:"balls"`
}

// Discrete timeline event types referenced by the statistic handlers.
const (
	EventTypeBoundary = "boundary"
	EventTypeSixer    = "sixer"
	EventTypeWicket   = "wicket"
)

// TimelineEvent is one discrete ball or incident of the timeline. Batting
// and Bowling are nil for non-delivery events (drinks, innings breaks).
type TimelineEvent struct {
	Inning  int            `json:"inning"`
	Over    int            `json:"over"`
	Type    string         `json:"type"`
	Batting *BattingRecord `json:"batting"`
	Bowling *BowlingRecord `json:"bowling"`
}

// BattingRecord describes the batting side of one delivery. Striker values
// are running totals, so the last occurrence of a player carries their final
// figures.
type BattingRecord struct {
	RunsScored int        `json:"runsScored"`
	Striker    PlayerLine `json:"striker"`
}

// BowlingRecord describes the bowling side of one delivery.
type BowlingRecord struct {
	ExtrasConceded     int        `json:"extrasConceded"`
	ExtrasConcededType string     `json:"extrasConcededType"`
	Bowler             PlayerLine `json:"bowler"`
}

// PlayerLine is a player reference with running figures.
type PlayerLine struct {
	PlayerID int64  `json:"_playerid"`
	Name     string `json:"name"`
	Runs     int    `json:"runs"`
	Balls    int    `json:"balls"`
	Fours    int    `json:"fours"`
	Sixes    int    `json:"sixes"`
	Wickets  int    `json:"wickets"`
	Overs    string `json:"overs"`
}

// ExtraTypeWide marks a wide delivery in BowlingRecord.ExtrasConcededType.
const ExtraTypeWide = "WD"
