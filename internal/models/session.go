package models

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Status is the lifecycle state of a session document.
// PENDING is the only state from which automatic polling proceeds; every
// other value is terminal for the poller.
type Status int

const (
	StatusPending          Status = 0
	StatusResolved         Status = 1
	StatusNotAvailable     Status = -1
	StatusNotHandled       Status = -2
	StatusNotProcessable   Status = -3
	StatusUnexpectedResult Status = -4
)

// Terminal reports whether a session in this status is never mutated again
// automatically. NOT_AVAILABLE is special: it is written for visibility while
// the poller keeps retrying, and only becomes effectively terminal once the
// poller gives up (see resolver).
func (s Status) Terminal() bool {
	switch s {
	case StatusResolved, StatusNotHandled, StatusNotProcessable, StatusUnexpectedResult:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusResolved:
		return "RESOLVED"
	case StatusNotAvailable:
		return "NOT_AVAILABLE"
	case StatusNotHandled:
		return "NOT_HANDLED"
	case StatusNotProcessable:
		return "NOT_PROCESSABLE"
	case StatusUnexpectedResult:
		return "UNEXPECTED_RESULT"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Identity is the composite key of a session. At most one document exists per
// identity; the store enforces this with a unique compound index.
type Identity struct {
	CompetitionID int64 `bson:"competitionId" json:"competitionId"`
	EventID       int64 `bson:"eventId" json:"eventId"`
	MarketID      int64 `bson:"marketId" json:"marketId"`
	SelectionID   int64 `bson:"selectionId" json:"selectionId"`
}

func (id Identity) String() string {
	return fmt.Sprintf("%d/%d/%d/%d", id.CompetitionID, id.EventID, id.MarketID, id.SelectionID)
}

// Session is one resolvable wagering line tied to a statistic of a match.
// Identity fields and the label are immutable after creation; only status,
// result, error and startTime mutate.
type Session struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	Identity `bson:",inline"`

	// Label is the free-text session name as listed upstream ("total match
	// wkts", "2 run IND", ...). The field name in the store matches the
	// upstream row for compatibility with the admin tooling.
	Label      string `bson:"session" json:"session"`
	MarketName string `bson:"mname" json:"mname"`
	StartTime  string `bson:"startTime" json:"startTime"`

	Status Status `bson:"status" json:"status"`
	// Result is a number for almost every statistic; the two top-performer
	// statistics store a formatted string instead. Null until resolved.
	Result any    `bson:"result" json:"result"`
	Error  string `bson:"error,omitempty" json:"error,omitempty"`
}
