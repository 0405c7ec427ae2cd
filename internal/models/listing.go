package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexID is a numeric identifier that the listing feed serves either as a
// JSON number or as a numeric string, depending on the endpoint version.
type FlexID int64

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// Market ids occasionally carry a "1.234567" exchange prefix;
			// strip the integer part out of it.
			fl, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil {
				return fmt.Errorf("flex id %q: %w", s, err)
			}
			*f = FlexID(int64(fl))
			return nil
		}
		*f = FlexID(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	i, err := n.Int64()
	if err != nil {
		fl, ferr := n.Float64()
		if ferr != nil {
			return err
		}
		i = int64(fl)
	}
	*f = FlexID(i)
	return nil
}

func (f FlexID) Int64() int64 { return int64(f) }

// Envelope is the success wrapper every listing endpoint returns. A response
// is usable for a tick only when all four checks hold.
type Envelope struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Status  int             `json:"status"`
	Data    json.RawMessage `json:"data"`
}

// Valid reports whether the envelope carries a usable data array.
func (e *Envelope) Valid() bool {
	return e.Success && e.Msg == "success" && e.Status == 200 &&
		len(e.Data) > 0 && bytes.TrimSpace(e.Data)[0] == '['
}

// CompetitionRow is one entry of the competitions listing.
type CompetitionRow struct {
	Competition struct {
		ID   FlexID `json:"id"`
		Name string `json:"name"`
	} `json:"competition"`
}

// EventRow is one entry of the per-competition events listing. Only rows
// whose MarketName is "Match Odds" identify a match; other rows are
// secondary markets of the same event.
type EventRow struct {
	Event struct {
		ID   FlexID `json:"id"`
		Name string `json:"name"`
	} `json:"event"`
	MarketID        FlexID `json:"marketId"`
	MarketName      string `json:"marketName"`
	MarketStartTime string `json:"marketStartTime"`
}

// MarketStatusClosed marks a market whose watcher must tear itself down.
const MarketStatusClosed = "CLOSED"

// MarketRow is one market of the per-event market catalogue. Session rows
// live in the sections of markets with GType "fancy".
type MarketRow struct {
	GType   string       `json:"gtype"`
	MName   string       `json:"mname"`
	Status  string       `json:"status"`
	Section []SectionRow `json:"section"`
}

// SectionRow is one raw session row inside a fancy market.
type SectionRow struct {
	SID FlexID `json:"sid"`
	Nat string `json:"nat"`
}
