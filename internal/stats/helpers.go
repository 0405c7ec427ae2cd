package stats

import (
	"strings"

	"cricketfancy/settlement/internal/models"
)

// teamShortName derives the code operators embed in labels: single-word team
// names shorten to their first three letters, multi-word names to their
// initials, both uppercased.
func teamShortName(teamName string) string {
	parts := strings.Fields(teamName)
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		name := parts[0]
		if len(name) > 3 {
			name = name[:3]
		}
		return strings.ToUpper(name)
	}
	var b strings.Builder
	for _, p := range parts {
		b.WriteByte(p[0])
	}
	return strings.ToUpper(b.String())
}

// teamMatches reports whether a label refers to the given team. Codes like
// "TIND" for "Twenty20 India Team" often appear without the leading T, so a
// T-prefixed code also matches on its tail.
func teamMatches(label, teamName string) bool {
	code := teamShortName(teamName)
	if code == "" {
		return false
	}
	if strings.Contains(label, code) {
		return true
	}
	if strings.HasPrefix(code, "T") && len(code) > 1 && strings.Contains(label, code[1:]) {
		return true
	}
	return false
}

// playerMatches compares a label player name against a timeline player name.
// Operators abbreviate given names, so "V Kohli" must match "Virat Kohli":
// besides the exact comparison, the timeline name is also collapsed to
// initials plus surname.
func playerMatches(labelName, timelineName string) bool {
	if strings.EqualFold(labelName, timelineName) {
		return true
	}

	parts := strings.Fields(timelineName)
	if len(parts) < 2 {
		return false
	}

	var b strings.Builder
	for _, p := range parts[:len(parts)-1] {
		b.WriteString(p[:1])
		b.WriteString(" ")
	}
	b.WriteString(parts[len(parts)-1])

	return strings.EqualFold(labelName, b.String())
}

// overRuns aggregates the timeline into per-ball run lists keyed by innings
// then over. A delivery with extras contributes the extras in place of the
// batted runs, matching how the feed double-books wides and no-balls.
func overRuns(events []models.TimelineEvent) map[int]map[int][]int {
	byInning := make(map[int]map[int][]int)
	for _, ev := range events {
		if ev.Inning == 0 || ev.Batting == nil || ev.Bowling == nil {
			continue
		}
		overs := byInning[ev.Inning]
		if overs == nil {
			overs = make(map[int][]int)
			byInning[ev.Inning] = overs
		}
		run := ev.Batting.RunsScored
		if ev.Bowling.ExtrasConceded != 0 {
			run = ev.Bowling.ExtrasConceded
		}
		overs[ev.Over] = append(overs[ev.Over], run)
	}
	return byInning
}

// sumOvers totals every ball of overs 1 through n for one innings of an
// overRuns aggregate.
func sumOvers(overs map[int][]int, n int) int {
	total := 0
	for over := 1; over <= n; over++ {
		for _, run := range overs[over] {
			total += run
		}
	}
	return total
}

// overTotal adds every delivery of over n. The per-over lists keep extra
// deliveries in place, so a wide makes the over longer than six entries.
func overTotal(overs map[int][]int, n int) int {
	total := 0
	for _, run := range overs[n] {
		total += run
	}
	return total
}

// sumBalls adds the first balls deliveries of over n.
func sumBalls(overs map[int][]int, n, balls int) int {
	total := 0
	runs := overs[n]
	for k := 0; k < balls && k < len(runs); k++ {
		total += runs[k]
	}
	return total
}

// inningsStart converts a label's trailing innings-pair marker into the
// starting index of the ordered innings list. Only 0 (first pair) and 2
// (second pair, test matches) are meaningful; anything else is a bad label.
func inningsStart(trailing int) (int, bool) {
	if trailing == 0 || trailing == 2 {
		return trailing, true
	}
	return 0, false
}

// pairNotStarted reports whether the innings pair a label targets has not
// begun yet: such sessions stay in progress rather than failing.
func pairNotStarted(trailing, currentInnings int) bool {
	return (trailing == 0 && currentInnings < 2) || (trailing == 2 && currentInnings < 4)
}

// lastSeenStrikers folds the timeline into each batsman's final running
// figures. Striker values accumulate ball over ball, so the last record per
// name carries the totals.
func lastSeenStrikers(events []models.TimelineEvent) map[string]models.PlayerLine {
	out := make(map[string]models.PlayerLine)
	for _, ev := range events {
		if ev.Batting == nil || ev.Batting.Striker.Name == "" {
			continue
		}
		out[ev.Batting.Striker.Name] = ev.Batting.Striker
	}
	return out
}
