package stats

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"cricketfancy/settlement/internal/classify"
	"cricketfancy/settlement/internal/models"
)

var (
	firstNumber  = regexp.MustCompile(`\d+`)
	leadingOver  = regexp.MustCompile(`^(?:\d+[.]\d)|^\d+`)
	leadingBall  = regexp.MustCompile(`^\d+[.]\d`)
	ballsFacedBy = regexp.MustCompile(`(?i)\s+by\s+([a-z\s,.'-]+)$`)
	onlyPrefix   = regexp.MustCompile(`(?i)^only\s+`)
)

type handlerFunc func(label string, snap *models.TimelineSnapshot) Outcome

var handlers = map[classify.Kind]handlerFunc{
	classify.KindMatchNthOverRuns:     matchNthOverRuns,
	classify.KindTotalMatchFifties:    totalMatchFifties,
	classify.KindTotalMatchBowled:     totalMatchBowled,
	classify.KindTotalMatchCaughtOuts: totalMatchCaughtOuts,
	classify.KindTotalMatchLBW:        totalMatchLBW,
	classify.KindTotalMatchExtras:     totalMatchExtras,
	classify.KindTotalMatchWides:      totalMatchWides,
	classify.KindTotalMatchWickets:    totalMatchWickets,
	classify.KindTotalMatchBoundaries: totalMatchBoundaries,
	classify.KindTotalMatchSixes:      totalMatchSixes,
	classify.KindHighestScoringOver:   highestScoringOver,
	classify.KindTopBatsmanRuns:       topBatsmanRuns,
	classify.KindBowlerWicketsOrMore:  bowlerWicketsOrMore,
	classify.KindInningRuns:           inningRuns,
	classify.KindTeamOverRuns:         teamOverRuns,
	classify.KindTeamTotalRuns:        teamTotalRuns,
	classify.KindFallOfWicketRuns:     fallOfWicketRuns,
	classify.KindTeamBallRuns:         teamBallRuns,
	classify.KindWicketPartnershipBnd: wicketPartnershipBoundaries,
	classify.KindPlayerRuns:           playerRuns,
	classify.KindPlayerBallsFaced:     playerBallsFaced,
	classify.KindPlayerBoundaries:     playerBoundaries,
}

// Resolve settles a classified session label against a snapshot.
func Resolve(kind classify.Kind, label string, snap *models.TimelineSnapshot) Outcome {
	h, ok := handlers[kind]
	if !ok {
		return NotProcessable(fmt.Sprintf("no handler for kind %q", kind))
	}
	return h(label, snap)
}

// teamNameFor resolves an innings summary's team key to the full team name.
func teamNameFor(snap *models.TimelineSnapshot, summary models.InningSummary) string {
	return snap.Match.Teams[summary.Team].Name
}

func matchNthOverRuns(label string, snap *models.TimelineSnapshot) Outcome {
	stripped := classify.StripNoise(label)
	m := firstNumber.FindString(stripped)
	if m == "" {
		return NotProcessable("invalid over in label")
	}
	targetOver, _ := strconv.Atoi(m)

	ordered := snap.Match.ResultInfo.OrderedInnings()
	if len(ordered) == 0 {
		return NotAvailable("innings summary missing")
	}

	if float64(targetOver) <= ordered[0].Overs {
		return Closed(float64(sumOvers(overRuns(snap.Events)[1], targetOver)))
	}
	if snap.Match.Ended() {
		return NotProcessable("over was never bowled")
	}
	return InProgress()
}

func totalMatchFifties(_ string, snap *models.TimelineSnapshot) Outcome {
	if !snap.Match.Ended() {
		return InProgress()
	}
	strikers := lastSeenStrikers(snap.Events)
	if len(strikers) == 0 {
		return NotAvailable("no batting records in timeline")
	}
	count := 0
	for _, p := range strikers {
		if p.Runs >= 50 {
			count++
		}
	}
	return Closed(float64(count))
}

// dismissalCount tallies scorecard rows whose dismissal description matches.
func dismissalCount(snap *models.TimelineSnapshot, match func(string) bool) Outcome {
	if !snap.Match.Ended() {
		return InProgress()
	}
	if len(snap.Innings) == 0 {
		return NotAvailable("scorecards missing")
	}
	count := 0
	for _, innings := range snap.Innings {
		for _, b := range innings.Batsmen {
			if !b.DidNotBat && b.Description != "" && match(b.Description) {
				count++
			}
		}
	}
	return Closed(float64(count))
}

func totalMatchBowled(_ string, snap *models.TimelineSnapshot) Outcome {
	return dismissalCount(snap, func(desc string) bool {
		return strings.Contains(desc, "Bowled")
	})
}

func totalMatchCaughtOuts(_ string, snap *models.TimelineSnapshot) Outcome {
	return dismissalCount(snap, func(desc string) bool {
		return strings.Contains(desc, "Catch")
	})
}

func totalMatchLBW(_ string, snap *models.TimelineSnapshot) Outcome {
	return dismissalCount(snap, func(desc string) bool {
		return desc == "LBW"
	})
}

// extrasSum totals bowling extras selected by the type filter.
func extrasSum(snap *models.TimelineSnapshot, match func(string) bool) Outcome {
	if !snap.Match.Ended() {
		return InProgress()
	}
	if len(snap.Events) == 0 {
		return NotAvailable("timeline events missing")
	}
	total := 0
	for _, ev := range snap.Events {
		if ev.Bowling == nil {
			continue
		}
		if match(ev.Bowling.ExtrasConcededType) {
			total += ev.Bowling.ExtrasConceded
		}
	}
	return Closed(float64(total))
}

func totalMatchExtras(_ string, snap *models.TimelineSnapshot) Outcome {
	return extrasSum(snap, func(t string) bool { return t != "" })
}

func totalMatchWides(_ string, snap *models.TimelineSnapshot) Outcome {
	return extrasSum(snap, func(t string) bool { return t == models.ExtraTypeWide })
}

func totalMatchWickets(_ string, snap *models.TimelineSnapshot) Outcome {
	if !snap.Match.Ended() {
		return InProgress()
	}
	ordered := snap.Match.ResultInfo.OrderedInnings()
	if len(ordered) == 0 {
		return NotAvailable("innings summary missing")
	}
	total := 0
	for _, innings := range ordered {
		total += innings.Wickets
	}
	return Closed(float64(total))
}

// eventTypeCount counts timeline events of one type across the whole match.
func eventTypeCount(snap *models.TimelineSnapshot, eventType string) Outcome {
	if !snap.Match.Ended() {
		return InProgress()
	}
	if len(snap.Events) == 0 {
		return NotAvailable("timeline events missing")
	}
	count := 0
	for _, ev := range snap.Events {
		if ev.Type == eventType {
			count++
		}
	}
	return Closed(float64(count))
}

func totalMatchBoundaries(_ string, snap *models.TimelineSnapshot) Outcome {
	return eventTypeCount(snap, models.EventTypeBoundary)
}

func totalMatchSixes(_ string, snap *models.TimelineSnapshot) Outcome {
	return eventTypeCount(snap, models.EventTypeSixer)
}

func highestScoringOver(_ string, snap *models.TimelineSnapshot) Outcome {
	if !snap.Match.Ended() {
		return InProgress()
	}
	byInning := overRuns(snap.Events)
	if len(byInning) == 0 {
		return NotAvailable("timeline events missing")
	}

	best, bestOver, bestInning := -1, 0, 0
	for inning, overs := range byInning {
		for over, runs := range overs {
			total := 0
			for _, r := range runs {
				total += r
			}
			if total > best || (total == best && (inning < bestInning || (inning == bestInning && over < bestOver))) {
				best, bestOver, bestInning = total, over, inning
			}
		}
	}
	return ClosedText(fmt.Sprintf("%d:inning %drun in %d over", bestInning, best, bestOver))
}

func topBatsmanRuns(_ string, snap *models.TimelineSnapshot) Outcome {
	if !snap.Match.Ended() {
		return InProgress()
	}
	strikers := lastSeenStrikers(snap.Events)
	if len(strikers) == 0 {
		return NotAvailable("no batting records in timeline")
	}
	best, name := -1, ""
	for n, p := range strikers {
		if p.Runs > best || (p.Runs == best && n < name) {
			best, name = p.Runs, n
		}
	}
	return ClosedText(fmt.Sprintf("%s runs:%d", name, best))
}

func bowlerWicketsOrMore(_ string, snap *models.TimelineSnapshot) Outcome {
	if !snap.Match.Ended() {
		return InProgress()
	}
	best := -1
	for _, ev := range snap.Events {
		if ev.Bowling == nil || ev.Bowling.Bowler.Name == "" {
			continue
		}
		if ev.Bowling.Bowler.Wickets > best {
			best = ev.Bowling.Bowler.Wickets
		}
	}
	if best < 0 {
		return NotAvailable("no bowling records in timeline")
	}
	return Closed(float64(best))
}

func inningRuns(label string, snap *models.TimelineSnapshot) Outcome {
	stripped := classify.StripNoise(label)
	m := firstNumber.FindString(stripped)
	if m == "" {
		return NotProcessable("invalid innings in label")
	}
	target, _ := strconv.Atoi(m)
	if target < 1 {
		return NotProcessable("invalid innings in label")
	}

	ordered := snap.Match.ResultInfo.OrderedInnings()
	if target <= len(ordered) {
		if snap.Match.Ended() {
			return Closed(float64(ordered[target-1].Runs))
		}
		return InProgress()
	}
	if !snap.Match.Ended() {
		return InProgress()
	}
	return NotProcessable("innings was never played")
}

func teamTotalRuns(label string, snap *models.TimelineSnapshot) Outcome {
	start, ok := inningsStart(classify.TrailingInning(label))
	if !ok {
		return NotProcessable("invalid innings marker in label")
	}
	stripped := classify.StripNoise(label)
	if firstNumber.FindString(stripped) == "" {
		return NotProcessable("invalid run target in label")
	}

	ordered := snap.Match.ResultInfo.OrderedInnings()
	if len(ordered) == 0 {
		return NotAvailable("innings summary missing")
	}

	for i := start; i < len(ordered); i++ {
		if !teamMatches(stripped, teamNameFor(snap, ordered[i])) {
			continue
		}
		if snap.Match.Ended() {
			return Closed(float64(ordered[i].Runs))
		}
		return InProgress()
	}

	if pairNotStarted(start, len(ordered)) {
		return InProgress()
	}
	return NotProcessable("team name not found")
}

// parseOverRef splits an over reference like "7" or "7.3" into completed
// overs and extra balls.
func parseOverRef(s string) (over, balls int, asFloat float64, ok bool) {
	m := leadingOver.FindString(s)
	if m == "" {
		return 0, 0, 0, false
	}
	asFloat, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, 0, 0, false
	}
	parts := strings.SplitN(m, ".", 2)
	over, _ = strconv.Atoi(parts[0])
	if len(parts) == 2 {
		balls, _ = strconv.Atoi(parts[1])
	}
	return over, balls, asFloat, true
}

func teamOverRuns(label string, snap *models.TimelineSnapshot) Outcome {
	start, ok := inningsStart(classify.TrailingInning(label))
	if !ok {
		return NotProcessable("invalid innings marker in label")
	}
	stripped := classify.StripNoise(label)
	overOnly := onlyPrefix.MatchString(stripped)
	stripped = strings.TrimSpace(onlyPrefix.ReplaceAllString(stripped, ""))

	over, balls, overRef, refOK := parseOverRef(stripped)
	if !refOK {
		return NotProcessable("invalid over in label")
	}

	ordered := snap.Match.ResultInfo.OrderedInnings()
	if len(ordered) == 0 {
		return NotAvailable("innings summary missing")
	}

	for i := start; i < len(ordered); i++ {
		if !teamMatches(stripped, teamNameFor(snap, ordered[i])) {
			continue
		}
		if overRef <= ordered[i].Overs {
			overs := overRuns(snap.Events)[i+1]
			if overOnly {
				return Closed(float64(overTotal(overs, over)))
			}
			total := sumOvers(overs, over) + sumBalls(overs, over+1, balls)
			return Closed(float64(total))
		}
		if snap.Match.Ended() {
			// Innings closed short of the target over: the whole
			// innings total settles the market.
			return Closed(float64(ordered[i].Runs))
		}
		return InProgress()
	}

	if pairNotStarted(start, len(ordered)) {
		return InProgress()
	}
	return NotProcessable("team name not found")
}

func teamBallRuns(label string, snap *models.TimelineSnapshot) Outcome {
	start, ok := inningsStart(classify.TrailingInning(label))
	if !ok {
		return NotProcessable("invalid innings marker in label")
	}
	stripped := classify.StripNoise(label)
	if !leadingBall.MatchString(stripped) {
		return NotProcessable("invalid ball reference in label")
	}
	over, balls, overRef, refOK := parseOverRef(stripped)
	if !refOK {
		return NotProcessable("invalid ball reference in label")
	}

	ordered := snap.Match.ResultInfo.OrderedInnings()
	if len(ordered) == 0 {
		return NotAvailable("innings summary missing")
	}

	for i := start; i < len(ordered); i++ {
		if !teamMatches(stripped, teamNameFor(snap, ordered[i])) {
			continue
		}
		if overRef <= ordered[i].Overs {
			overs := overRuns(snap.Events)[i+1]
			total := sumOvers(overs, over) + sumBalls(overs, over+1, balls)
			return Closed(float64(total))
		}
		return InProgress()
	}

	if pairNotStarted(start, len(ordered)) {
		return InProgress()
	}
	return NotProcessable("team name not found")
}

func fallOfWicketRuns(label string, snap *models.TimelineSnapshot) Outcome {
	start, ok := inningsStart(classify.TrailingInning(label))
	if !ok {
		return NotProcessable("invalid innings marker in label")
	}
	stripped := classify.StripNoise(label)
	m := firstNumber.FindString(stripped)
	if m == "" {
		return NotProcessable("invalid wicket in label")
	}
	target, _ := strconv.Atoi(m)
	if target < 1 || target > 10 {
		return NotProcessable("invalid wicket in label")
	}

	ordered := snap.Match.ResultInfo.OrderedInnings()
	if len(ordered) == 0 {
		return NotAvailable("innings summary missing")
	}

	for i := start; i < len(ordered); i++ {
		if !teamMatches(stripped, teamNameFor(snap, ordered[i])) {
			continue
		}
		if target > ordered[i].Wickets {
			if snap.Match.Ended() {
				return NotProcessable("wicket never fell")
			}
			return InProgress()
		}

		sum, wickets := 0, 0
		for _, ev := range snap.Events {
			if ev.Inning != i+1 || ev.Batting == nil || ev.Bowling == nil {
				continue
			}
			sum += ev.Batting.RunsScored + ev.Bowling.ExtrasConceded
			if ev.Type == models.EventTypeWicket {
				wickets++
				if wickets == target {
					return Closed(float64(sum))
				}
			}
		}
		return NotAvailable("wicket not present in timeline")
	}

	if pairNotStarted(start, len(ordered)) {
		return InProgress()
	}
	return NotAvailable("team name not found")
}

func wicketPartnershipBoundaries(label string, snap *models.TimelineSnapshot) Outcome {
	start, ok := inningsStart(classify.TrailingInning(label))
	if !ok {
		return NotProcessable("invalid innings marker in label")
	}
	stripped := classify.StripNoise(label)
	m := firstNumber.FindString(stripped)
	if m == "" {
		return NotProcessable("invalid wicket in label")
	}
	target, _ := strconv.Atoi(m)
	if target < 1 || target > 10 {
		return NotProcessable("invalid wicket in label")
	}

	ordered := snap.Match.ResultInfo.OrderedInnings()
	if len(ordered) == 0 {
		return NotAvailable("innings summary missing")
	}

	for i := start; i < len(ordered); i++ {
		if !teamMatches(stripped, teamNameFor(snap, ordered[i])) {
			continue
		}
		if target > ordered[i].Wickets {
			if snap.Match.Ended() {
				return NotProcessable("wicket never fell")
			}
			return InProgress()
		}

		// Boundaries struck between the previous dismissal and the
		// target one.
		boundaries, wickets := 0, 0
		for _, ev := range snap.Events {
			if ev.Inning != i+1 {
				continue
			}
			if ev.Type == models.EventTypeWicket {
				wickets++
				if wickets == target {
					return Closed(float64(boundaries))
				}
				continue
			}
			if wickets == target-1 && ev.Type == models.EventTypeBoundary {
				boundaries++
			}
		}
		return NotAvailable("wicket not present in timeline")
	}

	if pairNotStarted(start, len(ordered)) {
		return InProgress()
	}
	return NotAvailable("team name not found")
}

// labelPrefixBefore returns the label text before the first occurrence of the
// marker word, or "" when the marker is absent.
func labelPrefixBefore(label, marker string) string {
	idx := strings.Index(strings.ToLower(label), marker)
	if idx < 0 {
		return ""
	}
	return strings.TrimSpace(label[:idx])
}

func playerRuns(label string, snap *models.TimelineSnapshot) Outcome {
	name := labelPrefixBefore(classify.StripNoise(label), " run")
	if name == "" {
		return NotProcessable("invalid player name in label")
	}

	for timelineName, p := range lastSeenStrikers(snap.Events) {
		if playerMatches(name, timelineName) {
			if snap.Match.Ended() {
				return Closed(float64(p.Runs))
			}
			return InProgress()
		}
	}

	if !snap.Match.Ended() {
		return InProgress()
	}
	return NotProcessable("player name not found")
}

func playerBoundaries(label string, snap *models.TimelineSnapshot) Outcome {
	name := labelPrefixBefore(classify.StripNoise(label), " boundaries")
	if name == "" {
		return NotProcessable("invalid player name in label")
	}

	for timelineName, p := range lastSeenStrikers(snap.Events) {
		if playerMatches(name, timelineName) {
			if snap.Match.Ended() {
				return Closed(float64(p.Fours))
			}
			return InProgress()
		}
	}

	if !snap.Match.Ended() {
		return InProgress()
	}
	return NotProcessable("player name not found")
}

func playerBallsFaced(label string, snap *models.TimelineSnapshot) Outcome {
	m := ballsFacedBy.FindStringSubmatch(classify.StripNoise(label))
	if m == nil {
		return NotProcessable("invalid player name in label")
	}
	name := strings.TrimSpace(m[1])

	// Striker figures are running totals, so scanning from the end finds
	// the player's final ball count first.
	for p := len(snap.Events) - 1; p >= 0; p-- {
		ev := snap.Events[p]
		if ev.Batting == nil || ev.Batting.Striker.Name == "" {
			continue
		}
		if playerMatches(name, ev.Batting.Striker.Name) {
			if snap.Match.Ended() {
				return Closed(float64(ev.Batting.Striker.Balls))
			}
			return InProgress()
		}
	}

	if !snap.Match.Ended() {
		return InProgress()
	}
	return NotProcessable("player name not found")
}
