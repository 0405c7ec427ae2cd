// Package classify maps raw session labels to the statistic they settle on.
// Labels are free text written by market operators, so matching is a fixed
// ordered rule table; earlier, more specific patterns win over the loose
// player-statistic catch-alls at the bottom.
package classify

import "regexp"

// Kind identifies the statistic a session label resolves to.
type Kind string

const (
	KindMatchNthOverRuns     Kind = "match_nth_over_runs"
	KindTotalMatchFifties    Kind = "total_match_fifties"
	KindTotalMatchBowled     Kind = "total_match_bowled"
	KindTotalMatchCaughtOuts Kind = "total_match_caught_outs"
	KindTotalMatchLBW        Kind = "total_match_lbw"
	KindTotalMatchExtras     Kind = "total_match_extras"
	KindTotalMatchWides      Kind = "total_match_wides"
	KindTotalMatchWickets    Kind = "total_match_wickets"
	KindTotalMatchBoundaries Kind = "total_match_boundaries"
	KindTotalMatchSixes      Kind = "total_match_sixes"
	KindHighestScoringOver   Kind = "highest_scoring_over"
	KindTopBatsmanRuns       Kind = "top_batsman_runs"
	KindBowlerWicketsOrMore  Kind = "bowler_wickets_or_more"
	KindInningRuns           Kind = "inning_runs"
	KindTeamOverRuns         Kind = "team_over_runs"
	KindTeamTotalRuns        Kind = "team_total_runs"
	KindFallOfWicketRuns     Kind = "fall_of_wicket_runs"
	KindTeamBallRuns         Kind = "team_ball_runs"
	KindWicketPartnershipBnd Kind = "wicket_partnership_boundaries"
	KindPlayerRuns           Kind = "player_runs"
	KindPlayerBallsFaced     Kind = "player_balls_faced"
	KindPlayerBoundaries     Kind = "player_boundaries"
)

// Labels carry optional trailing noise after the statistic phrase: a "bhav"
// marker, a "(AUS vs ENG)" fixture tag, an "adv" flag, a line number and a
// trailing dot. Team-scoped labels additionally require a team word between
// the phrase and the noise.
const (
	noiseTail = `(\s+bhav)?(\s*\(\s*[a-z]+\s+vs\s+[a-z]+\s*\))?(\s*adv)?(\s*[.])?$`
	teamTail  = `(\s+bhav)?(?:\s+[a-z]+|\s+[a-z]+\s*\(\s*[a-z]+\s+vs\s+[a-z]+\s*\))(\s*adv)?(\s+\d+)?(\s*[.])?$`
	looseTail = `(\s+bhav)?(\s+[a-z]+)?(\s*\(\s*[a-z]+\s+vs\s+[a-z]+\s*\))?(\s*adv)?(\s+\d+)?(\s*[.])?$`
)

type rule struct {
	kind Kind
	re   *regexp.Regexp
}

// rules is evaluated in order; the first match decides the kind. The player
// catch-alls sit last because their name groups would swallow almost any
// label.
var rules = []rule{
	{KindMatchNthOverRuns, regexp.MustCompile(`(?i)^(match\s+\d+[a-z]+\s+over\s+(?:run|runs))` + noiseTail)},
	{KindTotalMatchFifties, regexp.MustCompile(`(?i)^(total\s+match\s+fifties)` + noiseTail)},
	{KindTotalMatchBowled, regexp.MustCompile(`(?i)^(total\s+match\s+bowled)` + noiseTail)},
	{KindTotalMatchCaughtOuts, regexp.MustCompile(`(?i)^(total\s+match\s+caught\s+outs)` + noiseTail)},
	{KindTotalMatchLBW, regexp.MustCompile(`(?i)^(total\s+match\s+lbw)` + noiseTail)},
	{KindTotalMatchExtras, regexp.MustCompile(`(?i)^(total\s+match\s+extras)` + noiseTail)},
	{KindTotalMatchWides, regexp.MustCompile(`(?i)^(total\s+match\s+wides)` + noiseTail)},
	{KindTotalMatchWickets, regexp.MustCompile(`(?i)^(total\s+match\s+wkts)` + noiseTail)},
	{KindTotalMatchBoundaries, regexp.MustCompile(`(?i)^(total\s+match\s+(?:fours|boundaries))` + noiseTail)},
	{KindTotalMatchSixes, regexp.MustCompile(`(?i)^(total\s+match\s+sixes)` + noiseTail)},
	{KindHighestScoringOver, regexp.MustCompile(`(?i)^(highest\s+scoring\s+over\s+in\s+match)` + noiseTail)},
	{KindTopBatsmanRuns, regexp.MustCompile(`(?i)^(top\s+batsman\s+(?:run|runs)\s+in\s+match)` + noiseTail)},
	{KindBowlerWicketsOrMore, regexp.MustCompile(`(?i)^(\d+\s+wkt\s+or\s+more\s+by\s+bowler\s+in\s+match)` + noiseTail)},
	{KindInningRuns, regexp.MustCompile(`(?i)^(\d+[a-z]+\s+(?:inning|innings)\s+(?:run|runs))(\s+bhav)?(?:\s+[a-z]+|\s+[a-z]+\s*\(\s*[a-z]+\s+vs\s+[a-z]+\s*\))?(\s*adv)?(\s*[.])?$`)},
	{KindTeamOverRuns, regexp.MustCompile(`(?i)^((only\s+)?(?:\d+[.]\d|\d+)\s+over\s+(?:run|runs))` + teamTail)},
	{KindTeamTotalRuns, regexp.MustCompile(`(?i)^(\d+\s+run)` + teamTail)},
	{KindFallOfWicketRuns, regexp.MustCompile(`(?i)^(fall\s+of\s+\d+[a-z]+\s+wkt)(\s+(?:run|runs))?` + teamTail)},
	{KindTeamBallRuns, regexp.MustCompile(`(?i)^(\d+[.]\d\s+ball\s+(?:run|runs))` + teamTail)},
	{KindWicketPartnershipBnd, regexp.MustCompile(`(?i)^(\d+[a-z]+\s+wkt\s+pship\s+boundaries)` + teamTail)},
	{KindPlayerRuns, regexp.MustCompile(`(?i)^([a-z\s,.'-]+\s+(?:run|runs))` + looseTail)},
	{KindPlayerBallsFaced, regexp.MustCompile(`(?i)^(how\s+many\s+balls\s+face\s+by\s+[a-z\s,.'-]+)` + looseTail)},
	{KindPlayerBoundaries, regexp.MustCompile(`(?i)^([a-z\s,.'-]+\s+boundaries)` + looseTail)},
}

// Classify returns the statistic kind a label settles on. ok is false when
// no rule matches; such sessions are recorded as NOT_HANDLED and never
// polled.
func Classify(label string) (Kind, bool) {
	for _, r := range rules {
		if r.re.MatchString(label) {
			return r.kind, true
		}
	}
	return "", false
}
