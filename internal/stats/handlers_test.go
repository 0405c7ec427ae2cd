package stats

import (
	"fmt"
	"testing"

	"cricketfancy/settlement/internal/classify"
	"cricketfancy/settlement/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixture builders. Striker and bowler figures are running totals, the way
// the live feed serves them.

func ball(inning, over, runs int) models.TimelineEvent {
	return models.TimelineEvent{
		Inning:  inning,
		Over:    over,
		Batting: &models.BattingRecord{RunsScored: runs},
		Bowling: &models.BowlingRecord{},
	}
}

func wide(inning, over, extras int) models.TimelineEvent {
	return models.TimelineEvent{
		Inning:  inning,
		Over:    over,
		Batting: &models.BattingRecord{},
		Bowling: &models.BowlingRecord{ExtrasConceded: extras, ExtrasConcededType: models.ExtraTypeWide},
	}
}

func strikerBall(inning, over int, name string, runs, balls int) models.TimelineEvent {
	ev := ball(inning, over, 0)
	ev.Batting.Striker = models.PlayerLine{Name: name, Runs: runs, Balls: balls}
	return ev
}

func wicketEv(inning, over int) models.TimelineEvent {
	ev := ball(inning, over, 0)
	ev.Type = models.EventTypeWicket
	return ev
}

func typedEv(inning int, eventType string) models.TimelineEvent {
	return models.TimelineEvent{Inning: inning, Type: eventType}
}

func snapshot(ended bool, innings []models.InningSummary, events []models.TimelineEvent) *models.TimelineSnapshot {
	snap := &models.TimelineSnapshot{
		Match: models.MatchInfo{
			Teams: map[string]models.TeamInfo{
				"home": {Name: "India"},
				"away": {Name: "Australia"},
			},
			ResultInfo: models.ResultInfo{Innings: map[string]models.InningSummary{}},
		},
		Events: events,
	}
	if ended {
		snap.Match.Status.Name = models.StatusName{Text: "Ended"}
	}
	for i, summary := range innings {
		snap.Match.ResultInfo.Innings[fmt.Sprintf("%d", i+1)] = summary
	}
	return snap
}

func TestTeamTotalRuns_FirstInningsUnderway(t *testing.T) {
	// Australia bat second; while only India's innings exists the session
	// stays open.
	snap := snapshot(false, []models.InningSummary{
		{Team: "home", Runs: 84, Wickets: 2, Overs: 10},
	}, nil)

	out := teamTotalRuns("2 run AUS", snap)
	assert.Equal(t, OutcomeInProgress, out.Kind)
}

func TestTeamTotalRuns_SettlesOnEnded(t *testing.T) {
	snap := snapshot(true, []models.InningSummary{
		{Team: "home", Runs: 208, Wickets: 7, Overs: 20},
		{Team: "away", Runs: 186, Wickets: 10, Overs: 18.4},
	}, nil)

	out := teamTotalRuns("2 run AUS", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(186), out.Value)

	out = teamTotalRuns("2 run IND", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(208), out.Value)
}

func TestTeamTotalRuns_TeamNotFound(t *testing.T) {
	snap := snapshot(true, []models.InningSummary{
		{Team: "home", Runs: 208, Wickets: 7, Overs: 20},
		{Team: "away", Runs: 186, Wickets: 10, Overs: 18.4},
	}, nil)

	out := teamTotalRuns("2 run ENG", snap)
	assert.Equal(t, OutcomeNotProcessable, out.Kind)
}

func TestTeamTotalRuns_BadInningMarker(t *testing.T) {
	snap := snapshot(false, []models.InningSummary{{Team: "home"}}, nil)
	out := teamTotalRuns("2 run AUS 3", snap)
	assert.Equal(t, OutcomeNotProcessable, out.Kind)
}

func TestTeamTotalRuns_MissingSummary(t *testing.T) {
	snap := snapshot(false, nil, nil)
	out := teamTotalRuns("2 run AUS", snap)
	assert.Equal(t, OutcomeNotAvailable, out.Kind)
}

func TestTotalMatchWickets(t *testing.T) {
	snap := snapshot(true, []models.InningSummary{
		{Team: "home", Runs: 208, Wickets: 10, Overs: 20},
		{Team: "away", Runs: 186, Wickets: 6, Overs: 18.4},
	}, nil)
	// The feed sometimes flags the end with the numeric code instead of
	// the string.
	snap.Match.Status.Name = models.StatusName{Code: 4, IsCode: true}

	out := totalMatchWickets("total match wkts", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(16), out.Value)
}

func TestTotalMatchWickets_InProgress(t *testing.T) {
	snap := snapshot(false, []models.InningSummary{{Team: "home", Wickets: 3}}, nil)
	out := totalMatchWickets("total match wkts", snap)
	assert.Equal(t, OutcomeInProgress, out.Kind)
}

func TestMatchNthOverRuns(t *testing.T) {
	events := []models.TimelineEvent{
		ball(1, 1, 1), ball(1, 1, 4), ball(1, 1, 0),
		ball(1, 2, 6), ball(1, 2, 2),
		ball(1, 3, 1),
	}
	snap := snapshot(false, []models.InningSummary{
		{Team: "home", Runs: 14, Wickets: 0, Overs: 3},
	}, events)

	out := matchNthOverRuns("Match 2nd over runs", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(13), out.Value, "cumulative runs through over 2")
}

func TestMatchNthOverRuns_NeverBowled(t *testing.T) {
	snap := snapshot(true, []models.InningSummary{
		{Team: "home", Runs: 40, Overs: 5.2},
	}, nil)

	out := matchNthOverRuns("Match 8th over runs", snap)
	assert.Equal(t, OutcomeNotProcessable, out.Kind)

	snap.Match.Status.Name = models.StatusName{}
	out = matchNthOverRuns("Match 8th over runs", snap)
	assert.Equal(t, OutcomeInProgress, out.Kind)
}

func TestTeamOverRuns(t *testing.T) {
	events := []models.TimelineEvent{
		ball(1, 1, 1), ball(1, 1, 4),
		ball(1, 2, 2), ball(1, 2, 0),
		ball(1, 3, 6),
	}
	snap := snapshot(false, []models.InningSummary{
		{Team: "home", Runs: 13, Wickets: 1, Overs: 3},
	}, events)

	out := teamOverRuns("2 over runs IND", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(7), out.Value)

	out = teamOverRuns("2.1 over runs IND", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(13), out.Value, "two overs plus one ball of the third")

	out = teamOverRuns("Only 2 over runs IND", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(2), out.Value, "only the second over itself")
}

func TestTeamOverRuns_OnlyOverWithExtraDelivery(t *testing.T) {
	// A wide keeps its slot in the over, so over 1 runs seven deliveries.
	events := []models.TimelineEvent{
		ball(1, 1, 1), ball(1, 1, 2), ball(1, 1, 0),
		ball(1, 1, 1), ball(1, 1, 1), wide(1, 1, 1),
		ball(1, 1, 4),
	}
	snap := snapshot(false, []models.InningSummary{
		{Team: "home", Runs: 10, Wickets: 0, Overs: 1.0},
	}, events)

	out := teamOverRuns("Only 1 over runs IND", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(10), out.Value, "the re-bowled seventh delivery still counts")
}

func TestTeamOverRuns_InningsEndedShort(t *testing.T) {
	snap := snapshot(true, []models.InningSummary{
		{Team: "home", Runs: 97, Wickets: 10, Overs: 12.4},
	}, nil)

	out := teamOverRuns("15 over run IND", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(97), out.Value, "innings total settles a never-reached over")
}

func TestTeamBallRuns(t *testing.T) {
	events := []models.TimelineEvent{
		ball(1, 1, 1), ball(1, 1, 4),
		ball(1, 2, 2), ball(1, 2, 0), ball(1, 2, 1),
	}
	snap := snapshot(false, []models.InningSummary{
		{Team: "home", Runs: 8, Overs: 2},
	}, events)

	out := teamBallRuns("1.2 ball runs IND", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(7), out.Value)

	out = teamBallRuns("4.2 ball runs IND", snap)
	assert.Equal(t, OutcomeInProgress, out.Kind)
}

func TestFallOfWicketRuns(t *testing.T) {
	events := []models.TimelineEvent{
		ball(1, 1, 4),
		wide(1, 1, 1),
		wicketEv(1, 1),
		ball(1, 2, 6),
		wicketEv(1, 2),
	}
	snap := snapshot(false, []models.InningSummary{
		{Team: "home", Runs: 11, Wickets: 2, Overs: 2},
	}, events)

	out := fallOfWicketRuns("Fall of 1st wkt IND", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(5), out.Value)

	out = fallOfWicketRuns("Fall of 2nd wkt IND", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(11), out.Value)
}

func TestFallOfWicketRuns_WicketPending(t *testing.T) {
	snap := snapshot(false, []models.InningSummary{
		{Team: "home", Runs: 50, Wickets: 1, Overs: 6},
	}, nil)

	out := fallOfWicketRuns("Fall of 3rd wkt IND", snap)
	assert.Equal(t, OutcomeInProgress, out.Kind)

	snap.Match.Status.Name = models.StatusName{Text: "Ended"}
	out = fallOfWicketRuns("Fall of 3rd wkt IND", snap)
	assert.Equal(t, OutcomeNotProcessable, out.Kind, "wicket can no longer fall")
}

func TestFallOfWicketRuns_InvalidWicket(t *testing.T) {
	snap := snapshot(false, []models.InningSummary{{Team: "home"}}, nil)
	out := fallOfWicketRuns("Fall of 11th wkt IND", snap)
	assert.Equal(t, OutcomeNotProcessable, out.Kind)
}

func TestWicketPartnershipBoundaries(t *testing.T) {
	events := []models.TimelineEvent{
		typedEv(1, models.EventTypeBoundary),
		wicketEv(1, 2),
		typedEv(1, models.EventTypeBoundary),
		typedEv(1, models.EventTypeBoundary),
		wicketEv(1, 5),
	}
	snap := snapshot(false, []models.InningSummary{
		{Team: "home", Runs: 40, Wickets: 2, Overs: 5},
	}, events)

	out := wicketPartnershipBoundaries("2nd wkt pship boundaries IND", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(2), out.Value, "boundaries between the first and second wicket")

	out = wicketPartnershipBoundaries("1st wkt pship boundaries IND", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(1), out.Value)
}

func TestExtrasAndWides(t *testing.T) {
	events := []models.TimelineEvent{
		ball(1, 1, 4),
		wide(1, 1, 1),
		{Inning: 1, Over: 2, Bowling: &models.BowlingRecord{ExtrasConceded: 2, ExtrasConcededType: "NB"}},
	}
	snap := snapshot(true, []models.InningSummary{{Team: "home"}}, events)

	out := totalMatchExtras("total match extras", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(3), out.Value)

	out = totalMatchWides("total match wides", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(1), out.Value)
}

func TestBoundaryAndSixCounts(t *testing.T) {
	events := []models.TimelineEvent{
		typedEv(1, models.EventTypeBoundary),
		typedEv(1, models.EventTypeSixer),
		typedEv(2, models.EventTypeBoundary),
		typedEv(2, models.EventTypeWicket),
	}
	snap := snapshot(true, []models.InningSummary{{Team: "home"}}, events)

	out := totalMatchBoundaries("total match fours", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(2), out.Value)

	out = totalMatchSixes("total match sixes", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(1), out.Value)
}

func TestDismissalCounts(t *testing.T) {
	snap := snapshot(true, []models.InningSummary{{Team: "home"}}, nil)
	snap.Innings = []models.InningScorecard{
		{Batsmen: []models.BatsmanLine{
			{Name: "A", Description: "Catch by mid-off"},
			{Name: "B", Description: "LBW"},
			{Name: "C", Description: "Bowled"},
			{Name: "D", DidNotBat: true, Description: "Catch"},
		}},
		{Batsmen: []models.BatsmanLine{
			{Name: "E", Description: "Catch at slip"},
			{Name: "F", Description: "Not out"},
		}},
	}

	out := totalMatchCaughtOuts("total match caught outs", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(2), out.Value, "did-not-bat rows never count")

	out = totalMatchLBW("total match lbw", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(1), out.Value)

	out = totalMatchBowled("total match bowled", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(1), out.Value)
}

func TestTotalMatchFifties(t *testing.T) {
	events := []models.TimelineEvent{
		strikerBall(1, 1, "Rohit Sharma", 12, 10),
		strikerBall(1, 10, "Rohit Sharma", 62, 40),
		strikerBall(1, 11, "Virat Kohli", 23, 18),
	}
	snap := snapshot(true, []models.InningSummary{{Team: "home"}}, events)

	out := totalMatchFifties("total match fifties", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(1), out.Value)
}

func TestTopBatsmanRuns(t *testing.T) {
	events := []models.TimelineEvent{
		strikerBall(1, 5, "Virat Kohli", 40, 31),
		strikerBall(1, 19, "Rohit Sharma", 81, 52),
	}
	snap := snapshot(true, []models.InningSummary{{Team: "home"}}, events)

	out := topBatsmanRuns("top batsman runs in match", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, "Rohit Sharma runs:81", out.Text)
	assert.False(t, out.Valid, "text results carry no numeric value")
}

func TestHighestScoringOver(t *testing.T) {
	events := []models.TimelineEvent{
		ball(1, 1, 4), ball(1, 1, 6),
		ball(1, 2, 1),
		ball(2, 1, 2),
	}
	snap := snapshot(true, []models.InningSummary{{Team: "home"}}, events)

	out := highestScoringOver("highest scoring over in match", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, "1:inning 10run in 1 over", out.Text)
}

func TestBowlerWicketsOrMore(t *testing.T) {
	events := []models.TimelineEvent{
		{Inning: 1, Bowling: &models.BowlingRecord{Bowler: models.PlayerLine{Name: "Bumrah", Wickets: 1}}},
		{Inning: 1, Bowling: &models.BowlingRecord{Bowler: models.PlayerLine{Name: "Bumrah", Wickets: 3}}},
		{Inning: 1, Bowling: &models.BowlingRecord{Bowler: models.PlayerLine{Name: "Shami", Wickets: 1}}},
	}
	snap := snapshot(true, []models.InningSummary{{Team: "home"}}, events)

	out := bowlerWicketsOrMore("2 wkt or more by bowler in match", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(3), out.Value)
}

func TestInningRuns(t *testing.T) {
	snap := snapshot(true, []models.InningSummary{
		{Team: "home", Runs: 250},
		{Team: "away", Runs: 180},
	}, nil)

	out := inningRuns("1st inning runs", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(250), out.Value)

	out = inningRuns("2nd innings runs", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(180), out.Value)

	out = inningRuns("3rd inning runs", snap)
	assert.Equal(t, OutcomeNotProcessable, out.Kind, "innings never played in an ended match")

	snap.Match.Status.Name = models.StatusName{}
	out = inningRuns("1st inning runs", snap)
	assert.Equal(t, OutcomeInProgress, out.Kind)
}

func TestPlayerRuns(t *testing.T) {
	events := []models.TimelineEvent{
		strikerBall(1, 3, "Virat Kohli", 17, 12),
		strikerBall(1, 20, "Virat Kohli", 74, 49),
	}
	snap := snapshot(true, []models.InningSummary{{Team: "home"}}, events)

	out := playerRuns("V Kohli run", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(74), out.Value)

	out = playerRuns("S Smith run", snap)
	assert.Equal(t, OutcomeNotProcessable, out.Kind)

	snap.Match.Status.Name = models.StatusName{}
	out = playerRuns("S Smith run", snap)
	assert.Equal(t, OutcomeInProgress, out.Kind, "player may still bat")
}

func TestPlayerBoundaries(t *testing.T) {
	ev := strikerBall(1, 15, "David Warner", 55, 40)
	ev.Batting.Striker.Fours = 7
	snap := snapshot(true, []models.InningSummary{{Team: "home"}}, []models.TimelineEvent{ev})

	out := playerBoundaries("D Warner boundaries", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(7), out.Value)
}

func TestPlayerBallsFaced(t *testing.T) {
	events := []models.TimelineEvent{
		strikerBall(1, 2, "Virat Kohli", 4, 6),
		strikerBall(1, 9, "Virat Kohli", 33, 25),
		strikerBall(1, 10, "Rohit Sharma", 50, 30),
	}
	snap := snapshot(true, []models.InningSummary{{Team: "home"}}, events)

	out := playerBallsFaced("How many balls face by V Kohli", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(25), out.Value, "latest running total wins")
}

func TestResolve_Dispatch(t *testing.T) {
	snap := snapshot(true, []models.InningSummary{
		{Team: "home", Runs: 100, Wickets: 4, Overs: 12},
	}, nil)

	kind, ok := classify.Classify("total match wkts")
	require.True(t, ok)

	out := Resolve(kind, "total match wkts", snap)
	require.Equal(t, OutcomeClosed, out.Kind)
	assert.Equal(t, float64(4), out.Value)

	out = Resolve(classify.Kind("bogus"), "whatever", snap)
	assert.Equal(t, OutcomeNotProcessable, out.Kind)
}
