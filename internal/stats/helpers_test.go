package stats

import (
	"testing"

	"cricketfancy/settlement/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestTeamShortName(t *testing.T) {
	assert.Equal(t, "IND", teamShortName("India"))
	assert.Equal(t, "AUS", teamShortName("Australia"))
	assert.Equal(t, "RCB", teamShortName("Royal Challengers Bangalore"))
	assert.Equal(t, "SL", teamShortName("Sri Lanka"))
	assert.Equal(t, "", teamShortName(""))
}

func TestTeamMatches(t *testing.T) {
	assert.True(t, teamMatches("2 run AUS", "Australia"))
	assert.True(t, teamMatches("50 run RCB", "Royal Challengers Bangalore"))
	assert.False(t, teamMatches("2 run ENG", "Australia"))

	// A T-prefixed code also matches without its leading T.
	assert.True(t, teamMatches("10 over runs KR", "The Kings Riders"))
}

func TestPlayerMatches(t *testing.T) {
	assert.True(t, playerMatches("Virat Kohli", "Virat Kohli"))
	assert.True(t, playerMatches("virat kohli", "Virat Kohli"))
	assert.True(t, playerMatches("V Kohli", "Virat Kohli"))
	assert.True(t, playerMatches("A B de Villiers", "Abraham Benjamin de Villiers"))
	assert.False(t, playerMatches("R Sharma", "Virat Kohli"))
	assert.False(t, playerMatches("Kohli", "Virat Kohli"))
}

func TestOverRuns_ExtrasReplaceBattedRuns(t *testing.T) {
	events := []models.TimelineEvent{
		ball(1, 1, 4),
		wide(1, 1, 1),
		ball(1, 1, 0),
		ball(1, 2, 6),
		ball(2, 1, 2),
	}

	byInning := overRuns(events)
	assert.Equal(t, []int{4, 1, 0}, byInning[1][1], "wide contributes its extras, not batted runs")
	assert.Equal(t, []int{6}, byInning[1][2])
	assert.Equal(t, []int{2}, byInning[2][1])

	assert.Equal(t, 11, sumOvers(byInning[1], 2))
	assert.Equal(t, 5, sumBalls(byInning[1], 1, 2))
	assert.Equal(t, 5, sumBalls(byInning[1], 1, 10), "ball prefix is clamped to the over length")
}

func TestInningsStart(t *testing.T) {
	start, ok := inningsStart(0)
	assert.True(t, ok)
	assert.Equal(t, 0, start)

	start, ok = inningsStart(2)
	assert.True(t, ok)
	assert.Equal(t, 2, start)

	_, ok = inningsStart(3)
	assert.False(t, ok)
}

func TestPairNotStarted(t *testing.T) {
	assert.True(t, pairNotStarted(0, 1))
	assert.False(t, pairNotStarted(0, 2))
	assert.True(t, pairNotStarted(2, 3))
	assert.False(t, pairNotStarted(2, 4))
}

func TestLastSeenStrikers(t *testing.T) {
	events := []models.TimelineEvent{
		strikerBall(1, 1, "Virat Kohli", 4, 1),
		strikerBall(1, 1, "Rohit Sharma", 1, 1),
		strikerBall(1, 2, "Virat Kohli", 52, 30),
	}
	strikers := lastSeenStrikers(events)
	assert.Equal(t, 52, strikers["Virat Kohli"].Runs, "last record carries the running total")
	assert.Equal(t, 1, strikers["Rohit Sharma"].Runs)
}
