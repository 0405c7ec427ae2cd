package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexID_UnmarshalForms(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{`12345`, 12345},
		{`"12345"`, 12345},
		{`"1.236467"`, 1},
		{`1.236467`, 1},
		{`null`, 0},
	}
	for _, tc := range cases {
		var id FlexID
		require.NoError(t, json.Unmarshal([]byte(tc.in), &id), "input %s", tc.in)
		assert.Equal(t, tc.want, id.Int64(), "input %s", tc.in)
	}

	var id FlexID
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &id))
}

func TestEnvelope_Valid(t *testing.T) {
	good := Envelope{Success: true, Msg: "success", Status: 200, Data: json.RawMessage(`[]`)}
	assert.True(t, good.Valid())

	bad := []Envelope{
		{Success: false, Msg: "success", Status: 200, Data: json.RawMessage(`[]`)},
		{Success: true, Msg: "error", Status: 200, Data: json.RawMessage(`[]`)},
		{Success: true, Msg: "success", Status: 500, Data: json.RawMessage(`[]`)},
		{Success: true, Msg: "success", Status: 200, Data: json.RawMessage(`{}`)},
		{Success: true, Msg: "success", Status: 200},
	}
	for i, e := range bad {
		assert.False(t, e.Valid(), "case %d", i)
	}
}

func TestStatusName_BothEndedForms(t *testing.T) {
	var n StatusName
	require.NoError(t, json.Unmarshal([]byte(`"Ended"`), &n))
	assert.True(t, n.Ended())

	require.NoError(t, json.Unmarshal([]byte(`4`), &n))
	assert.True(t, n.Ended())

	require.NoError(t, json.Unmarshal([]byte(`"In Progress"`), &n))
	assert.False(t, n.Ended())

	require.NoError(t, json.Unmarshal([]byte(`0`), &n))
	assert.False(t, n.Ended(), "numeric zero is a real status, not ended")
}

func TestResultInfo_OrderedInnings(t *testing.T) {
	r := ResultInfo{Innings: map[string]InningSummary{
		"2":    {Runs: 180},
		"1":    {Runs: 250},
		"junk": {Runs: 999},
	}}
	ordered := r.OrderedInnings()
	require.Len(t, ordered, 2, "non-numeric keys are dropped")
	assert.Equal(t, 250, ordered[0].Runs)
	assert.Equal(t, 180, ordered[1].Runs)
}

func TestStatus_Terminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusNotAvailable.Terminal(), "not-available sessions keep polling")
	assert.True(t, StatusResolved.Terminal())
	assert.True(t, StatusNotHandled.Terminal())
	assert.True(t, StatusNotProcessable.Terminal())
	assert.True(t, StatusUnexpectedResult.Terminal())
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "PENDING", StatusPending.String())
	assert.Equal(t, "NOT_AVAILABLE", StatusNotAvailable.String())
	assert.Equal(t, "UNEXPECTED_RESULT", StatusUnexpectedResult.String())
}
