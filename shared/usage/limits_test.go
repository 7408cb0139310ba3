package usage

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		name      string
		current   int64
		limit     Limit
		want      int
		unlimited bool
	}{
		{"empty", 0, 10, 0, false},
		{"third rounds down", 1, 3, 33, false},
		{"two thirds rounds up", 2, 3, 67, false},
		{"half", 5, 10, 50, false},
		{"at cap", 10, 10, 100, false},
		{"over cap is not clamped", 15, 10, 150, false},
		{"zero cap", 0, 0, 100, false},
		{"unlimited bypasses", 1000, Unlimited, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, unlimited := Percentage(tt.current, tt.limit)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.unlimited, unlimited)
		})
	}
}

func TestEvaluate(t *testing.T) {
	below := Evaluate(ResourceSurveys, 2, 3)
	assert.True(t, below.Allowed)
	assert.Equal(t, Limit(1), below.Usage.Remaining)
	assert.NoError(t, below.Err())

	at := Evaluate(ResourceSurveys, 3, 3)
	assert.False(t, at.Allowed)
	assert.Contains(t, at.Reason, "limit of 3 surveys")
	assert.ErrorIs(t, at.Err(), ErrLimitReached)
	assert.Equal(t, Limit(0), at.Usage.Remaining)

	over := Evaluate(ResourceMembers, 7, 5)
	assert.False(t, over.Allowed)
	assert.Equal(t, Limit(0), over.Usage.Remaining)

	zero := Evaluate(ResourceOrganizations, 0, 0)
	assert.False(t, zero.Allowed)

	unlimited := Evaluate(ResourceSurveys, 1_000_000, Unlimited)
	assert.True(t, unlimited.Allowed)
	assert.True(t, unlimited.Usage.Unlimited)
	assert.Equal(t, Unlimited, unlimited.Usage.Remaining)
}

func TestLimitJSON(t *testing.T) {
	raw, err := json.Marshal(Measure(ResourceSurveys, 4, Unlimited))
	require.NoError(t, err)
	assert.JSONEq(t, `{"resource":"surveys","current":4,"limit":"unlimited","percentage":0,"unlimited":true,"remaining":"unlimited"}`, string(raw))

	raw, err = json.Marshal(Measure(ResourceSurveys, 1, 4))
	require.NoError(t, err)
	assert.JSONEq(t, `{"resource":"surveys","current":1,"limit":4,"percentage":25,"unlimited":false,"remaining":3}`, string(raw))

	var l Limit
	require.NoError(t, json.Unmarshal([]byte(`"unlimited"`), &l))
	assert.True(t, l.IsUnlimited())
	require.NoError(t, json.Unmarshal([]byte(`12`), &l))
	assert.Equal(t, Limit(12), l)
	assert.Error(t, json.Unmarshal([]byte(`-2`), &l))
	assert.Error(t, json.Unmarshal([]byte(`"lots"`), &l))
}

func TestParseTierAndResource(t *testing.T) {
	tier, err := ParseTier(" Pro ")
	require.NoError(t, err)
	assert.Equal(t, TierPro, tier)

	_, err = ParseTier("platinum")
	assert.Error(t, err)

	r, err := ParseResource("members")
	require.NoError(t, err)
	assert.Equal(t, ResourceMembers, r)

	_, err = ParseResource("widgets")
	assert.Error(t, err)
}
