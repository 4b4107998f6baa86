package workout

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpeedMph(t *testing.T) {
	assert.Equal(t, 6.0, SpeedMph(3, 1800))
	assert.Equal(t, 0.0, SpeedMph(3, 0))
	assert.Equal(t, 0.0, SpeedMph(0, 600))
	assert.InDelta(t, 7.5, SpeedMph(1, 480), 0.0001)
}

func TestNewRunRecord_DerivesSpeed(t *testing.T) {
	rec := NewRunRecord(200, Run{
		DistanceMiles: 3,
		ElapsedSecs:   1800,
		SpeedMph:      123, // ignored
	})

	run, ok := rec.Run()
	require.True(t, ok)
	assert.Equal(t, 6.0, run.SpeedMph)
	assert.Equal(t, KindRun, rec.Kind())
	assert.Equal(t, int64(200), rec.Timestamp())

	_, ok = rec.Lift()
	assert.False(t, ok)
}

func TestRecord_LiftAccessors(t *testing.T) {
	rec := NewLiftRecord(100, Lift{Exercise: "Bench Press", WeightLbs: 135, TotalSets: 5})
	lift, ok := rec.Lift()
	require.True(t, ok)
	assert.Equal(t, "Bench Press", lift.Exercise)
	assert.False(t, rec.IsZero())

	_, ok = rec.Run()
	assert.False(t, ok)

	assert.True(t, Record{}.IsZero())
	assert.Equal(t, "lift@100 [Bench Press, 135.0 lbs, 5 sets]", rec.String())
}

func TestRecord_JSON(t *testing.T) {
	records := []Record{
		NewLiftRecord(100, Lift{Exercise: "Squat", WeightLbs: 225, TotalSets: 3}),
		NewRunRecord(200, Run{DistanceMiles: 3, ElapsedSecs: 1800, InclineDeg: 1.5}),
	}

	for _, rec := range records {
		recJson, err := json.Marshal(rec)
		require.NoError(t, err)

		var decoded Record
		require.NoError(t, json.Unmarshal(recJson, &decoded))
		assert.Equal(t, rec, decoded)
	}

	_, err := json.Marshal(Record{})
	assert.Error(t, err)

	var decoded Record
	err = json.Unmarshal([]byte(`{"timestamp":1,"kind":"lift","run":{"distance_miles":1}}`), &decoded)
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("lift")
	require.NoError(t, err)
	assert.Equal(t, KindLift, k)

	k, err = ParseKind("run")
	require.NoError(t, err)
	assert.Equal(t, KindRun, k)

	_, err = ParseKind("swim")
	assert.Error(t, err)
	assert.Equal(t, "unset", KindUnset.String())
}
