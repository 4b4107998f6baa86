package workout

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPayload_JSON_OnlyOneGroup(t *testing.T) {
	liftJson, err := json.Marshal(NewLiftPayload(100, Lift{Exercise: "Deadlift", WeightLbs: 315, TotalSets: 3}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"timestamp":100,"exercise":"Deadlift","weight_lbs":315,"total_sets":3}`, string(liftJson))

	runJson, err := json.Marshal(NewRunPayload(200, Run{DistanceMiles: 3, ElapsedSecs: 1800, InclineDeg: 2}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"timestamp":200,"distance_miles":3,"elapsed_secs":1800,"speed_mph":6,"incline_deg":2}`, string(runJson))
}

func TestPayload_RunZeroElapsed(t *testing.T) {
	p := NewRunPayload(1, Run{DistanceMiles: 5})
	require.NotNil(t, p.SpeedMph)
	assert.Equal(t, 0.0, *p.SpeedMph)
}

func TestPayload_Validate(t *testing.T) {
	neg := -1.0
	negSets := -2
	empty := "  "

	testCases := []struct {
		name        string
		payload     Payload
		expectedErr error
	}{
		{
			name:    "valid lift",
			payload: NewLiftPayload(1, Lift{Exercise: "Row", WeightLbs: 50, TotalSets: 4}),
		},
		{
			name:    "valid run",
			payload: NewRunPayload(1, Run{DistanceMiles: 1, ElapsedSecs: 400, InclineDeg: -3}),
		},
		{
			name:        "no timestamp",
			payload:     NewLiftPayload(0, Lift{Exercise: "Row"}),
			expectedErr: ErrInvalidTimestamp,
		},
		{
			name:        "empty",
			payload:     Payload{Timestamp: 1},
			expectedErr: ErrEmptyPayload,
		},
		{
			name: "mixed",
			payload: func() Payload {
				p := NewLiftPayload(1, Lift{Exercise: "Row"})
				p.DistanceMiles = &neg
				return p
			}(),
			expectedErr: ErrMixedPayload,
		},
		{
			name:        "incomplete lift",
			payload:     Payload{Timestamp: 1, Exercise: &empty},
			expectedErr: ErrIncompleteFields,
		},
		{
			name: "empty exercise",
			payload: func() Payload {
				p := NewLiftPayload(1, Lift{})
				p.Exercise = &empty
				return p
			}(),
			expectedErr: ErrEmptyExercise,
		},
		{
			name: "negative weight",
			payload: func() Payload {
				p := NewLiftPayload(1, Lift{Exercise: "Row"})
				p.WeightLbs = &neg
				return p
			}(),
			expectedErr: ErrNegativeValue,
		},
		{
			name: "negative sets",
			payload: func() Payload {
				p := NewLiftPayload(1, Lift{Exercise: "Row"})
				p.TotalSets = &negSets
				return p
			}(),
			expectedErr: ErrNegativeValue,
		},
		{
			name: "negative distance",
			payload: func() Payload {
				p := NewRunPayload(1, Run{})
				p.DistanceMiles = &neg
				return p
			}(),
			expectedErr: ErrNegativeValue,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.payload.Validate()
			if tc.expectedErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func TestPayload_Record(t *testing.T) {
	rec, err := NewLiftPayload(10, Lift{Exercise: " Bench Press ", WeightLbs: 135, TotalSets: 5}).Record()
	require.NoError(t, err)
	lift, ok := rec.Lift()
	require.True(t, ok)
	assert.Equal(t, "Bench Press", lift.Exercise)

	rec, err = NewRunPayload(20, Run{DistanceMiles: 3, ElapsedSecs: 1800}).Record()
	require.NoError(t, err)
	run, ok := rec.Run()
	require.True(t, ok)
	assert.Equal(t, 6.0, run.SpeedMph)

	_, err = Payload{Timestamp: 5}.Record()
	assert.ErrorIs(t, err, ErrEmptyPayload)
}
