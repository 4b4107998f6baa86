//go:build integration_test || all_tests

package records

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/gymlog/internal/db"
	"github.com/2beens/gymlog/internal/workout"
)

func testRepoSetup(t *testing.T) (*Repo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "gymlog",
		DBPassword:     os.Getenv("POSTGRES_PASSWORD"),
		TracingEnabled: false,
	})
	require.NoError(t, err)

	repo := NewRepo(dbPool)
	require.NoError(t, repo.Setup(timeoutCtx))

	return repo, func() {
		dbPool.Close()
	}
}

// fresh timestamps far from anything a previous run may have left
func testTimestamp() int64 {
	return time.Now().UnixMilli()*10 + gofakeit.Int64()%10
}

func TestRepo_AddGetDelete(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	liftTs := testTimestamp()
	runTs := liftTs + 1
	lift := workout.Lift{Exercise: gofakeit.Name(), WeightLbs: gofakeit.Float64Range(1, 500), TotalSets: gofakeit.Number(0, 10)}
	run := workout.Run{DistanceMiles: 2, ElapsedSecs: 1200, InclineDeg: -2}

	require.NoError(t, repo.Add(ctx, workout.NewLiftRecord(liftTs, lift)))
	require.NoError(t, repo.Add(ctx, workout.NewRunRecord(runTs, run)))
	assert.ErrorIs(t, repo.Add(ctx, workout.NewRunRecord(liftTs, run)), ErrTimestampExists)

	timestamps, err := repo.ListTimestamps(ctx)
	require.NoError(t, err)
	assert.Contains(t, timestamps, liftTs)
	assert.Contains(t, timestamps, runTs)

	gotLift, err := repo.GetLift(ctx, liftTs)
	require.NoError(t, err)
	require.NotNil(t, gotLift)
	assert.Equal(t, lift, *gotLift)

	noRun, err := repo.GetRun(ctx, liftTs)
	require.NoError(t, err)
	assert.Nil(t, noRun)

	gotRun, err := repo.GetRun(ctx, runTs)
	require.NoError(t, err)
	require.NotNil(t, gotRun)
	assert.Equal(t, 6.0, gotRun.SpeedMph)

	require.NoError(t, repo.Delete(ctx, liftTs))
	require.NoError(t, repo.Delete(ctx, runTs))
	assert.ErrorIs(t, repo.Delete(ctx, liftTs), ErrTimestampNotFound)

	gotLift, err = repo.GetLift(ctx, liftTs)
	require.NoError(t, err)
	assert.Nil(t, gotLift)
}
