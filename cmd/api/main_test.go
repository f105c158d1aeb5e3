package main

import (
	"context"
	"testing"
	"time"

	"github.com/harentsoaR/clinic-reception-api/internal/config"
	"github.com/harentsoaR/clinic-reception-api/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenMemoryBackendAndSeed(t *testing.T) {
	cfg := &config.Config{}
	cfg.Store.Driver = config.DriverMemory

	ctx := context.Background()
	be, err := openBackend(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, be.mongo)
	require.NoError(t, be.health.Ping(ctx))

	doctors := services.NewDoctorService(be.repos, 8, time.Minute, zap.NewNop())
	for i := range clinicDoctors {
		d := clinicDoctors[i]
		created, err := doctors.Upsert(ctx, &d)
		require.NoError(t, err)
		assert.True(t, created)
	}
	d := clinicDoctors[0]
	created, err := doctors.Upsert(ctx, &d)
	require.NoError(t, err)
	assert.False(t, created)

	list, err := doctors.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	counts, err := be.health.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts["doctors"])
	require.NoError(t, be.close(ctx))
}

func TestSubcommands(t *testing.T) {
	assert.Equal(t, "serve", serveCmd().Name())
	assert.Equal(t, "migrate-ids", migrateIDsCmd().Name())
	assert.Equal(t, "seed-doctors", seedDoctorsCmd().Name())
	assert.Equal(t, "watch", watchCmd().Name())
	assert.NotNil(t, migrateIDsCmd().Flags().Lookup("dry-run"))
	assert.NotNil(t, watchCmd().Flags().Lookup("doctor"))
}
