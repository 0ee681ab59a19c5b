package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kahrendsen/andersgo/pkg/config"
	"github.com/kahrendsen/andersgo/pkg/ir"
	"github.com/kahrendsen/andersgo/pkg/ir/testir"
	"github.com/kahrendsen/andersgo/pkg/utils"
)

func testConfig() *config.Config {
	return &config.Config{
		Analysis: config.AnalysisConfig{
			Version: "1.0.0",
			DataDir: "./test_data",
		},
		Engine: config.EngineConfig{
			FieldSensitive: true,
			WLOrder:        config.WLOrderPrio,
			FactorLSMinSz:  2,
		},
		Database: config.DatabaseConfig{
			Type: "postgres",
			Host: "localhost",
			Port: 5432,
		},
		Storage: config.StorageConfig{
			Type:      "local",
			LocalPath: "./test_storage",
		},
		Scheduler: config.SchedulerConfig{
			WorkerCount:   5,
			TaskBatchSize: 10,
		},
	}
}

func TestService_New(t *testing.T) {
	cfg := testConfig()

	t.Run("WithLogger", func(t *testing.T) {
		logger := utils.NewDefaultLogger(utils.LevelInfo, nil)
		svc, err := New(cfg, logger)
		require.NoError(t, err)
		require.NotNil(t, svc)
		assert.False(t, svc.IsRunning())
	})

	t.Run("WithoutLogger", func(t *testing.T) {
		svc, err := New(cfg, nil)
		require.NoError(t, err)
		require.NotNil(t, svc)
	})
}

func TestService_Stats(t *testing.T) {
	svc, err := New(testConfig(), nil)
	require.NoError(t, err)

	stats := svc.Stats()
	assert.False(t, stats.Running)
}

func TestService_StartStop(t *testing.T) {
	svc, err := New(testConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, svc.Start(context.Background()))
	assert.True(t, svc.IsRunning())

	require.NoError(t, svc.Stop())
	assert.False(t, svc.IsRunning())
}

func TestServiceStats_JSON(t *testing.T) {
	stats := ServiceStats{
		Running: true,
	}
	assert.True(t, stats.Running)

	data, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.JSONEq(t, `{"running":true}`, string(data))
}

func TestService_HealthCheck_NoComponents(t *testing.T) {
	svc, err := New(testConfig(), nil)
	require.NoError(t, err)

	// HealthCheck should not fail when the database was never initialized
	// (a caller running AnalyzeModule against an in-memory-only Service
	// never calls Initialize).
	err = svc.HealthCheck(context.Background())
	assert.NoError(t, err)
}

func TestService_AnalyzeModule_NoDatabase(t *testing.T) {
	svc, err := New(testConfig(), nil)
	require.NoError(t, err)

	mod := testir.SimpleAssignment()
	run, runID, err := svc.AnalyzeModule(context.Background(), mod)
	require.NoError(t, err)
	require.NotNil(t, run)
	assert.Equal(t, uint(0), runID, "no database means no persisted run ID")
	assert.Greater(t, run.Arena.Len(), 0)
}

func TestService_AnalyzeModules_NoDatabase(t *testing.T) {
	svc, err := New(testConfig(), nil)
	require.NoError(t, err)

	mods := []*ir.Module{testir.SimpleAssignment(), testir.LoadStoreChain()}
	results := svc.AnalyzeModules(context.Background(), mods)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.NotNil(t, r.Run)
	}
}
