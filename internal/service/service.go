// Package service provides the main application service that integrates all components.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kahrendsen/andersgo/internal/analysis"
	"github.com/kahrendsen/andersgo/internal/repository"
	"github.com/kahrendsen/andersgo/internal/storage"
	"github.com/kahrendsen/andersgo/pkg/config"
	"github.com/kahrendsen/andersgo/pkg/ir"
	"github.com/kahrendsen/andersgo/pkg/parallel"
	"github.com/kahrendsen/andersgo/pkg/utils"
)

// Service is the main application service: it owns the database and
// storage connections and drives the pointer-analysis engine over
// submitted IR modules, persisting each run's outcome.
type Service struct {
	config  *config.Config
	logger  utils.Logger
	db      *repository.Repositories
	storage storage.Storage
	engine  *analysis.Engine

	running bool
}

// New creates a new Service instance.
func New(cfg *config.Config, logger utils.Logger) (*Service, error) {
	if logger == nil {
		logger = utils.NewDefaultLogger(utils.LevelInfo, nil)
	}

	return &Service{
		config: cfg,
		logger: logger,
		engine: analysis.New(engineOptions(cfg)),
	}, nil
}

// engineOptions translates the loaded configuration into the options
// the analysis engine expects.
func engineOptions(cfg *config.Config) analysis.Options {
	e := cfg.Engine
	return analysis.Options{
		FieldSensitive:  e.FieldSensitive,
		OCIOnly:         e.OCIOnly,
		NoSolve:         e.NoSolve,
		CheckConsUndef:  e.CheckConsUndef,
		CheckGlobalNull: e.CheckGlobalNull,
		FactorLSMinSz:   e.FactorLSMinSz,
		SolveRAMLimitMB: e.SolveRAMLimitMB,
		SolveTimeLimitS: e.SolveTimeLimitS,
		WLOrder:         string(e.WLOrder),
		DualWL:          e.DualWL,
		LCDSize:         e.LCDSize,
		LCDPeriod:       e.LCDPeriod,
	}
}

// Initialize initializes all service components.
func (s *Service) Initialize(ctx context.Context) error {
	s.logger.Info("Initializing service components...")

	if err := s.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := s.initStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := s.config.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	s.logger.Info("Service components initialized successfully")
	return nil
}

// initDatabase initializes the database connection and repositories.
func (s *Service) initDatabase() error {
	s.logger.Info("Connecting to database (%s)...", s.config.Database.Type)

	dbConfig := &repository.DBConfig{
		Type:     s.config.Database.Type,
		Host:     s.config.Database.Host,
		Port:     s.config.Database.Port,
		Database: s.config.Database.Database,
		User:     s.config.Database.User,
		Password: s.config.Database.Password,
		MaxConns: s.config.Database.MaxConns,
	}

	gormDB, err := repository.NewGormDB(dbConfig)
	if err != nil {
		return err
	}

	repos, err := repository.NewRepositories(gormDB, s.config.Database.Type)
	if err != nil {
		return err
	}
	s.db = repos
	s.logger.Info("Database connection established")

	return nil
}

// initStorage initializes the object storage used to archive diagnostics.
func (s *Service) initStorage() error {
	s.logger.Info("Initializing storage (%s)...", s.config.Storage.Type)

	store, err := storage.NewStorage(&s.config.Storage)
	if err != nil {
		return err
	}

	s.storage = store
	s.logger.Info("Storage initialized")

	return nil
}

// Start marks the service as accepting analysis requests. There is no
// background loop to launch: AnalyzeModule and AnalyzeModules run
// synchronously (or fanned out over a worker pool) on the caller's
// goroutine, so Start/Stop only set the running flag that IsRunning and
// Stats report.
func (s *Service) Start(ctx context.Context) error {
	s.logger.Info("Starting service...")
	s.running = true
	s.logger.Info("Service started successfully")
	return nil
}

// Stop stops the service gracefully, closing the database connection.
func (s *Service) Stop() error {
	s.logger.Info("Stopping service...")

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database connection: %v", err)
		}
	}

	s.running = false
	s.logger.Info("Service stopped")

	return nil
}

// IsRunning returns whether the service is running.
func (s *Service) IsRunning() bool {
	return s.running
}

// AnalyzeResult pairs a run's outcome with the module name it came from,
// so callers driving AnalyzeModules can match results back up.
type AnalyzeResult struct {
	ModuleName string
	Run        *analysis.Run
	RunID      uint
	Err        error
}

// AnalyzeModule runs the pointer analysis over mod, persisting a run
// record before and after so a crash mid-solve still leaves a
// "running" row behind instead of silently vanishing.
func (s *Service) AnalyzeModule(ctx context.Context, mod *ir.Module) (*analysis.Run, uint, error) {
	record := &repository.AnalysisRun{
		ModuleName:     mod.Name,
		Status:         repository.RunStatusRunning,
		FieldSensitive: s.config.Engine.FieldSensitive,
	}
	if s.db != nil {
		if err := s.db.Run.CreateRun(ctx, record); err != nil {
			return nil, 0, fmt.Errorf("failed to create run record: %w", err)
		}
	}

	start := time.Now()
	run := s.engine.Run(mod)
	total := time.Since(start)

	if s.db == nil {
		return run, record.ID, nil
	}

	diagKey, err := s.archiveDiagnostics(ctx, record.ID, run)
	if err != nil {
		s.logger.Warn("failed to archive diagnostics for run %d: %v", record.ID, err)
	}

	stats := repository.RunStats{
		NodeCount:         run.Arena.Len(),
		ConstraintCount:   len(run.Gen.Constraints),
		ObjectCount:       len(run.Gen.ObjNodes),
		SolveDurationMS:   run.Stats.Duration.Milliseconds(),
		TotalDurationMS:   total.Milliseconds(),
		TerminationReason: string(run.Stats.Termination),
		DiagnosticsKey:    diagKey,
	}
	if err := s.db.Run.CompleteRun(ctx, record.ID, stats); err != nil {
		return run, record.ID, fmt.Errorf("failed to persist run result: %w", err)
	}

	return run, record.ID, nil
}

// archiveDiagnostics uploads the generator's warnings to object storage
// under a per-run key, returning the key so it can be recorded on the
// run. A module with no warnings uploads nothing and returns "".
func (s *Service) archiveDiagnostics(ctx context.Context, runID uint, run *analysis.Run) (string, error) {
	if s.storage == nil || len(run.GenWarnings) == 0 {
		return "", nil
	}

	key := fmt.Sprintf("runs/%d/diagnostics.log", runID)
	body := strings.NewReader(strings.Join(run.GenWarnings, "\n"))
	if err := s.storage.Upload(ctx, key, body); err != nil {
		return "", err
	}
	return key, nil
}

// AnalyzeModules analyzes every module concurrently, bounded by the
// configured worker count, and reports each module's outcome without
// letting one failure abort the rest.
func (s *Service) AnalyzeModules(ctx context.Context, mods []*ir.Module) []AnalyzeResult {
	poolCfg := parallel.DefaultPoolConfig().WithWorkers(s.config.Scheduler.WorkerCount)
	pool := parallel.NewWorkerPool[*ir.Module, AnalyzeResult](poolCfg)

	results := pool.ExecuteFunc(ctx, mods, func(ctx context.Context, mod *ir.Module) (AnalyzeResult, error) {
		run, runID, err := s.AnalyzeModule(ctx, mod)
		if err != nil && s.db != nil {
			_ = s.db.Run.FailRun(ctx, runID, err.Error())
		}
		return AnalyzeResult{ModuleName: mod.Name, Run: run, RunID: runID, Err: err}, err
	})

	out := make([]AnalyzeResult, len(results))
	for i, r := range results {
		out[i] = r.Result
	}
	return out
}

// Stats returns service statistics.
func (s *Service) Stats() ServiceStats {
	return ServiceStats{Running: s.running}
}

// HealthCheck performs a health check on the service.
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.db != nil {
		if err := s.db.HealthCheck(ctx); err != nil {
			return fmt.Errorf("database health check failed: %w", err)
		}
	}

	return nil
}

// ServiceStats holds service statistics.
type ServiceStats struct {
	Running bool `json:"running"`
}
