package services

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/SAP-F-2025/evaluation-service/internal/cache"
	"github.com/SAP-F-2025/evaluation-service/internal/grading"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	Grading  GradingConfig
	Progress ProgressConfig

	// Absolute tolerance for numeric answers; zero keeps the engine default.
	NumericTolerance float64
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	config ServiceManagerConfig

	// Service instances
	attemptService     AttemptService
	gradeService       GradeService
	progressService    ProgressService
	certificateService CertificateIssuer
	exportService      ExportService

	// Lifecycle management
	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		deps:   deps.withDefaults(),
		config: config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(deps Dependencies) ServiceManager {
	return NewServiceManager(deps, ServiceManagerConfig{
		Grading: GradingConfig{
			MaxScoreFallback: DefaultMaxScoreFallback,
		},
		Progress: ProgressConfig{
			MaxRetries: 3,
			CacheTTL:   cache.ProgressCacheConfig.TTL,
		},
	})
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if sm.deps.Repo == nil {
		return errors.New("service manager requires a repository")
	}

	sm.deps.Logger.Info("Initializing service manager")

	var engineOpts []grading.Option
	if sm.config.NumericTolerance > 0 {
		engineOpts = append(engineOpts, grading.WithNumericTolerance(sm.config.NumericTolerance))
	}
	engine := grading.NewEngine(engineOpts...)

	sm.certificateService = NewCertificateService(sm.deps)
	sm.deps.Logger.Info("Certificate service initialized")

	progress := newProgressService(sm.deps, sm.config.Progress, sm.certificateService)
	sm.progressService = progress
	sm.deps.Logger.Info("Progress service initialized")

	sm.attemptService = newAttemptService(sm.deps, engine, progress)
	sm.deps.Logger.Info("Attempt service initialized")

	sm.gradeService = newGradeService(sm.deps, sm.config.Grading, progress)
	sm.deps.Logger.Info("Grade service initialized")

	sm.exportService = NewExportService(sm.deps)
	sm.deps.Logger.Info("Export service initialized")

	sm.initialized = true
	sm.deps.Logger.Info("Service manager initialized successfully")

	return nil
}

// Service getters
func (sm *serviceManager) Attempt() AttemptService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.attemptService
}

func (sm *serviceManager) Grade() GradeService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.gradeService
}

func (sm *serviceManager) Progress() ProgressService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.progressService
}

func (sm *serviceManager) Certificate() CertificateIssuer {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.certificateService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.exportService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	// The service keeps working without Redis
	if err := sm.deps.Cache.HealthCheck(ctx); err != nil && !errors.Is(err, cache.ErrCacheNotAvailable) {
		sm.deps.Logger.Warn("Cache health check failed", "error", err)
	}
	return nil
}

// Shutdown flushes the event publisher. The repository belongs to its
// manager and is closed there.
func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.deps.Logger.Info("Shutting down service manager")

	if err := sm.deps.Publisher.Close(); err != nil {
		sm.deps.Logger.Error("Failed to close event publisher", "error", err)
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")

	return nil
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}
