package repositories

import "context"

// Repository groups every store the service needs
type Repository interface {
	// Course hierarchy (read-only)
	Hierarchy() HierarchyRepository
	Evaluation() EvaluationRepository

	// Attempt domain
	Attempt() AttemptRepository
	Answer() AnswerRepository

	// Grading and progress
	Grade() GradeRepository
	Enrollment() EnrollmentRepository
	ModuleOverride() ModuleOverrideRepository
	Certificate() CertificateRepository

	// User domain (read-only, external identity provider)
	User() UserRepository

	// WithTransaction runs fn against a repository bound to one transaction.
	// Returning an error rolls everything back.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
