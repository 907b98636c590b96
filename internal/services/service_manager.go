package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/placement-portal/daily-quiz-service/internal/cache"
	"github.com/placement-portal/daily-quiz-service/internal/events"
	"github.com/placement-portal/daily-quiz-service/internal/generator"
	"github.com/placement-portal/daily-quiz-service/internal/mailer"
	"github.com/placement-portal/daily-quiz-service/internal/otp"
	"github.com/placement-portal/daily-quiz-service/internal/repositories"
	"github.com/placement-portal/daily-quiz-service/internal/utils"
	"github.com/placement-portal/daily-quiz-service/internal/validator"
)

// ServiceManagerConfig carries the settings the services need beyond their
// injected dependencies.
type ServiceManagerConfig struct {
	Auth AuthConfig

	// GenerationTimeout bounds one LLM call.
	GenerationTimeout time.Duration
}

// ServiceManagerDeps bundles the constructed infrastructure handed to the
// manager.
type ServiceManagerDeps struct {
	DB        *gorm.DB
	Repo      repositories.Repository
	Logger    *slog.Logger
	Validator *validator.Validator
	Clock     utils.Clock
	Generator *generator.Generator
	Publisher events.EventPublisher
	Cache     *cache.CacheManager
	Mailer    mailer.Mailer
}

type serviceManager struct {
	deps   ServiceManagerDeps
	config ServiceManagerConfig

	quizService    QuizService
	scoringService ScoringService
	topicService   TopicService
	studentService StudentService
	authService    AuthService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(deps ServiceManagerDeps, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		deps:   deps,
		config: config,
	}
}

func (m *serviceManager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}
	if m.shutdown {
		return fmt.Errorf("service manager already shut down")
	}

	d := m.deps

	otpStore := otp.NewStore(d.Cache.OTP, cache.OTPCacheConfig.TTL, d.Logger)

	m.quizService = NewQuizService(d.Repo, d.Logger, d.Generator, d.Clock, d.Publisher, d.Cache.Snapshot)
	m.scoringService = NewScoringService(d.Repo, d.Logger, d.Validator, d.Clock, d.Publisher)
	m.topicService = NewTopicService(d.Repo, d.Logger, d.Validator)
	m.studentService = NewStudentService(d.Repo, d.Logger, d.Clock, d.Cache.Leaderboard)
	m.authService = NewAuthService(d.Repo, d.Logger, d.Validator, otpStore, d.Mailer, m.config.Auth)

	m.initialized = true
	d.Logger.Info("Service manager initialized")
	return nil
}

func (m *serviceManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.shutdown {
		return nil
	}
	m.shutdown = true

	if err := m.deps.Publisher.Close(); err != nil {
		m.deps.Logger.Error("Failed to close event publisher", "error", err)
	}

	m.deps.Logger.Info("Service manager shut down")
	return nil
}

func (m *serviceManager) HealthCheck(ctx context.Context) error {
	if err := m.deps.Repo.Ping(ctx); err != nil {
		return fmt.Errorf("database unhealthy: %w", err)
	}
	if err := m.deps.Cache.HealthCheck(ctx); err != nil {
		return fmt.Errorf("cache unhealthy: %w", err)
	}
	return nil
}

func (m *serviceManager) Quiz() QuizService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.quizService
}

func (m *serviceManager) Scoring() ScoringService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.scoringService
}

func (m *serviceManager) Topic() TopicService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.topicService
}

func (m *serviceManager) Student() StudentService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.studentService
}

func (m *serviceManager) Auth() AuthService {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.authService
}
