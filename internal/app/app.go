// Package app wires configuration into the sign-in service and its
// collaborators. The server and the terminal client share it.
package app

import (
	"context"
	"crypto"
	"database/sql"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	otpauthv1 "otp-session-auth/api/otpauth/v1"
	"otp-session-auth/internal/analytics"
	"otp-session-auth/internal/audit"
	auditrepo "otp-session-auth/internal/audit/repository"
	authservice "otp-session-auth/internal/auth/service"
	"otp-session-auth/internal/config"
	"otp-session-auth/internal/db"
	healthhandler "otp-session-auth/internal/health/handler"
	"otp-session-auth/internal/otp"
	otprepo "otp-session-auth/internal/otp/repository"
	"otp-session-auth/internal/policy/engine"
	"otp-session-auth/internal/security"
	"otp-session-auth/internal/session"
	sessionrepo "otp-session-auth/internal/session/repository"
	telemetryotel "otp-session-auth/internal/telemetry/otel"
	"otp-session-auth/internal/telemetry/producer"
)

// App holds the wired components. Optional parts are nil when not configured.
type App struct {
	Config      *config.Config
	Auth        *authservice.AuthService
	OTP         *otp.Manager
	Sessions    *session.Store
	Recorder    *analytics.Recorder
	AuditLogger *audit.Logger
	Health      *healthhandler.Server
	Metrics     *telemetryotel.Metrics
	Telemetry   *telemetryotel.Providers
	DB          *sql.DB
	Redis       redis.UniversalClient

	closers []func(context.Context) error
}

type options struct {
	authOpts  []authservice.Option
	telemetry bool
	tokens    bool
}

// Option configures New.
type Option func(*options)

// WithAuthOptions passes extra options to the auth service.
func WithAuthOptions(opts ...authservice.Option) Option {
	return func(o *options) { o.authOpts = append(o.authOpts, opts...) }
}

// WithoutTelemetry skips the OTel providers regardless of configuration.
func WithoutTelemetry() Option {
	return func(o *options) { o.telemetry = false }
}

// WithoutTokens disables session tokens. The terminal client keeps its
// session in the file store and never presents a token.
func WithoutTokens() Option {
	return func(o *options) { o.tokens = false }
}

// New connects every configured backend and builds the auth service. On
// error, whatever was opened is closed again.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (_ *App, err error) {
	o := options{telemetry: true, tokens: true}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	if err := a.openBackends(ctx, cfg); err != nil {
		return nil, err
	}

	emitters := []analytics.EventEmitter{analytics.NewLogEmitter(log.Logger)}
	if o.telemetry {
		providers, err := telemetryotel.NewProviders(ctx, cfg.OTelEndpoint, cfg.OTelServiceName, cfg.OTelInsecure)
		if err != nil {
			return nil, fmt.Errorf("app: telemetry: %w", err)
		}
		providers.SetGlobal()
		a.Telemetry = providers
		a.closers = append(a.closers, providers.Shutdown)
		a.Metrics = telemetryotel.NewMetrics(providers.MeterProvider)
		emitters = append(emitters, telemetryotel.NewEventEmitter(providers.LoggerProvider), a.Metrics)
	} else {
		a.Metrics = telemetryotel.NewMetrics(nil)
	}
	if p := producer.NewKafkaProducer(cfg.KafkaBrokersList(), cfg.AnalyticsKafkaTopic); p != nil {
		emitters = append(emitters, p)
		a.closers = append(a.closers, func(context.Context) error { return p.Close() })
	}
	if a.DB != nil {
		a.AuditLogger = audit.NewLogger(auditrepo.NewPostgresRepository(a.DB))
	} else {
		a.AuditLogger = audit.NewLogger(auditrepo.NewMemoryRepository())
	}
	emitters = append(emitters, a.AuditLogger)
	a.Recorder = analytics.NewRecorder(emitters...)

	otpRepo, err := a.otpRepository(cfg)
	if err != nil {
		return nil, err
	}
	a.OTP = otp.NewManager(otpRepo, a.Recorder,
		otp.WithValidity(cfg.OTPValidity),
		otp.WithMaxAttempts(cfg.OTPMaxAttempts),
	)

	sessRepo, err := a.sessionRepository(cfg)
	if err != nil {
		return nil, err
	}
	a.Sessions = session.NewStore(sessRepo)

	policy, err := engine.NewOPAEvaluatorFromFile(ctx, cfg.EmailPolicyFile)
	if err != nil {
		return nil, fmt.Errorf("app: email policy: %w", err)
	}

	authOpts := []authservice.Option{authservice.WithPolicy(policy)}
	if o.tokens {
		tokens, err := tokenProvider(cfg)
		if err != nil {
			return nil, err
		}
		authOpts = append(authOpts, authservice.WithTokens(tokens))
	}
	authOpts = append(authOpts, o.authOpts...)
	a.Auth, err = authservice.NewAuthService(a.OTP, a.Sessions, a.Recorder, authOpts...)
	if err != nil {
		return nil, err
	}

	checks := map[string]healthhandler.CheckFunc{"policy": healthhandler.PolicyCheck(policy)}
	if a.DB != nil {
		checks["postgres"] = healthhandler.PingCheck(a.DB)
	}
	if a.Redis != nil {
		rdb := a.Redis
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	a.Health = healthhandler.NewServer(checks,
		otpauthv1.AuthService_ServiceDesc.ServiceName,
		otpauthv1.AuditService_ServiceDesc.ServiceName,
	)
	return a, nil
}

func (a *App) openBackends(ctx context.Context, cfg *config.Config) error {
	if cfg.DatabaseURL != "" {
		sqlDB, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("app: postgres: %w", err)
		}
		a.DB = sqlDB
		a.closers = append(a.closers, func(context.Context) error { return sqlDB.Close() })
	}
	if cfg.OTPStore == config.StoreRedis || cfg.SessionStore == config.StoreRedis {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("app: redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		a.Redis = rdb
		a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("app: redis ping: %w", err)
		}
	}
	return nil
}

func (a *App) otpRepository(cfg *config.Config) (otprepo.Repository, error) {
	switch cfg.OTPStore {
	case config.StoreRedis:
		return otprepo.NewRedisRepository(a.Redis, "", cfg.OTPRecordRetention), nil
	case config.StoreMemory, "":
		return otprepo.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("app: unsupported OTP_STORE %q", cfg.OTPStore)
	}
}

func (a *App) sessionRepository(cfg *config.Config) (sessionrepo.Repository, error) {
	switch cfg.SessionStore {
	case config.StoreRedis:
		return sessionrepo.NewRedisRepository(a.Redis, "", cfg.SessionTokenTTL), nil
	case config.StorePostgres:
		if a.DB == nil {
			return nil, errors.New("app: SESSION_STORE=postgres needs DATABASE_URL")
		}
		return sessionrepo.NewPostgresRepository(a.DB), nil
	case config.StoreFile:
		dir := cfg.SessionDir
		if dir == "" {
			dir = sessionrepo.DefaultDir()
		}
		return sessionrepo.NewFileRepository(dir), nil
	case config.StoreMemory, "":
		return sessionrepo.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("app: unsupported SESSION_STORE %q", cfg.SessionStore)
	}
}

func tokenProvider(cfg *config.Config) (*security.TokenProvider, error) {
	var (
		priv crypto.Signer
		pub  crypto.PublicKey
		err  error
	)
	if cfg.JWTPrivateKey != "" {
		priv, err = security.ParsePrivateKey(cfg.JWTPrivateKey)
		if err != nil {
			return nil, fmt.Errorf("app: JWT_PRIVATE_KEY: %w", err)
		}
		pub, err = security.ParsePublicKey(cfg.JWTPublicKey)
		if err != nil {
			return nil, fmt.Errorf("app: JWT_PUBLIC_KEY: %w", err)
		}
		if err := security.CheckKeyPair(priv, pub); err != nil {
			return nil, fmt.Errorf("app: JWT keys: %w", err)
		}
	} else {
		log.Warn().Msg("app: JWT_PRIVATE_KEY not set, using an ephemeral signing key")
		priv, pub, err = security.GenerateEphemeralKey()
		if err != nil {
			return nil, fmt.Errorf("app: generate signing key: %w", err)
		}
	}
	return security.NewTokenProvider(priv, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.SessionTokenTTL), nil
}

// Close drains pending session saves and analytics, then releases backends
// in reverse order of opening.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if a.Sessions != nil {
		if err := a.Sessions.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("app: drain session saves: %w", err))
		}
	}
	if a.Recorder != nil {
		if err := a.Recorder.Wait(ctx); err != nil {
			errs = append(errs, fmt.Errorf("app: drain analytics: %w", err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
