package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prperemyshlev/school-auth-service/internal/domain"
	"github.com/prperemyshlev/school-auth-service/internal/repository"
	"github.com/prperemyshlev/school-auth-service/internal/repository/memory"
	"github.com/prperemyshlev/school-auth-service/internal/utils"
	"github.com/prperemyshlev/school-auth-service/pkg/observability"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "test-secret-key-that-is-at-least-32-chars"
	testEmail    = "student@school.test"
	testPassword = "Password123"
)

var t0 = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Send(ctx context.Context, to, subject, htmlBody string) error {
	args := m.Called(ctx, to, subject, htmlBody)
	return args.Error(0)
}

type fakeBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newFakeBlacklist() *fakeBlacklist {
	return &fakeBlacklist{revoked: map[string]time.Duration{}}
}

func (b *fakeBlacklist) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.revoked[tokenID] = ttl
	return nil
}

func (b *fakeBlacklist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.revoked[tokenID]
	return ok, nil
}

// sequence returns the given values in order, repeating the last one
func sequence[T any](values ...T) func() (T, error) {
	i := 0
	return func() (T, error) {
		v := values[i]
		if i < len(values)-1 {
			i++
		}
		return v, nil
	}
}

func refs(values ...string) func(int) (string, error) {
	next := sequence(values...)
	return func(int) (string, error) { return next() }
}

type testEnv struct {
	clock     *fakeClock
	repos     *repository.Repositories
	store     *memory.Store
	notifier  *mockNotifier
	blacklist *fakeBlacklist
	jwt       *utils.JWTManager
	otp       *otpManager
	sessions  SessionManager
	resets    *resetIssuer
	auth      AuthService
}

type envOption func(*envConfig)

type envConfig struct {
	otp        OTPConfig
	sessionTTL time.Duration
	tokenTTL   time.Duration
}

func withConsumeOnVerify() envOption {
	return func(c *envConfig) { c.otp.ConsumeOnVerify = true }
}

func withSessionTTL(d time.Duration) envOption {
	return func(c *envConfig) { c.sessionTTL = d }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	cfg := envConfig{
		otp:        OTPConfig{TTL: 2 * time.Minute, RefLength: 6},
		sessionTTL: 7 * 24 * time.Hour,
		tokenTTL:   24 * time.Hour,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := zaptest.NewLogger(t)
	metrics, err := observability.NewAuthMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	clock := newFakeClock(t0)
	repos, store := memory.NewRepositories()
	notifier := &mockNotifier{}
	blacklist := newFakeBlacklist()
	jwtManager := utils.NewJWTManager(testSecret, cfg.tokenTTL, clock)

	otp := NewOTPManager(repos.Credentials, repos.User, notifier, clock, metrics, logger, cfg.otp).(*otpManager)
	sessions := NewSessionManager(repos.Session, repos.User, clock, logger)
	resets := NewResetIssuer(repos.User, repos.ResetToken, notifier, clock, metrics, logger,
		ResetConfig{TTL: 2 * time.Hour, TokenLength: 40}).(*resetIssuer)

	auth := NewAuthService(AuthDeps{
		Users:       repos.User,
		Credentials: repos.Credentials,
		Verifier:    utils.NewBcryptVerifier(),
		Tokens:      jwtManager,
		OTP:         otp,
		Sessions:    sessions,
		Resets:      resets,
		Blacklist:   blacklist,
		Clock:       clock,
		Metrics:     metrics,
		Logger:      logger,
	}, AuthConfig{BcryptCost: bcrypt.MinCost, SessionTTL: cfg.sessionTTL})

	return &testEnv{
		clock:     clock,
		repos:     repos,
		store:     store,
		notifier:  notifier,
		blacklist: blacklist,
		jwt:       jwtManager,
		otp:       otp,
		sessions:  sessions,
		resets:    resets,
		auth:      auth,
	}
}

// seedUser stores a user with bcrypt credentials
func (e *testEnv) seedUser(t *testing.T, email, password string) *domain.User {
	t.Helper()
	ctx := context.Background()

	user := &domain.User{Email: email, Status: domain.UserStatusActive}
	require.NoError(t, e.repos.User.Create(ctx, user))

	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, e.repos.Credentials.Create(ctx, &domain.UserCredentials{UserID: user.ID, Password: hash}))

	return user
}

func (e *testEnv) expectSend(to, subject string, err error) {
	e.notifier.On("Send", mock.Anything, to, subject, mock.AnythingOfType("string")).Return(err)
}
