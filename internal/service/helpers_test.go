package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	pkgcrypto "github.com/and161185/authcore/internal/crypto"
	"github.com/and161185/authcore/internal/model"
	"github.com/and161185/authcore/internal/repository"
	"github.com/and161185/authcore/internal/repository/memory"
	"github.com/and161185/authcore/internal/token"
)

const (
	testEmail    = "user1@test.com"
	testPassword = "Strong@123"
	accessTTL    = 15 * time.Minute
	refreshTTL   = time.Hour
)

// fakeClock is a manually advanced clock safe for concurrent reads.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	svc     *AuthServiceImpl
	ver     *Verifier
	entries *EntryServiceImpl
	clk     *fakeClock
	users   *memory.UserRepo
	issuer  *token.Issuer
}

func newEnv(t *testing.T, maxSessions int) *testEnv {
	t.Helper()
	store := memory.New()
	return newEnvWith(t, store.Users(), store.Entries(), maxSessions)
}

func newEnvWith(t *testing.T, users repository.UserRepository, entries repository.EntryRepository, maxSessions int) *testEnv {
	t.Helper()
	clk := newClock()
	hasher := pkgcrypto.NewHasher(bcrypt.MinCost, []byte("refresh-secret"))
	issuer := token.NewIssuer(token.Config{
		Secret:     []byte("access-secret"),
		AccessTTL:  accessTTL,
		RefreshTTL: refreshTTL,
	}, hasher)
	env := &testEnv{
		svc: NewAuthService(users, entries, hasher, issuer, Config{
			MaxSessions: maxSessions,
			Now:         clk.Now,
		}),
		ver:     NewVerifier(users, issuer, clk.Now),
		entries: NewEntryService(entries, clk.Now),
		clk:     clk,
		issuer:  issuer,
	}
	if mu, ok := users.(*memory.UserRepo); ok {
		env.users = mu
	}
	return env
}

// registerAndLogin creates the account and opens one session.
func (e *testEnv) registerAndLogin(t *testing.T, email string) model.Tokens {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.svc.Register(ctx, email, testPassword))
	tok, err := e.svc.Login(ctx, email, testPassword, model.ClientMeta{UserAgent: "test-agent", IP: "127.0.0.1"})
	require.NoError(t, err)
	return tok
}

// hookedUsers wraps a repository and lets tests override individual calls.
type hookedUsers struct {
	repository.UserRepository
	onCreate       func(ctx context.Context, u *model.User) error
	onGetByEmail   func(ctx context.Context, email string) (*model.User, error)
	onGetBySession func(ctx context.Context, hash string) (*model.User, error)
	onSave         func(ctx context.Context, u *model.User) error
}

func (h *hookedUsers) Create(ctx context.Context, u *model.User) error {
	if h.onCreate != nil {
		return h.onCreate(ctx, u)
	}
	return h.UserRepository.Create(ctx, u)
}

func (h *hookedUsers) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if h.onGetByEmail != nil {
		return h.onGetByEmail(ctx, email)
	}
	return h.UserRepository.GetByEmail(ctx, email)
}

func (h *hookedUsers) GetBySessionHash(ctx context.Context, hash string) (*model.User, error) {
	if h.onGetBySession != nil {
		return h.onGetBySession(ctx, hash)
	}
	return h.UserRepository.GetBySessionHash(ctx, hash)
}

func (h *hookedUsers) Save(ctx context.Context, u *model.User) error {
	if h.onSave != nil {
		return h.onSave(ctx, u)
	}
	return h.UserRepository.Save(ctx, u)
}
