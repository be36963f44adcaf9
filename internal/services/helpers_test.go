package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"closer-backend/internal/auth"
	"closer-backend/internal/models"
	"closer-backend/internal/repository"
	"closer-backend/internal/repository/memstore"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type sentMail struct {
	to        string
	verifyURL string
}

type fakeSender struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeSender) SendVerification(_ context.Context, to, verifyURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, verifyURL: verifyURL})
	return nil
}

func (f *fakeSender) last(t *testing.T) sentMail {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1]
}

// testEnv wires every service to one in-memory store and a fixed clock
type testEnv struct {
	store    *repository.Store
	sender   *fakeSender
	users    *UserService
	pairs    *PairService
	daily    *DailyService
	memories *MemoryService
	accounts *AccountService
	clock    time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memstore.NewRepositories()
	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	env := &testEnv{
		store:  store,
		sender: &fakeSender{},
		clock:  time.Date(2024, 4, 9, 15, 30, 0, 0, time.Local),
	}
	now := func() time.Time { return env.clock }

	env.users = NewUserService(store.Users, hasher, auth.NewJWTManager("test-secret"), env.sender, "https://closer.test", nil)
	env.pairs = NewPairService(store.Users, nil)
	env.daily = NewDailyService(store, nil)
	env.daily.now = now
	env.memories = NewMemoryService(store, nil, nil)
	env.memories.now = now
	env.accounts = NewAccountService(store.Accounts, nil)
	return env
}

// verifiedUser creates a verified user directly in the store
func (e *testEnv) verifiedUser(t *testing.T, email string) *models.User {
	t.Helper()
	u := &models.User{ID: email, Email: email, PasswordHash: "x", IsVerified: true, CreatedAt: e.clock}
	require.NoError(t, e.store.Users.Create(context.Background(), u))
	return u
}

// couple creates two verified users and pairs them through the pairing service
func (e *testEnv) couple(t *testing.T, a, b string) (*models.User, *models.User) {
	t.Helper()
	ctx := context.Background()
	ua := e.verifiedUser(t, a)
	ub := e.verifiedUser(t, b)

	code, err := e.pairs.GenerateInviteCode(ctx, ua.ID)
	require.NoError(t, err)
	_, err = e.pairs.RedeemInviteCode(ctx, ub.ID, code)
	require.NoError(t, err)

	ua, err = e.store.Users.GetByID(ctx, ua.ID)
	require.NoError(t, err)
	ub, err = e.store.Users.GetByID(ctx, ub.ID)
	require.NoError(t, err)
	return ua, ub
}

func (e *testEnv) seedQuestions(t *testing.T, questions ...models.Question) {
	t.Helper()
	require.NoError(t, e.store.Questions.Sync(context.Background(), questions))
}

var errSMTPDown = errors.New("smtp down")
