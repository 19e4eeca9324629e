package federation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rentwise/rentwise/backend/go-services/internal/autherr"
	"github.com/rentwise/rentwise/backend/go-services/internal/config"
	"github.com/rentwise/rentwise/backend/go-services/internal/models"
	"github.com/rentwise/rentwise/backend/go-services/internal/password"
	"github.com/rentwise/rentwise/backend/go-services/internal/tokens"
	"github.com/rentwise/rentwise/backend/go-services/internal/users"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func staticExchanger(openID string) Exchanger {
	return ExchangerFunc(func(ctx context.Context, code string) (*Identity, error) {
		return &Identity{ProviderUserID: openID}, nil
	})
}

func newEngine(t *testing.T) *tokens.Engine {
	t.Helper()
	cfg := &config.Config{}
	cfg.JWT.Secret = "federation-test-secret-0123456789"
	cfg.JWT.AccessTokenTTL = time.Hour
	eng, err := tokens.New(cfg)
	require.NoError(t, err)
	return eng
}

func newAdapter(t *testing.T, repo users.UserRepository, ex map[string]Exchanger) (*Adapter, *users.Service, *tokens.Engine) {
	t.Helper()
	svc := users.NewService(repo, password.NewBcryptHasher(bcrypt.MinCost))
	eng := newEngine(t)
	return NewAdapter(svc, eng, time.Second, ex), svc, eng
}

func TestLogin_CreatesUserOnFirstLogin(t *testing.T) {
	repo := users.NewMemoryRepository()
	a, _, eng := newAdapter(t, repo, map[string]Exchanger{ProviderWechat: staticExchanger("openid-1234")})
	ctx := context.Background()

	u, tok, err := a.Login(ctx, LoginRequest{Provider: ProviderWechat, Code: "c"})
	require.NoError(t, err)
	require.NotEmpty(t, u.ID)
	require.Equal(t, "user_1234", u.DisplayName)
	require.False(t, u.HasPassword())
	require.Equal(t, []models.Role{models.RoleTenant}, u.Roles)
	require.Equal(t, &models.ExternalIdentity{Provider: ProviderWechat, ProviderUserID: "openid-1234"}, u.ExternalIdentity)

	claims, err := eng.Validate(ctx, tok)
	require.NoError(t, err)
	require.Equal(t, u.ID, claims.UserID())
	require.Equal(t, 1, repo.Len())
}

func TestLogin_ExistingUserRefreshesProfile(t *testing.T) {
	repo := users.NewMemoryRepository()
	a, _, _ := newAdapter(t, repo, map[string]Exchanger{ProviderWechat: staticExchanger("openid-1")})
	ctx := context.Background()

	first, _, err := a.Login(ctx, LoginRequest{Provider: ProviderWechat, Code: "c", DisplayName: "Alice"})
	require.NoError(t, err)

	second, _, err := a.Login(ctx, LoginRequest{Provider: ProviderWechat, Code: "c2", DisplayName: "Alice B", Avatar: "https://img/a.png"})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Alice B", second.DisplayName)
	require.Equal(t, "https://img/a.png", second.Avatar)
	require.Equal(t, 1, repo.Len())

	// empty fields leave the stored profile alone
	third, _, err := a.Login(ctx, LoginRequest{Provider: ProviderWechat, Code: "c3"})
	require.NoError(t, err)
	require.Equal(t, "Alice B", third.DisplayName)
}

type failingPatchRepo struct {
	*users.MemoryRepository
}

func (failingPatchRepo) Patch(ctx context.Context, id string, p users.Patch) (*models.User, error) {
	return nil, errors.New("write failed")
}

// vanishingRepo reports a duplicate on insert but never finds the record.
type vanishingRepo struct {
	*users.MemoryRepository
}

func (vanishingRepo) Insert(ctx context.Context, u *models.User) (*models.User, error) {
	return nil, autherr.ErrDuplicateExternalIdentity
}

func TestLogin_DuplicateWithoutRecordIsInternal(t *testing.T) {
	repo := vanishingRepo{users.NewMemoryRepository()}
	a, _, _ := newAdapter(t, repo, map[string]Exchanger{ProviderWechat: staticExchanger("openid-gone")})

	_, _, err := a.Login(context.Background(), LoginRequest{Provider: ProviderWechat, Code: "c"})
	require.Error(t, err)
	require.NotErrorIs(t, err, autherr.ErrDuplicateExternalIdentity)
	require.Equal(t, "internal", autherr.Code(err))
}

func TestLogin_RefreshFailureDoesNotAbort(t *testing.T) {
	repo := failingPatchRepo{users.NewMemoryRepository()}
	a, _, _ := newAdapter(t, repo, map[string]Exchanger{ProviderWechat: staticExchanger("openid-1")})
	ctx := context.Background()

	first, _, err := a.Login(ctx, LoginRequest{Provider: ProviderWechat, Code: "c", DisplayName: "Old"})
	require.NoError(t, err)
	second, tok, err := a.Login(ctx, LoginRequest{Provider: ProviderWechat, Code: "c", DisplayName: "New"})
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "Old", second.DisplayName)
}

func TestLogin_ExchangeFailureTouchesNoState(t *testing.T) {
	repo := users.NewMemoryRepository()
	failing := ExchangerFunc(func(ctx context.Context, code string) (*Identity, error) {
		return nil, errors.New("provider down")
	})
	a, _, _ := newAdapter(t, repo, map[string]Exchanger{ProviderWechat: failing})

	_, _, err := a.Login(context.Background(), LoginRequest{Provider: ProviderWechat, Code: "c"})
	require.True(t, errors.Is(err, autherr.ErrFederationExchangeFailed))
	require.Equal(t, 0, repo.Len())
}

func TestLogin_UnknownProviderAndEmptyCode(t *testing.T) {
	repo := users.NewMemoryRepository()
	a, _, _ := newAdapter(t, repo, map[string]Exchanger{ProviderWechat: staticExchanger("o")})

	_, _, err := a.Login(context.Background(), LoginRequest{Provider: "github", Code: "c"})
	require.True(t, errors.Is(err, autherr.ErrFederationExchangeFailed))

	_, _, err = a.Login(context.Background(), LoginRequest{Provider: ProviderWechat})
	require.True(t, errors.Is(err, autherr.ErrFederationExchangeFailed))
	require.Equal(t, 0, repo.Len())
}

func TestLogin_EmptyProviderUserID(t *testing.T) {
	repo := users.NewMemoryRepository()
	a, _, _ := newAdapter(t, repo, map[string]Exchanger{ProviderWechat: staticExchanger("")})

	_, _, err := a.Login(context.Background(), LoginRequest{Provider: ProviderWechat, Code: "c"})
	require.True(t, errors.Is(err, autherr.ErrFederationExchangeFailed))
	require.Equal(t, 0, repo.Len())
}

func TestLogin_TimeoutIsExchangeFailure(t *testing.T) {
	repo := users.NewMemoryRepository()
	slow := ExchangerFunc(func(ctx context.Context, code string) (*Identity, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	svc := users.NewService(repo, password.NewBcryptHasher(bcrypt.MinCost))
	a := NewAdapter(svc, newEngine(t), 20*time.Millisecond, map[string]Exchanger{ProviderWechat: slow})

	start := time.Now()
	_, _, err := a.Login(context.Background(), LoginRequest{Provider: ProviderWechat, Code: "c"})
	require.True(t, errors.Is(err, autherr.ErrFederationExchangeFailed))
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, 0, repo.Len())
}

// raceRepo holds the first two external-identity lookups until both have
// observed "not found", forcing both logins into the create step.
type raceRepo struct {
	*users.MemoryRepository
	mu      sync.Mutex
	lookups int
	gate    chan struct{}
}

func (r *raceRepo) GetByExternalIdentity(ctx context.Context, provider, providerUserID string) (*models.User, error) {
	u, err := r.MemoryRepository.GetByExternalIdentity(ctx, provider, providerUserID)
	r.mu.Lock()
	r.lookups++
	n := r.lookups
	r.mu.Unlock()
	if n <= 2 {
		if n == 2 {
			close(r.gate)
		}
		<-r.gate
	}
	return u, err
}

func TestLogin_ConcurrentFirstLoginsYieldOneUser(t *testing.T) {
	repo := &raceRepo{MemoryRepository: users.NewMemoryRepository(), gate: make(chan struct{})}
	a, _, eng := newAdapter(t, repo, map[string]Exchanger{ProviderWechat: staticExchanger("openid-race")})
	ctx := context.Background()

	type result struct {
		user *models.User
		tok  string
		err  error
	}
	results := make([]result, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			u, tok, err := a.Login(ctx, LoginRequest{Provider: ProviderWechat, Code: "c"})
			results[i] = result{u, tok, err}
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, repo.Len())
	for _, r := range results {
		require.NoError(t, r.err)
		claims, err := eng.Validate(ctx, r.tok)
		require.NoError(t, err)
		require.Equal(t, results[0].user.ID, claims.UserID())
	}
	require.Equal(t, results[0].user.ID, results[1].user.ID)
}

func TestProviders(t *testing.T) {
	a, _, _ := newAdapter(t, users.NewMemoryRepository(), map[string]Exchanger{ProviderWechat: staticExchanger("o"), "oidc": staticExchanger("p")})
	require.ElementsMatch(t, []string{ProviderWechat, "oidc"}, a.Providers())
}
