package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prodigy2/autoRiaClone/internal/auth"
	"github.com/prodigy2/autoRiaClone/internal/domain"
	apperrors "github.com/prodigy2/autoRiaClone/pkg/errors"
)

// --- Mock Repositories ---

type mockRefreshTokenRepository struct {
	mock.Mock
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type mockRoleRepository struct {
	mock.Mock
}

func (m *mockRoleRepository) Create(ctx context.Context, role *domain.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *mockRoleRepository) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Role), args.Error(1)
}

func (m *mockRoleRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Role), args.Error(1)
}

func (m *mockRoleRepository) List(ctx context.Context) ([]domain.Role, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Role), args.Error(1)
}

func (m *mockRoleRepository) Update(ctx context.Context, role *domain.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *mockRoleRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockRoleRepository) AddPermission(ctx context.Context, roleID, permissionID string) error {
	args := m.Called(ctx, roleID, permissionID)
	return args.Error(0)
}

func (m *mockRoleRepository) RemovePermission(ctx context.Context, roleID, permissionID string) error {
	args := m.Called(ctx, roleID, permissionID)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestUserService(userRepo *mockUserRepository, tokenRepo *mockRefreshTokenRepository, roleRepo *mockRoleRepository) (*UserService, *auth.JWTManager) {
	logger := newTestLogger()
	jwtManager := auth.NewJWTManager("test-secret-at-least-32-characters", 15*time.Minute, 24*time.Hour)
	svc := NewUserService(userRepo, tokenRepo, roleRepo, jwtManager, newTestProducer(logger), logger)
	svc.SetBcryptCost(bcrypt.MinCost)
	return svc, jwtManager
}

func hashedUser(t *testing.T, password string) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &domain.User{
		ID:           "user-1",
		Email:        "alice@example.com",
		PasswordHash: string(hash),
		AccountTier:  domain.TierBase,
		IsActive:     true,
		Roles: []domain.Role{
			{ID: "role-seller", Name: domain.RoleSeller, Permissions: []domain.Permission{
				{ID: "p1", Name: domain.PermCreateAds},
				{ID: "p2", Name: domain.PermReadAds},
			}},
		},
	}
}

// --- Register ---

func TestRegister_DefaultsToBaseTierWithBuyerRole(t *testing.T) {
	userRepo := new(mockUserRepository)
	tokenRepo := new(mockRefreshTokenRepository)
	roleRepo := new(mockRoleRepository)
	svc, _ := newTestUserService(userRepo, tokenRepo, roleRepo)
	ctx := context.Background()

	userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil)
	roleRepo.On("GetByName", ctx, domain.RoleBuyer).
		Return(&domain.Role{ID: "role-buyer", Name: domain.RoleBuyer}, nil)
	userRepo.On("AssignRole", ctx, mock.AnythingOfType("string"), "role-buyer").Return(nil)

	user, err := svc.Register(ctx, RegisterInput{
		Email:     "  Alice@Example.COM ",
		Password:  "hunter2hunter2",
		FirstName: "Alice",
	})

	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, domain.TierBase, user.AccountTier)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "hunter2hunter2", user.PasswordHash)
	userRepo.AssertExpectations(t)
}

func TestRegister_ShortPassword(t *testing.T) {
	svc, _ := newTestUserService(new(mockUserRepository), new(mockRefreshTokenRepository), new(mockRoleRepository))

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@b.com", Password: "short"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

// --- Login ---

func TestLogin_TokenCarriesRolesAndPermissions(t *testing.T) {
	userRepo := new(mockUserRepository)
	tokenRepo := new(mockRefreshTokenRepository)
	svc, jwtManager := newTestUserService(userRepo, tokenRepo, new(mockRoleRepository))
	ctx := context.Background()

	user := hashedUser(t, "hunter2hunter2")
	userRepo.On("GetByEmail", ctx, "alice@example.com").Return(user, nil)
	tokenRepo.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).Return(nil)

	result, err := svc.Login(ctx, "alice@example.com", "hunter2hunter2")

	require.NoError(t, err)
	claims, err := jwtManager.ValidateAccessToken(result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, []string{domain.RoleSeller}, claims.Roles)
	assert.Equal(t, []string{domain.PermCreateAds, domain.PermReadAds}, claims.Permissions)
}

func TestLogin_ProfileOmitsSensitiveFields(t *testing.T) {
	userRepo := new(mockUserRepository)
	tokenRepo := new(mockRefreshTokenRepository)
	svc, _ := newTestUserService(userRepo, tokenRepo, new(mockRoleRepository))
	ctx := context.Background()

	user := hashedUser(t, "hunter2hunter2")
	userRepo.On("GetByEmail", ctx, "alice@example.com").Return(user, nil)
	tokenRepo.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).Return(nil)

	result, err := svc.Login(ctx, "alice@example.com", "hunter2hunter2")

	require.NoError(t, err)
	// The profile names roles but never the password hash or the
	// resolved permission set.
	assert.Equal(t, []string{domain.RoleSeller}, result.Profile.Roles)
	assert.Equal(t, "alice@example.com", result.Profile.Email)
	assert.Equal(t, domain.TierBase, result.Profile.AccountTier)
}

func TestLogin_WrongPassword(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc, _ := newTestUserService(userRepo, new(mockRefreshTokenRepository), new(mockRoleRepository))
	ctx := context.Background()

	userRepo.On("GetByEmail", ctx, "alice@example.com").Return(hashedUser(t, "hunter2hunter2"), nil)

	_, err := svc.Login(ctx, "alice@example.com", "wrong-password")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestLogin_UnknownEmailSameError(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc, _ := newTestUserService(userRepo, new(mockRefreshTokenRepository), new(mockRoleRepository))
	ctx := context.Background()

	userRepo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, apperrors.ErrNotFound)

	_, err := svc.Login(ctx, "ghost@example.com", "whatever-pass")

	require.Error(t, err)
	// Unknown email and wrong password are indistinguishable to callers.
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

func TestLogin_DeactivatedAccount(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc, _ := newTestUserService(userRepo, new(mockRefreshTokenRepository), new(mockRoleRepository))
	ctx := context.Background()

	user := hashedUser(t, "hunter2hunter2")
	user.IsActive = false
	userRepo.On("GetByEmail", ctx, "alice@example.com").Return(user, nil)

	_, err := svc.Login(ctx, "alice@example.com", "hunter2hunter2")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
}

// --- Refresh ---

func TestRefreshTokens_RotatesAndRevokes(t *testing.T) {
	userRepo := new(mockUserRepository)
	tokenRepo := new(mockRefreshTokenRepository)
	svc, jwtManager := newTestUserService(userRepo, tokenRepo, new(mockRoleRepository))
	ctx := context.Background()

	user := hashedUser(t, "hunter2hunter2")
	refresh, tokenID, expiresAt, err := jwtManager.GenerateRefreshToken(user.ID)
	require.NoError(t, err)

	stored := &domain.RefreshToken{
		ID:        tokenID,
		UserID:    user.ID,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}

	tokenRepo.On("GetByHash", ctx, mock.AnythingOfType("string")).Return(stored, nil)
	userRepo.On("GetByID", ctx, user.ID).Return(user, nil)
	tokenRepo.On("Revoke", ctx, tokenID).Return(nil)
	tokenRepo.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).Return(nil)

	pair, err := svc.RefreshTokens(ctx, refresh)

	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEqual(t, refresh, pair.RefreshToken)
	tokenRepo.AssertCalled(t, "Revoke", ctx, tokenID)
}

func TestRefreshTokens_ReplayRevokesFamily(t *testing.T) {
	userRepo := new(mockUserRepository)
	tokenRepo := new(mockRefreshTokenRepository)
	svc, jwtManager := newTestUserService(userRepo, tokenRepo, new(mockRoleRepository))
	ctx := context.Background()

	refresh, tokenID, expiresAt, err := jwtManager.GenerateRefreshToken("user-1")
	require.NoError(t, err)

	revoked := time.Now().UTC().Add(-time.Minute)
	stored := &domain.RefreshToken{
		ID:        tokenID,
		UserID:    "user-1",
		ExpiresAt: expiresAt,
		RevokedAt: &revoked,
	}

	tokenRepo.On("GetByHash", ctx, mock.AnythingOfType("string")).Return(stored, nil)
	tokenRepo.On("RevokeAllForUser", ctx, "user-1").Return(nil)

	_, err = svc.RefreshTokens(ctx, refresh)

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	tokenRepo.AssertCalled(t, "RevokeAllForUser", ctx, "user-1")
}

// --- Tier management ---

func TestUpgradeToPremium(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc, _ := newTestUserService(userRepo, new(mockRefreshTokenRepository), new(mockRoleRepository))
	ctx := context.Background()

	user := hashedUser(t, "hunter2hunter2")
	userRepo.On("GetByID", ctx, "user-1").Return(user, nil)
	userRepo.On("Update", ctx, mock.AnythingOfType("*domain.User")).Return(nil)

	got, err := svc.UpgradeToPremium(ctx, "user-1")

	require.NoError(t, err)
	assert.Equal(t, domain.TierPremium, got.AccountTier)
}

func TestUpgradeToPremium_InternalAccountRejected(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc, _ := newTestUserService(userRepo, new(mockRefreshTokenRepository), new(mockRoleRepository))
	ctx := context.Background()

	user := hashedUser(t, "hunter2hunter2")
	user.AccountTier = domain.TierInternal
	userRepo.On("GetByID", ctx, "user-1").Return(user, nil)

	_, err := svc.UpgradeToPremium(ctx, "user-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	userRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}
