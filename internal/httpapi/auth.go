package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"totalhealth/backend/internal/domain"
	"totalhealth/backend/internal/store"
)

const (
	tokenIssuer       = "totalhealth-pos"
	userStoreTimeout  = 5 * time.Second
	minStaffPassword  = 8
	minStaffUsername  = 4
	defaultSessionTTL = 8 * time.Hour
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errInactiveAccount    = errors.New("account is inactive")
	errInvalidToken       = errors.New("invalid or expired token")
)

// AuthManager signs staff sessions and keeps a credential cache that is
// refreshed from the user store on every login and staff operation.
type AuthManager struct {
	mu         sync.RWMutex
	secret     []byte
	tokenTTL   time.Duration
	managerPIN string
	userStore  UserStore
	users      map[string]credential
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}

type credential struct {
	hash    string
	role    string
	name    string
	active  bool
	created time.Time
}

func (c credential) staffUser(username string) domain.StaffUser {
	return domain.StaffUser{
		Username:  username,
		Role:      c.role,
		Name:      c.name,
		Active:    c.active,
		CreatedAt: c.created,
	}
}

type staffClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

// NewAuthManager hashes the manager PIN up front. An empty secret falls back
// to a random per-process key, so tokens do not survive a restart.
func NewAuthManager(secret string, tokenTTL time.Duration, managerPIN string, userStore UserStore) *AuthManager {
	if secret == "" {
		log.Println("[auth] WARN: AUTH_SECRET is empty, using a random per-process key")
		secret = uuid.NewString() + uuid.NewString()
	}
	if tokenTTL <= 0 {
		tokenTTL = defaultSessionTTL
	}

	manager := &AuthManager{
		secret:    []byte(secret),
		tokenTTL:  tokenTTL,
		userStore: userStore,
		users:     make(map[string]credential),
	}
	if pin := strings.TrimSpace(managerPIN); pin != "" {
		hashed, err := hashPassword(pin)
		if err != nil {
			log.Printf("[auth] WARN: manager pin disabled: %v", err)
		} else {
			manager.managerPIN = hashed
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), userStoreTimeout)
	defer cancel()
	manager.refresh(ctx)
	return manager
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	storeCtx, cancel := context.WithTimeout(ctx, userStoreTimeout)
	a.refresh(storeCtx)
	cancel()

	username := normalizeUsername(req.Username)
	cred, ok := a.lookup(username)
	if !ok || !verifyPassword(cred.hash, req.Password) {
		return domain.LoginResponse{}, errInvalidCredentials
	}
	if !cred.active {
		return domain.LoginResponse{}, errInactiveAccount
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(username, cred.role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		Role:        cred.role,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &staffClaims{}
	_, err := jwtlib.ParseWithClaims(tokenStr, claims, func(*jwtlib.Token) (any, error) {
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithIssuer(tokenIssuer), jwtlib.WithExpirationRequired())
	if err != nil {
		return domain.Actor{}, errInvalidToken
	}
	if claims.Subject == "" || claims.Role == "" {
		return domain.Actor{}, errInvalidToken
	}
	return domain.Actor{Username: claims.Subject, Role: claims.Role}, nil
}

func (a *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	now := time.Now().UTC()
	claims := staffClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			Issuer:    tokenIssuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		},
		Role: role,
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(a.secret)
}

// ValidateManagerPIN is always false when no PIN was configured.
func (a *AuthManager) ValidateManagerPIN(pin string) bool {
	return verifyPassword(a.managerPIN, strings.TrimSpace(pin))
}

// CreateStaff registers a cashier or manager account. Admin accounts are
// provisioned out of band. Validation failures wrap store.ErrInvalidInput and
// a taken username wraps store.ErrConflict.
func (a *AuthManager) CreateStaff(ctx context.Context, req domain.StaffCreateRequest) (domain.StaffUser, error) {
	account, err := newStaffAccount(req)
	if err != nil {
		return domain.StaffUser{}, err
	}

	a.refresh(ctx)
	if _, taken := a.lookup(account.Username); taken {
		return domain.StaffUser{}, fmt.Errorf("%w: username %s already exists", store.ErrConflict, account.Username)
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return domain.StaffUser{}, fmt.Errorf("hash password: %w", err)
	}
	account.Password = hash
	if a.userStore != nil {
		if err := a.userStore.CreateUser(ctx, account); err != nil {
			return domain.StaffUser{}, err
		}
	}

	cred := credentialFrom(account)
	a.mu.Lock()
	a.users[account.Username] = cred
	a.mu.Unlock()
	return cred.staffUser(account.Username), nil
}

// ListStaff returns cashiers and managers ordered by username.
func (a *AuthManager) ListStaff(ctx context.Context) []domain.StaffUser {
	a.refresh(ctx)

	a.mu.RLock()
	result := make([]domain.StaffUser, 0, len(a.users))
	for username, cred := range a.users {
		if cred.role == domain.RoleAdmin {
			continue
		}
		result = append(result, cred.staffUser(username))
	}
	a.mu.RUnlock()

	slices.SortFunc(result, func(x, y domain.StaffUser) int {
		return strings.Compare(x.Username, y.Username)
	})
	return result
}

func (a *AuthManager) lookup(username string) (credential, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	cred, ok := a.users[username]
	return cred, ok
}

// refresh merges the user store into the credential cache. Accounts whose
// stored password is not a bcrypt hash are left out.
func (a *AuthManager) refresh(ctx context.Context) {
	if a.userStore == nil {
		return
	}
	users, err := a.userStore.ListUsers(ctx)
	if err != nil {
		log.Printf("[auth] WARN: failed to load users: %v", err)
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, user := range users {
		username := normalizeUsername(user.Username)
		if username == "" {
			continue
		}
		if !isPasswordHash(user.Password) {
			log.Printf("[auth] WARN: skipping %s: stored password is not a bcrypt hash", username)
			continue
		}
		a.users[username] = credentialFrom(user)
	}
}

func newStaffAccount(req domain.StaffCreateRequest) (domain.UserAccount, error) {
	username := normalizeUsername(req.Username)
	switch {
	case len(username) < minStaffUsername:
		return domain.UserAccount{}, fmt.Errorf("%w: username must be at least %d characters", store.ErrInvalidInput, minStaffUsername)
	case strings.ContainsAny(username, " \t\r\n"):
		return domain.UserAccount{}, fmt.Errorf("%w: username must not contain spaces", store.ErrInvalidInput)
	case len(strings.TrimSpace(req.Password)) < minStaffPassword:
		return domain.UserAccount{}, fmt.Errorf("%w: password must be at least %d characters", store.ErrInvalidInput, minStaffPassword)
	}

	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = domain.RoleCashier
	}
	if role != domain.RoleCashier && role != domain.RoleManager {
		return domain.UserAccount{}, fmt.Errorf("%w: role must be cashier or manager", store.ErrInvalidInput)
	}

	return domain.UserAccount{
		Username:  username,
		Role:      role,
		Name:      strings.TrimSpace(req.Name),
		Email:     strings.TrimSpace(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func credentialFrom(user domain.UserAccount) credential {
	return credential{
		hash:    user.Password,
		role:    user.Role,
		name:    user.Name,
		active:  user.Active,
		created: user.CreatedAt,
	}
}

func normalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func verifyPassword(hash string, input string) bool {
	if input == "" || !isPasswordHash(hash) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func isPasswordHash(value string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(value, prefix) {
			return true
		}
	}
	return false
}
