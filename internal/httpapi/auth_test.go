package httpapi

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"totalhealth/backend/internal/domain"
	"totalhealth/backend/internal/store"
)

type userStoreStub struct {
	mu    sync.Mutex
	users map[string]domain.UserAccount
}

func (s *userStoreStub) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[string]domain.UserAccount)
	}
	s.users[user.Username] = user
	return nil
}

func (s *userStoreStub) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.UserAccount, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func TestAuthManagerIgnoresUnhashedPasswords(t *testing.T) {
	stub := &userStoreStub{
		users: map[string]domain.UserAccount{
			"frontdesk": {
				Username:  "frontdesk",
				Password:  "frontdesk123",
				Role:      domain.RoleCashier,
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager("test-secret", time.Hour, "480913", stub)
	_, err := manager.Login(context.Background(), domain.LoginRequest{
		Username: "frontdesk",
		Password: "frontdesk123",
	})
	if err == nil {
		t.Fatalf("expected login with an unhashed stored password to fail")
	}
}

func TestCreateStaffStoresPasswordHash(t *testing.T) {
	stub := &userStoreStub{
		users: map[string]domain.UserAccount{
			"admin": {
				Username:  "admin",
				Password:  "admin123",
				Role:      "admin",
				Active:    true,
				CreatedAt: time.Now().UTC(),
			},
		},
	}

	manager := NewAuthManager("test-secret", time.Hour, "123456", stub)
	staff, err := manager.CreateStaff(context.Background(), domain.StaffCreateRequest{
		Username: "floorlead",
		Password: "pass12345",
		Role:     "manager",
		Name:     "Floor Lead",
	})
	if err != nil {
		t.Fatalf("create staff failed: %v", err)
	}
	if staff.Username != "floorlead" || staff.Role != domain.RoleManager {
		t.Fatalf("unexpected staff %+v", staff)
	}

	users, err := stub.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("list users failed: %v", err)
	}
	var found *domain.UserAccount
	for i := range users {
		if users[i].Username == "floorlead" {
			found = &users[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("expected staff to be saved")
	}
	if found.Password == "pass12345" {
		t.Fatalf("expected staff password to be hashed")
	}
	if !strings.HasPrefix(found.Password, "$2") {
		t.Fatalf("expected bcrypt hash prefix, got %s", found.Password)
	}

	_, err = manager.Login(context.Background(), domain.LoginRequest{
		Username: "floorlead",
		Password: "pass12345",
	})
	if err != nil {
		t.Fatalf("login with hashed staff password failed: %v", err)
	}
	if found.Name != "Floor Lead" {
		t.Fatalf("expected display name to be stored, got %q", found.Name)
	}
}

func TestManagerPINIsHashedAndStillValidates(t *testing.T) {
	stub := &userStoreStub{users: map[string]domain.UserAccount{}}
	manager := NewAuthManager("test-secret", time.Hour, "654321", stub)

	if manager.managerPIN == "654321" {
		t.Fatalf("expected manager pin to be stored as hash, got plain-text")
	}

	if !manager.ValidateManagerPIN("654321") {
		t.Fatalf("expected manager pin validation to succeed")
	}

	if manager.ValidateManagerPIN("111111") {
		t.Fatalf("expected wrong manager pin to fail")
	}
}

func TestCreateStaffRejectsAdminRole(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "654321", &userStoreStub{})
	_, err := manager.CreateStaff(context.Background(), domain.StaffCreateRequest{
		Username: "superuser",
		Password: "pass12345",
		Role:     "admin",
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected admin role to be rejected as invalid input, got %v", err)
	}
}

func TestCreateStaffRejectsDuplicateUsername(t *testing.T) {
	users := &userStoreStub{}
	manager := NewAuthManager("test-secret", time.Hour, "654321", users)
	req := domain.StaffCreateRequest{Username: "nightshift", Password: "pass12345"}

	created, err := manager.CreateStaff(context.Background(), req)
	if err != nil {
		t.Fatalf("create staff: %v", err)
	}
	if created.Role != domain.RoleCashier || !created.Active {
		t.Fatalf("expected an active cashier by default, got %+v", created)
	}
	if _, err := manager.CreateStaff(context.Background(), req); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected duplicate username to conflict, got %v", err)
	}
	if staff := manager.ListStaff(context.Background()); len(staff) != 1 || staff[0].Username != "nightshift" {
		t.Fatalf("unexpected staff list %+v", staff)
	}
}

func TestParseTokenRejectsForeignIssuer(t *testing.T) {
	manager := NewAuthManager("test-secret-with-enough-length-123", time.Hour, "654321", nil)
	token, err := manager.sign("cashier", domain.RoleCashier, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	actor, err := manager.ParseToken(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if actor.Username != "cashier" || actor.Role != domain.RoleCashier {
		t.Fatalf("unexpected actor %+v", actor)
	}

	other := NewAuthManager("another-secret-with-enough-length", time.Hour, "654321", nil)
	if _, err := other.ParseToken(token); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}
