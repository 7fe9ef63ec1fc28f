package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spinshop/internal/config"
	"github.com/spinshop/internal/constants"
	"github.com/spinshop/internal/models"
	"github.com/spinshop/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthServiceTest(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:auth_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Cart{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db
	cfg := &config.Config{}
	cfg.JWT.SecretKey = "unit-test-secret-key-0123456789abcdef"
	cfg.JWT.ExpireHours = 24
	cfg.Security.PasswordPolicy = config.PasswordPolicyConfig{
		MinLength:     8,
		RequireNumber: true,
	}
	return NewAuthService(cfg, repository.NewUserRepository(db), repository.NewCartRepository(db)), db
}

func TestAuthServiceRegister(t *testing.T) {
	svc, db := setupAuthServiceTest(t)

	user, token, expiresAt, err := svc.Register(" Buyer@Example.COM ", "Spinshop123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if user.Email != "buyer@example.com" {
		t.Fatalf("expected normalized email, got %s", user.Email)
	}
	if user.Role != constants.RoleUser {
		t.Fatalf("expected role user, got %s", user.Role)
	}
	if user.DisplayName != "buyer" {
		t.Fatalf("expected display name from email, got %s", user.DisplayName)
	}
	if token == "" || !expiresAt.After(time.Now()) {
		t.Fatalf("expected valid token, got %q expires %v", token, expiresAt)
	}
	if user.LastLoginAt == nil {
		t.Fatalf("expected last login set on register")
	}

	claims, err := svc.ParseJWT(token)
	if err != nil {
		t.Fatalf("parse jwt failed: %v", err)
	}
	if claims.UserID != user.ID || claims.Email != user.Email || claims.Role != constants.RoleUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	// 注册即开通启用中的购物车
	var cartCount int64
	if err := db.Model(&models.Cart{}).Where("user_id = ? AND enabled = ?", user.ID, true).Count(&cartCount).Error; err != nil {
		t.Fatalf("count carts failed: %v", err)
	}
	if cartCount != 1 {
		t.Fatalf("expected one active cart, got %d", cartCount)
	}

	if _, _, _, err := svc.Register("buyer@example.com", "Spinshop456"); !errors.Is(err, ErrEmailExists) {
		t.Fatalf("expected email exists, got: %v", err)
	}
	if _, _, _, err := svc.Register("not-an-email", "Spinshop123"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected invalid email, got: %v", err)
	}
	if _, _, _, err := svc.Register("second@example.com", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password for short, got: %v", err)
	}
	if _, _, _, err := svc.Register("second@example.com", "longenough"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password without number, got: %v", err)
	}
}

func TestAuthServiceLogin(t *testing.T) {
	svc, db := setupAuthServiceTest(t)
	user, _, _, err := svc.Register("buyer@example.com", "Spinshop123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, _, _, err := svc.Login("buyer@example.com", "WrongPass1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for wrong password, got: %v", err)
	}
	if _, _, _, err := svc.Login("ghost@example.com", "Spinshop123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got: %v", err)
	}
	if _, _, _, err := svc.Login("not-an-email", "Spinshop123"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected invalid email, got: %v", err)
	}

	if err := db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("status", constants.UserStatusDisabled).Error; err != nil {
		t.Fatalf("disable user failed: %v", err)
	}
	if _, _, _, err := svc.Login("buyer@example.com", "Spinshop123"); !errors.Is(err, ErrUserDisabled) {
		t.Fatalf("expected user disabled, got: %v", err)
	}
	if err := db.Model(&models.User{}).Where("id = ?", user.ID).
		Update("status", constants.UserStatusActive).Error; err != nil {
		t.Fatalf("enable user failed: %v", err)
	}

	logged, token, expiresAt, err := svc.Login("Buyer@Example.com", "Spinshop123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if logged.ID != user.ID || token == "" {
		t.Fatalf("unexpected login result: %+v token %q", logged, token)
	}
	if !expiresAt.After(time.Now().Add(23 * time.Hour)) {
		t.Fatalf("expected default expiry around 24h, got %v", expiresAt)
	}

	svc.cfg.JWT.RememberMeExpireHours = 72
	_, _, remembered, err := svc.LoginWithRememberMe("buyer@example.com", "Spinshop123", true)
	if err != nil {
		t.Fatalf("remember me login failed: %v", err)
	}
	if !remembered.After(time.Now().Add(48 * time.Hour)) {
		t.Fatalf("expected extended expiry, got %v", remembered)
	}
}

func TestAuthServiceChangePassword(t *testing.T) {
	svc, db := setupAuthServiceTest(t)
	user, _, _, err := svc.Register("buyer@example.com", "Spinshop123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := svc.ChangePassword(0, "Spinshop123", "NewSpin456"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected user not found for zero id, got: %v", err)
	}
	if err := svc.ChangePassword(user.ID+100, "Spinshop123", "NewSpin456"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected user not found for unknown id, got: %v", err)
	}
	if err := svc.ChangePassword(user.ID, "WrongOld1", "NewSpin456"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected invalid password, got: %v", err)
	}
	if err := svc.ChangePassword(user.ID, "Spinshop123", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected weak password, got: %v", err)
	}

	if err := svc.ChangePassword(user.ID, "Spinshop123", "NewSpin456"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	var stored models.User
	if err := db.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("load user failed: %v", err)
	}
	// 改密后作废存量 token
	if stored.TokenVersion != user.TokenVersion+1 {
		t.Fatalf("expected token version bumped, got %d", stored.TokenVersion)
	}
	if stored.TokenInvalidBefore == nil {
		t.Fatalf("expected token invalid before set")
	}

	if _, _, _, err := svc.Login("buyer@example.com", "Spinshop123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password rejected, got: %v", err)
	}
	if _, _, _, err := svc.Login("buyer@example.com", "NewSpin456"); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestAuthServiceUpdateProfile(t *testing.T) {
	svc, _ := setupAuthServiceTest(t)
	user, _, _, err := svc.Register("buyer@example.com", "Spinshop123")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if _, err := svc.UpdateProfile(user.ID, nil); !errors.Is(err, ErrProfileEmpty) {
		t.Fatalf("expected profile empty for nil, got: %v", err)
	}
	blank := "   "
	if _, err := svc.UpdateProfile(user.ID, &blank); !errors.Is(err, ErrProfileEmpty) {
		t.Fatalf("expected profile empty for blank, got: %v", err)
	}

	name := " DJ Spin "
	updated, err := svc.UpdateProfile(user.ID, &name)
	if err != nil {
		t.Fatalf("update profile failed: %v", err)
	}
	if updated.DisplayName != "DJ Spin" {
		t.Fatalf("expected trimmed display name, got %q", updated.DisplayName)
	}
}

func TestAuthServiceSetUsersStatus(t *testing.T) {
	svc, db := setupAuthServiceTest(t)
	first, _, _, err := svc.Register("first@example.com", "Spinshop123")
	if err != nil {
		t.Fatalf("register first failed: %v", err)
	}
	second, _, _, err := svc.Register("second@example.com", "Spinshop123")
	if err != nil {
		t.Fatalf("register second failed: %v", err)
	}

	if err := svc.SetUsersStatus([]uint{first.ID}, "frozen"); !errors.Is(err, ErrInvalidUserStatus) {
		t.Fatalf("expected invalid status, got: %v", err)
	}
	if err := svc.SetUsersStatus(nil, constants.UserStatusDisabled); err != nil {
		t.Fatalf("expected nil for empty ids, got: %v", err)
	}

	if err := svc.SetUsersStatus([]uint{first.ID, second.ID}, " Disabled "); err != nil {
		t.Fatalf("batch disable failed: %v", err)
	}
	var count int64
	if err := db.Model(&models.User{}).Where("status = ?", constants.UserStatusDisabled).Count(&count).Error; err != nil {
		t.Fatalf("count disabled failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 disabled users, got %d", count)
	}
}

func TestNormalizeEmail(t *testing.T) {
	normalized, err := normalizeEmail(" User@EXAMPLE.com ")
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if normalized != "user@example.com" {
		t.Fatalf("unexpected normalized email: %s", normalized)
	}
	if _, err := normalizeEmail(""); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected invalid email for empty, got: %v", err)
	}
	if _, err := normalizeEmail("missing-at-sign"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected invalid email for malformed, got: %v", err)
	}
}
