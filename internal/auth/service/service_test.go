package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"wchic_backend/platform/httpkit"
	"wchic_backend/platform/logger"

	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

type testAdminConfig struct {
	user string
	pass string
	hash string
}

func (c testAdminConfig) GetJWTSecret() string            { return testSecret }
func (c testAdminConfig) GetAdminUser() string            { return c.user }
func (c testAdminConfig) GetAdminPassword() string        { return c.pass }
func (c testAdminConfig) GetAdminPasswordHash() string    { return c.hash }
func (c testAdminConfig) GetAdminTokenTTL() time.Duration { return 0 }

func TestLoginIssuesSevenDayAdminToken(t *testing.T) {
	svc := New(testAdminConfig{user: "admin", pass: "s3nha"}, logger.New("development"))

	token, expiresAt, err := svc.Login(context.Background(), "admin", "s3nha")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := httpkit.ParseToken(testSecret, token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Role != httpkit.RoleAdmin || claims.Subject != "admin" {
		t.Errorf("unexpected claims %+v", claims)
	}
	if ttl := time.Until(expiresAt); ttl < 7*24*time.Hour-time.Minute {
		t.Errorf("expected 7 day token, got %s", ttl)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := New(testAdminConfig{user: "admin", pass: "s3nha"}, logger.New("development"))

	for _, tc := range []struct{ user, pass string }{
		{"admin", "wrong"},
		{"root", "s3nha"},
		{"", ""},
	} {
		if _, _, err := svc.Login(context.Background(), tc.user, tc.pass); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s/%s: expected invalid credentials, got %v", tc.user, tc.pass, err)
		}
	}
}

func TestLoginPrefersPasswordHash(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	svc := New(testAdminConfig{user: "admin", pass: "plain-pass", hash: string(hash)}, logger.New("development"))

	if _, _, err := svc.Login(context.Background(), "admin", "hashed-pass"); err != nil {
		t.Fatalf("expected hash login to succeed: %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "admin", "plain-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected plain password to be ignored, got %v", err)
	}
}
