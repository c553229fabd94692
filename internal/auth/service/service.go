package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"wchic_backend/platform/config"
	"wchic_backend/platform/httpkit"
	"wchic_backend/platform/logger"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const (
	realmAdmin      = "admin"
	defaultTokenTTL = 7 * 24 * time.Hour
)

type Service struct {
	cfg config.AdminConfig
	log *logger.Logger
}

func New(cfg config.AdminConfig, log *logger.Logger) *Service {
	return &Service{cfg: cfg, log: log}
}

// Login checks the single admin credential and issues an admin token.
// ADMIN_PASS_HASH, when set, takes precedence over the plain password.
func (s *Service) Login(ctx context.Context, username, password string) (string, time.Time, error) {
	log := s.log.WithContext(ctx)

	if !s.checkUser(username) || !s.checkPassword(password) {
		log.AuthEvent(realmAdmin, username, false, "bad credentials")
		return "", time.Time{}, ErrInvalidCredentials
	}

	ttl := s.cfg.GetAdminTokenTTL()
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	token, expiresAt, err := httpkit.IssueToken(s.cfg.GetJWTSecret(), username, httpkit.RoleAdmin, ttl)
	if err != nil {
		return "", time.Time{}, err
	}

	log.AuthEvent(realmAdmin, username, true, "")
	return token, expiresAt, nil
}

func (s *Service) checkUser(username string) bool {
	want := s.cfg.GetAdminUser()
	return want != "" && subtle.ConstantTimeCompare([]byte(username), []byte(want)) == 1
}

func (s *Service) checkPassword(password string) bool {
	if hash := s.cfg.GetAdminPasswordHash(); hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}
	want := s.cfg.GetAdminPassword()
	return want != "" && subtle.ConstantTimeCompare([]byte(password), []byte(want)) == 1
}
