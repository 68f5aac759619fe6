package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"companion/domain/entities"
	"companion/domain/interfaces"
	"companion/events"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// ErrAccessDenied is returned when the access key is rejected or the
// exchange with the core API fails. The caller shows a blocking
// access-required state; no retry is offered.
var ErrAccessDenied = errors.New("access required")

// authService exchanges access keys for companion sessions.
type authService struct {
	client     interfaces.CoreAPIClient
	sessions   interfaces.SessionRepository
	publisher  interfaces.EventPublisher
	sessionTTL time.Duration
}

// NewAuthService creates a new auth service
func NewAuthService(client interfaces.CoreAPIClient, sessions interfaces.SessionRepository, publisher interfaces.EventPublisher, sessionTTL time.Duration) interfaces.AuthService {
	return &authService{
		client:     client,
		sessions:   sessions,
		publisher:  publisher,
		sessionTTL: sessionTTL,
	}
}

// Login exchanges an access key for an upstream access token, decodes the
// token payload for the user's identity, and persists a companion session.
func (s *authService) Login(ctx context.Context, accessKey string) (*entities.Session, error) {
	if accessKey == "" {
		return nil, ErrAccessDenied
	}

	accessToken, err := s.client.Login(ctx, accessKey)
	if err != nil {
		log.WithError(err).Warn("Access key exchange failed")
		return nil, ErrAccessDenied
	}

	address, profile, err := decodeIdentity(accessToken)
	if err != nil {
		log.WithError(err).Warn("Access token payload could not be decoded")
		return nil, ErrAccessDenied
	}

	now := time.Now().UTC()
	session := &entities.Session{
		Token:       uuid.NewString(),
		Address:     address,
		Profile:     profile,
		AccessToken: accessToken,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.sessionTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	s.publisher.Emit(ctx, events.SessionCreatedEvent{Address: address})

	log.WithFields(log.Fields{
		"address":   address,
		"expiresAt": session.ExpiresAt,
	}).Info("Session created")

	return session, nil
}

// Authenticate resolves a session token. Unknown or expired tokens resolve
// to nil without error; expired sessions are removed on sight.
func (s *authService) Authenticate(ctx context.Context, token string) (*entities.Session, error) {
	if token == "" {
		return nil, nil
	}
	session, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("failed to look up session: %w", err)
	}
	if session == nil {
		return nil, nil
	}
	if session.IsExpired() {
		if err := s.sessions.Delete(ctx, token); err != nil {
			log.WithError(err).Warn("Failed to delete expired session")
		}
		return nil, nil
	}
	return session, nil
}

// tokenInfo is the identity payload carried inside the upstream JWT.
type tokenInfo struct {
	Account string `json:"account"`
	Address string `json:"address"`
}

// decodeIdentity extracts the user's address and profile from the access
// token's payload segment. The token is issued and verified upstream; the
// companion only reads the claims, it does not validate the signature.
func decodeIdentity(accessToken string) (string, json.RawMessage, error) {
	parts := strings.Split(accessToken, ".")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("malformed access token: expected 3 segments, got %d", len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", nil, fmt.Errorf("failed to decode token payload: %w", err)
	}

	var claims struct {
		Info json.RawMessage `json:"info"`
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", nil, fmt.Errorf("failed to parse token claims: %w", err)
	}
	if len(claims.Info) == 0 {
		return "", nil, errors.New("token claims carry no identity info")
	}

	var info tokenInfo
	if err := json.Unmarshal(claims.Info, &info); err != nil {
		return "", nil, fmt.Errorf("failed to parse identity info: %w", err)
	}

	address := info.Account
	if address == "" {
		address = info.Address
	}
	if address == "" {
		return "", nil, errors.New("token identity carries no address")
	}

	return address, claims.Info, nil
}
