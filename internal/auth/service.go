package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"medialens.io/internal/ids"
)

const (
	defaultIssuer     = "medialens"
	defaultAccessTTL  = 24 * time.Hour
	defaultRefreshTTL = 14 * 24 * time.Hour
	minSecretLength   = 16
)

// Service is the credential and session authority: it verifies submitted
// identities, mints token pairs, rotates refresh tokens and answers token
// authentication for the HTTP layer.
type Service struct {
	store      Store
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	fallbacks  []FallbackIdentity
	throttle   *LoginThrottle
	now        func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) ServiceOption {
	return func(s *Service) error {
		if v := strings.TrimSpace(issuer); v != "" {
			s.issuer = v
		}
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithFallbacks installs the configuration-defined break-glass identities.
func WithFallbacks(fallbacks []FallbackIdentity) ServiceOption {
	return func(s *Service) error {
		for _, f := range fallbacks {
			if !f.Role.Valid() {
				return errors.New("auth: fallback identity with invalid role")
			}
		}
		s.fallbacks = fallbacks
		return nil
	}
}

// WithThrottle bounds login attempts per subject.
func WithThrottle(t *LoginThrottle) ServiceOption {
	return func(s *Service) error {
		s.throttle = t
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the authority. The signing secret is mandatory and
// must carry enough entropy to make HS256 forgery impractical.
func NewService(store Store, secret string, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	secret = strings.TrimSpace(secret)
	if len(secret) < minSecretLength {
		return nil, errors.New("auth: signing secret too short")
	}
	svc := &Service{
		store:      store,
		secret:     []byte(secret),
		issuer:     defaultIssuer,
		accessTTL:  defaultAccessTTL,
		refreshTTL: defaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Login authenticates an email/password pair and issues a token pair. The
// order is fixed: stored credential first, configured fallbacks second; every
// rejection collapses to ErrInvalidCredentials so callers cannot enumerate
// accounts. subject feeds the attempt throttle (typically "email|ip").
func (s *Service) Login(ctx context.Context, email, password, subject string) (TokenPair, Principal, error) {
	if s.throttle != nil && !s.throttle.Allow(subject) {
		return TokenPair{}, Principal{}, ErrThrottled
	}
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return TokenPair{}, Principal{}, ErrInvalidCredentials
	}

	principal, err := s.authenticate(ctx, email, password)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	pair, err := s.mintTokens(ctx, principal)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	return pair, principal, nil
}

func (s *Service) authenticate(ctx context.Context, email, password string) (Principal, error) {
	user, err := s.store.Users().FindByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Active && VerifyPassword(user.PasswordHash, password) {
			return PrincipalFromUser(user), nil
		}
	case errors.Is(err, ErrNotFound):
		// fall through to fallbacks
	default:
		return Principal{}, err
	}

	for _, f := range s.fallbacks {
		if !f.Matches(email, password) {
			continue
		}
		// Prefer the stored record for id/role continuity when an active row
		// shares the fallback's email.
		if user != nil && user.Active {
			return PrincipalFromUser(user), nil
		}
		return Principal{
			ID:    fallbackSubjectPrefix + string(f.Role),
			Email: NormalizeEmail(f.Email),
			Name:  f.Name,
			Role:  f.Role,
		}, nil
	}
	return Principal{}, ErrInvalidCredentials
}

// Refresh rotates the submitted refresh token and issues a fresh pair. A
// token with a mismatched secret is revoked on the spot: a mismatch means
// the id leaked separately from the secret.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, Principal, error) {
	tokenID, secret, err := splitRefreshToken(refreshToken)
	if err != nil {
		return TokenPair{}, Principal{}, ErrInvalidToken
	}
	store := s.store.RefreshTokens()
	record, err := store.Find(ctx, tokenID)
	if err != nil {
		return TokenPair{}, Principal{}, ErrInvalidToken
	}
	if record.Revoked || s.now().After(record.ExpiresAt) {
		return TokenPair{}, Principal{}, ErrInvalidToken
	}
	if !secureCompareHash(record.TokenHash, secret) {
		_ = store.MarkRevoked(ctx, record.ID)
		return TokenPair{}, Principal{}, ErrInvalidToken
	}

	principal, err := s.principalForSubject(ctx, record.UserID, nil)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	if err := store.MarkRevoked(ctx, record.ID); err != nil {
		return TokenPair{}, Principal{}, err
	}
	pair, err := s.mintTokens(ctx, principal)
	if err != nil {
		return TokenPair{}, Principal{}, err
	}
	return pair, principal, nil
}

// Logout revokes the submitted refresh token. The access token stays valid
// until expiry; clients drop it from the session carrier.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	tokenID, _, err := splitRefreshToken(refreshToken)
	if err != nil {
		return ErrInvalidToken
	}
	if err := s.store.RefreshTokens().MarkRevoked(ctx, tokenID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	return nil
}

// RevokeAll revokes every refresh token belonging to userID (deactivation,
// credential reset).
func (s *Service) RevokeAll(ctx context.Context, userID string) error {
	return s.store.RefreshTokens().MarkRevokedByUser(ctx, userID)
}

// PurgeExpired deletes refresh tokens past their expiry. Rotation and logout
// only flip the revoked flag, so a periodic purge keeps the token table from
// growing without bound.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.store.RefreshTokens().DeleteExpired(ctx, s.now())
}

// AuthenticateToken validates an access token and resolves the principal.
// For stored users the row stays authoritative: deactivation or a role
// change takes effect on the next request, not at token expiry.
func (s *Service) AuthenticateToken(ctx context.Context, token string) (Principal, error) {
	claims, err := parseAccessToken(s.secret, s.issuer, token, s.now())
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	return s.principalForSubject(ctx, claims.Subject, claims)
}

func (s *Service) principalForSubject(ctx context.Context, subject string, claims *Claims) (Principal, error) {
	if strings.HasPrefix(subject, fallbackSubjectPrefix) {
		// The subject itself encodes the fixed role, so fallback sessions can
		// refresh without a backing row; claims only enrich display fields.
		role, err := ParseRole(strings.TrimPrefix(subject, fallbackSubjectPrefix))
		if err != nil {
			return Principal{}, ErrInvalidToken
		}
		p := Principal{ID: subject, Role: role}
		if claims != nil {
			p.Email = claims.Email
			p.Name = claims.Name
		}
		return p, nil
	}
	user, err := s.store.Users().Find(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Principal{}, ErrInvalidToken
		}
		return Principal{}, err
	}
	if !user.Active {
		return Principal{}, ErrInvalidToken
	}
	return PrincipalFromUser(user), nil
}

// AccessTTL exposes the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

func (s *Service) mintTokens(ctx context.Context, principal Principal) (TokenPair, error) {
	now := s.now()
	access, exp, err := signAccessToken(s.secret, s.issuer, principal, now, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rec, err := s.generateRefreshToken(principal.ID, now)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.store.RefreshTokens().Create(ctx, rec); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    exp,
	}, nil
}

func (s *Service) generateRefreshToken(userID string, now time.Time) (string, *RefreshToken, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", nil, err
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)
	tokenID := ids.New()
	sum := sha256.Sum256([]byte(secret))
	rec := &RefreshToken{
		ID:        tokenID,
		UserID:    userID,
		TokenHash: hex.EncodeToString(sum[:]),
		ExpiresAt: now.Add(s.refreshTTL),
	}
	return tokenID + "." + secret, rec, nil
}

func splitRefreshToken(raw string) (id, secret string, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("invalid refresh token format")
	}
	return parts[0], parts[1], nil
}

func secureCompareHash(expectedHash, secret string) bool {
	sum := sha256.Sum256([]byte(secret))
	actual := hex.EncodeToString(sum[:])
	if len(expectedHash) != len(actual) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(actual)) == 1
}
