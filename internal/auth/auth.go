// Package auth verifies bearer tokens and turns them into request
// principals.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alnah/go-planprint/internal/reqctx"
)

// Sentinel errors for token operations.
var (
	ErrMissingToken     = errors.New("missing bearer token")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrMissingSubject   = errors.New("missing subject in claims")
	ErrWeakSecret       = errors.New("signing secret must be at least 32 bytes")
	ErrForbidden        = errors.New("principal lacks required role")
)

// MinSecretLength is the shortest accepted HMAC secret.
const MinSecretLength = 32

// DefaultIssuer is used when none is configured.
const DefaultIssuer = "planprint"

// Claims are the JWT claims carried by print requests.
type Claims struct {
	jwt.RegisteredClaims
	Username string   `json:"username"`
	Roles    []string `json:"roles,omitempty"`
}

// Service signs and verifies HS256 tokens.
type Service struct {
	secret []byte
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewService creates a Service. secret must be at least MinSecretLength
// bytes.
func NewService(secret, issuer string) (*Service, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	return &Service{
		secret: []byte(secret),
		issuer: issuer,
		leeway: 30 * time.Second,
		now:    time.Now,
	}, nil
}

// IssueInput describes the token to issue.
type IssueInput struct {
	Subject  string
	Username string
	Roles    []string
	TTL      time.Duration
}

// Issue signs a token for in. Used by the token subcommand and tests.
func (s *Service) Issue(in IssueInput) (string, time.Time, error) {
	if in.Subject == "" {
		return "", time.Time{}, ErrMissingSubject
	}
	ttl := in.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := s.now()
	expires := now.Add(ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   in.Subject,
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expires),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Username: in.Username,
		Roles:    in.Roles,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}
	return signed, expires, nil
}

// Verify parses and validates a token and returns its principal.
func (s *Service) Verify(token string) (*reqctx.Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.issuer),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return nil, ErrTokenNotYetValid
		default:
			return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	username := claims.Username
	if username == "" {
		username = claims.Subject
	}
	return &reqctx.Principal{Subject: claims.Subject, Username: username, Roles: claims.Roles}, nil
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

// Middleware rejects requests without a valid bearer token and installs
// the principal in the request context. With roles set, the principal
// must hold at least one of them.
func (s *Service) Middleware(logger *zap.Logger, roles ...string) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				unauthorized(w, err)
				return
			}
			p, err := s.Verify(token)
			if err != nil {
				logger.Info("rejected token", zap.String("path", r.URL.Path), zap.Error(err))
				unauthorized(w, err)
				return
			}
			if !hasAnyRole(p, roles) {
				logger.Info("forbidden", zap.String("subject", p.Subject), zap.Strings("required", roles))
				http.Error(w, ErrForbidden.Error(), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(reqctx.WithPrincipal(r.Context(), p)))
		})
	}
}

func hasAnyRole(p *reqctx.Principal, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	for _, role := range roles {
		if p.HasRole(role) {
			return true
		}
	}
	return false
}

func unauthorized(w http.ResponseWriter, err error) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="planprint"`)
	msg := ErrInvalidToken.Error()
	if errors.Is(err, ErrMissingToken) || errors.Is(err, ErrExpiredToken) {
		msg = err.Error()
	}
	http.Error(w, msg, http.StatusUnauthorized)
}
