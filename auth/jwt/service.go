// Package jwt issues and verifies the HMAC bearer tokens that guard the
// completion API.
//
//	svc, err := jwt.NewService(cfg)
//	token, err := svc.Generate("ci-pipeline", 0)
//	claims, err := svc.Parse(token)
package jwt

import (
	stderrors "errors"
	"fmt"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kbukum/portalgpt/errors"
)

// Claims are the registered claims portalgpt issues.
type Claims struct {
	gojwt.RegisteredClaims
}

// Service signs and parses tokens. It is safe for concurrent use.
type Service struct {
	cfg    Config
	method gojwt.SigningMethod
	now    func() time.Time
}

func NewService(cfg Config) (*Service, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("jwt: %w", err)
	}
	return &Service{cfg: cfg, method: cfg.signingMethod(), now: time.Now}, nil
}

// Generate signs a token for subject. A ttl of zero uses Config.TTL.
func (s *Service) Generate(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", stderrors.New("jwt: subject is required")
	}
	if ttl <= 0 {
		ttl = s.cfg.TTL
	}
	now := s.now()
	claims := Claims{RegisteredClaims: gojwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    s.cfg.Issuer,
		IssuedAt:  gojwt.NewNumericDate(now),
		NotBefore: gojwt.NewNumericDate(now),
		ExpiresAt: gojwt.NewNumericDate(now.Add(ttl)),
	}}
	if s.cfg.Audience != "" {
		claims.Audience = gojwt.ClaimStrings{s.cfg.Audience}
	}

	signed, err := gojwt.NewWithClaims(s.method, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, expiry, issuer and audience. Failures are
// AppErrors: TokenExpired for an expired token, InvalidToken otherwise.
func (s *Service) Parse(token string) (*Claims, error) {
	opts := []gojwt.ParserOption{
		gojwt.WithValidMethods([]string{s.method.Alg()}),
		gojwt.WithIssuer(s.cfg.Issuer),
		gojwt.WithExpirationRequired(),
		gojwt.WithTimeFunc(s.now),
	}
	if s.cfg.Audience != "" {
		opts = append(opts, gojwt.WithAudience(s.cfg.Audience))
	}

	claims := &Claims{}
	_, err := gojwt.ParseWithClaims(token, claims, func(*gojwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	}, opts...)
	switch {
	case err == nil:
		return claims, nil
	case stderrors.Is(err, gojwt.ErrTokenExpired):
		return nil, errors.TokenExpired().WithCause(err)
	default:
		return nil, errors.InvalidToken().WithCause(err)
	}
}

// ValidatorFunc adapts Parse for auth.NewValidator.
func (s *Service) ValidatorFunc() func(string) (any, error) {
	return func(token string) (any, error) {
		return s.Parse(token)
	}
}
