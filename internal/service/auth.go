package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jonathanw33/mrsa-kds/internal/config"
	"github.com/jonathanw33/mrsa-kds/internal/model"
)

// AuthService verifies access tokens issued by the external auth provider.
// Tokens are never issued here.
type AuthService struct {
	disabled  bool
	jwtSecret []byte
	verifier  *oidc.IDTokenVerifier
}

type authClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

func NewAuthService(ctx context.Context, cfg config.AuthConfig) (*AuthService, error) {
	disabled, err := parseBool(cfg.Disabled, false)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid AUTH_DISABLED", ErrMisconfigured)
	}
	if disabled {
		return &AuthService{disabled: true}, nil
	}

	svc := &AuthService{jwtSecret: []byte(cfg.JWTSecret)}
	if issuer := strings.TrimSpace(cfg.OIDCIssuer); issuer != "" {
		provider, err := oidc.NewProvider(ctx, issuer)
		if err != nil {
			return nil, fmt.Errorf("%w: oidc discovery: %w", ErrMisconfigured, err)
		}
		svc.verifier = provider.Verifier(&oidc.Config{
			ClientID:          cfg.OIDCClientID,
			SkipClientIDCheck: cfg.OIDCClientID == "",
		})
		return svc, nil
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("%w: AUTH_JWT_SECRET or AUTH_OIDC_ISSUER is required", ErrMisconfigured)
	}
	return svc, nil
}

// Disabled reports whether requests pass without a token.
func (s *AuthService) Disabled() bool {
	return s.disabled
}

func (s *AuthService) ParseAccessToken(ctx context.Context, tokenStr string) (*model.AuthUser, error) {
	if s.disabled {
		return &model.AuthUser{Subject: "anonymous", Role: "anon"}, nil
	}
	if strings.TrimSpace(tokenStr) == "" {
		return nil, ErrUnauthorized
	}
	if s.verifier != nil {
		return s.verifyOIDC(ctx, tokenStr)
	}

	claims := &authClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrUnauthorized
	}
	if claims.Subject == "" {
		return nil, ErrUnauthorized
	}

	return &model.AuthUser{
		Subject: claims.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
	}, nil
}

func (s *AuthService) verifyOIDC(ctx context.Context, tokenStr string) (*model.AuthUser, error) {
	idToken, err := s.verifier.Verify(ctx, tokenStr)
	if err != nil {
		return nil, ErrUnauthorized
	}
	var claims struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, ErrUnauthorized
	}
	return &model.AuthUser{
		Subject: idToken.Subject,
		Email:   claims.Email,
		Role:    claims.Role,
	}, nil
}

func parseBool(value string, fallback bool) (bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, err
	}
	return parsed, nil
}
