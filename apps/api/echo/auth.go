package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/kamusi/core"
)

const (
	contextTokenKey    = "identityToken"
	contextIdentityKey = "identity"
)

var errInvalidClaims = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")

// Claims represents the authorization claims issued by the identity provider.
type Claims struct {
	jwt.StandardClaims
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

func (c Claims) Identity() core.Identity {
	return core.Identity{UserID: c.Subject, Username: c.Username, Email: c.Email}
}

// newJWTConfig returns the JWT auth middleware config.
func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.Identity.SigningKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// GetIdentityClaims returns the claims of a token representing id.
func GetIdentityClaims(conf *core.Config, id core.Identity) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.Identity.Issuer,
			Audience:  conf.Identity.Audience,
			Subject:   id.UserID,
			ExpiresAt: now.Add(conf.Identity.TokenTTL).Unix(),
			IssuedAt:  now.Unix(),
		},
		Username: id.Username,
		Email:    id.Email,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)

	ss, err := token.SignedString([]byte(conf.Identity.SigningKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// identityMiddleware checks the issuer & audience of the token (when configured) and stores the caller's Identity.
func identityMiddleware(conf *core.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if conf.Identity.Issuer != "" && !claims.VerifyIssuer(conf.Identity.Issuer, true) {
				return errInvalidClaims
			}
			if conf.Identity.Audience != "" && !claims.VerifyAudience(conf.Identity.Audience, true) {
				return errInvalidClaims
			}
			id := claims.Identity()
			if id.IsAnonymous() {
				return errInvalidClaims
			}
			ctx.Set(contextIdentityKey, id)
			return next(ctx)
		}
	}
}

func getContextIdentity(ctx echo.Context) (core.Identity, error) {
	if id, ok := ctx.Get(contextIdentityKey).(core.Identity); ok {
		return id, nil
	}
	return core.Identity{}, errUnauthorized
}
