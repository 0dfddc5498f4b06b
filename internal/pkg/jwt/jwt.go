package jwt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cmlabs-hris/discipline-dashboard-go/internal/domain/user"
	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

var ErrMissingClaim = errors.New("token is missing a required claim")

// Service verifies session tokens issued by the backend API. The gateway
// never mints tokens; it only checks signature, expiry, and revocation.
type Service interface {
	JWTAuth() *jwtauth.JWTAuth
	Verifier() func(http.Handler) http.Handler
	Verify(token string) (user.User, time.Time, error)
	UserFromClaims(claims map[string]interface{}) (user.User, error)
	TokenFromRequest(r *http.Request) string
	SessionCookie(token string, expiresAt time.Time) *http.Cookie
	ClearSessionCookie() *http.Cookie
	RevokeToken(token string, expiresAt time.Time)
	IsTokenRevoked(token string) bool
}

type JWTService struct {
	tokenAuth     *jwtauth.JWTAuth
	cookieName    string
	secureCookie  bool
	revokedTokens map[string]time.Time
	mu            sync.RWMutex
	now           func() time.Time
}

func NewJWTService(secretKey string, cookieName string, secureCookie bool) *JWTService {
	return &JWTService{
		tokenAuth:     jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		cookieName:    cookieName,
		secureCookie:  secureCookie,
		revokedTokens: make(map[string]time.Time),
		now:           time.Now,
	}
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// Verifier reads the session cookie first and the Authorization header second.
func (j *JWTService) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verify(j.tokenAuth, j.tokenFromCookie, jwtauth.TokenFromHeader)
}

func (j *JWTService) TokenFromRequest(r *http.Request) string {
	if token := j.tokenFromCookie(r); token != "" {
		return token
	}
	return jwtauth.TokenFromHeader(r)
}

func (j *JWTService) tokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(j.cookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (j *JWTService) Verify(tokenString string) (user.User, time.Time, error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return user.User{}, time.Time{}, err
	}

	claims, err := token.AsMap(context.Background())
	if err != nil {
		return user.User{}, time.Time{}, err
	}

	u, err := j.UserFromClaims(claims)
	if err != nil {
		return user.User{}, time.Time{}, err
	}
	return u, token.Expiration(), nil
}

// UserFromClaims accepts "user_id", "id", or "sub" as the subject.
func (j *JWTService) UserFromClaims(claims map[string]interface{}) (user.User, error) {
	var u user.User

	for _, key := range []string{"user_id", "id", jwt.SubjectKey} {
		if id := stringClaim(claims, key); id != "" {
			u.ID = id
			break
		}
	}
	if u.ID == "" {
		return user.User{}, fmt.Errorf("%w: user_id", ErrMissingClaim)
	}

	u.Role = user.Role(stringClaim(claims, "role"))
	if u.Role == "" {
		return user.User{}, fmt.Errorf("%w: role", ErrMissingClaim)
	}

	u.Username = stringClaim(claims, "username")
	u.Name = stringClaim(claims, "name")
	return u, nil
}

func (j *JWTService) SessionCookie(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     j.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   j.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func (j *JWTService) ClearSessionCookie() *http.Cookie {
	return &http.Cookie{
		Name:     j.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   j.secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

// RevokeToken blocks token until expiresAt. Entries past their expiry are
// pruned on every call.
func (j *JWTService) RevokeToken(token string, expiresAt time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	for t, exp := range j.revokedTokens {
		if now.After(exp) {
			delete(j.revokedTokens, t)
		}
	}
	j.revokedTokens[token] = expiresAt
}

func (j *JWTService) IsTokenRevoked(token string) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	_, revoked := j.revokedTokens[token]
	return revoked
}

func stringClaim(claims map[string]interface{}, key string) string {
	switch v := claims[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}
