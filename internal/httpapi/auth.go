package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"ledgerdesk/backend/internal/domain"
)

const tokenCookieName = "token"

type AuthManager struct {
	secret       []byte
	tokenTTL     time.Duration
	cookieSecure bool
}

type deskClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
	UID  int64  `json:"uid"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, cookieSecure bool) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &AuthManager{
		secret:       []byte(secret),
		tokenTTL:     tokenTTL,
		cookieSecure: cookieSecure,
	}
}

// Issue signs a token for an authenticated account.
func (a *AuthManager) Issue(user domain.UserAccount) (domain.LoginResponse, time.Time, error) {
	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(user.ID, user.Username, user.Role, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, time.Time{}, err
	}
	return domain.LoginResponse{
		AccessToken: token,
		Role:        user.Role,
		Username:    user.Username,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, expiresAt, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &deskClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithIssuer("ledgerdesk"))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	if claims.UID <= 0 {
		return domain.Actor{}, errors.New("invalid token user")
	}
	return domain.Actor{UserID: claims.UID, Username: sub, Role: claims.Role}, nil
}

func (a *AuthManager) sign(userID int64, username, role string, expiresAt time.Time) (string, error) {
	claims := deskClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			ID:        strconv.FormatInt(userID, 10) + "-" + strconv.FormatInt(time.Now().UnixNano(), 36),
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "ledgerdesk",
		},
		Role: role,
		UID:  userID,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// tokenFromRequest prefers the bearer header and falls back to the session
// cookie.
func tokenFromRequest(r *http.Request) string {
	authorization := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
		return strings.TrimSpace(authorization[len("Bearer "):])
	}
	if cookie, err := r.Cookie(tokenCookieName); err == nil {
		return strings.TrimSpace(cookie.Value)
	}
	return ""
}

func (a *AuthManager) sessionCookie(token string, expiresAt time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (a *AuthManager) clearedCookie() *http.Cookie {
	return &http.Cookie{
		Name:     tokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
}
