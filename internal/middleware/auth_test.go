package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"chuan-dai/pkg/jwt"
)

type revokedSet map[string]bool

func (r revokedSet) IsTokenRevoked(_ context.Context, token string) bool {
	return r[token]
}

func TestAuthMiddlewareBearer(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtService := jwt.NewJWTService("test-secret-key-at-least-32-characters", time.Hour, 24*time.Hour)
	access, _ := jwtService.GenerateAccessToken(42, "alice")
	refresh, _ := jwtService.GenerateRefreshToken(42, "alice")
	revokedToken, _ := jwtService.GenerateAccessToken(43, "bob")

	auth := NewAuthenticator(nil, jwtService, revokedSet{revokedToken: true}, "auth_session", false)

	router := gin.New()
	router.GET("/me", AuthMiddleware(auth), func(c *gin.Context) {
		token, exp := GetToken(c)
		if token == "" || exp.IsZero() {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "account": GetAccount(c)})
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid access token", "Bearer " + access, http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Token " + access, http.StatusUnauthorized},
		{"refresh token", "Bearer " + refresh, http.StatusUnauthorized},
		{"revoked token", "Bearer " + revokedToken, http.StatusUnauthorized},
		{"garbage", "Bearer not-a-jwt", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestAuthenticateQueryToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtService := jwt.NewJWTService("test-secret-key-at-least-32-characters", time.Hour, 24*time.Hour)
	access, _ := jwtService.GenerateAccessToken(7, "carol")
	auth := NewAuthenticator(nil, jwtService, nil, "auth_session", false)

	for _, allowQuery := range []bool{false, true} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/ws?token="+access, nil)

		ok := auth.Authenticate(c, allowQuery)
		if ok != allowQuery {
			t.Errorf("allowQuery=%v: expected %v, got %v", allowQuery, allowQuery, ok)
		}
		if ok && GetUserID(c) != 7 {
			t.Errorf("Expected user 7, got %d", GetUserID(c))
		}
	}
}

func TestOptionalAuthGuest(t *testing.T) {
	gin.SetMode(gin.TestMode)

	jwtService := jwt.NewJWTService("test-secret-key-at-least-32-characters", time.Hour, 24*time.Hour)
	auth := NewAuthenticator(nil, jwtService, nil, "auth_session", false)

	router := gin.New()
	router.GET("/menu", OptionalAuthMiddleware(auth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c)})
	})

	req := httptest.NewRequest(http.MethodGet, "/menu", nil)
	req.Header.Set("Authorization", "Bearer expired-or-bogus")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected guests to pass, got %d", w.Code)
	}
	if w.Body.String() != `{"user_id":0}` {
		t.Errorf("Expected user_id 0, got %s", w.Body.String())
	}
}
