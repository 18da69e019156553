package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chama-ledger.backend/internal/domain/entities"
	"chama-ledger.backend/pkg/jwt"
	"chama-ledger.backend/pkg/logger"
)

func newAuthRouter(validator TokenValidator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware(validator))
	r.GET("/me", func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		actorID, _ := c.Request.Context().Value(logger.ActorIDKey).(string)
		c.JSON(http.StatusOK, gin.H{"userId": actor.UserID, "role": actor.Role, "logActor": actorID})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	svc := jwt.NewJWTService("test-secret", time.Hour)
	userID := uuid.New()
	token, err := svc.GenerateToken(userID, "amina@example.com", "admin")
	require.NoError(t, err)

	expired := jwt.NewJWTService("test-secret", -time.Minute)
	expiredToken, err := expired.GenerateToken(userID, "amina@example.com", "USER")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, "Authorization header is required"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "Invalid authorization format"},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, "Invalid token"},
		{"expired token", "Bearer " + expiredToken, http.StatusUnauthorized, "Token has expired"},
		{"valid token", "Bearer " + token, http.StatusOK, userID.String()},
	}

	r := newAuthRouter(svc)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set(AuthorizationHeader, tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			require.Equal(t, tc.status, w.Code)
			require.Contains(t, w.Body.String(), tc.body)
		})
	}

	t.Run("role is normalized and actor logged", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set(AuthorizationHeader, "Bearer "+token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		require.Contains(t, w.Body.String(), `"role":"ADMIN"`)
		require.Contains(t, w.Body.String(), `"logActor":"`+userID.String()+`"`)
	})
}

func TestContextGetters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	_, ok := GetUserID(c)
	require.False(t, ok)
	_, ok = GetUserEmail(c)
	require.False(t, ok)
	_, ok = GetUserRole(c)
	require.False(t, ok)
	_, ok = GetActor(c)
	require.False(t, ok)

	id := uuid.New()
	c.Set(UserIDKey, id)
	c.Set(UserEmailKey, "wanjiru@example.com")

	actor, ok := GetActor(c)
	require.True(t, ok)
	require.Equal(t, id, actor.UserID)
	require.Equal(t, entities.UserRoleUser, actor.Role, "missing role defaults to user")

	c.Set(UserRoleKey, "ADMIN")
	actor, ok = GetActor(c)
	require.True(t, ok)
	require.True(t, actor.IsAdmin())

	gotEmail, ok := GetUserEmail(c)
	require.True(t, ok)
	require.Equal(t, "wanjiru@example.com", gotEmail)

	c.Set(UserIDKey, "not-a-uuid")
	_, ok = GetUserID(c)
	require.False(t, ok)
}

func TestRequireRolePaths(t *testing.T) {
	gin.SetMode(gin.TestMode)

	run := func(role string) int {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			if role != "" {
				c.Set(UserRoleKey, role)
			}
			c.Next()
		})
		r.Use(RequireAdmin())
		r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusUnauthorized, run(""))
	require.Equal(t, http.StatusForbidden, run("USER"))
	require.Equal(t, http.StatusOK, run("ADMIN"))
}
