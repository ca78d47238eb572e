package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, subject, role, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             role,
		RegisteredClaims: jwt.RegisteredClaims{Subject: subject},
	})
	raw, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func authTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/buyer-only", AuthRequired(testSecret), RequireRole(RoleBuyer), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"subject": c.GetString(subjectKey)})
	})
	return router
}

func TestAuthRequired_ValidToken(t *testing.T) {
	router := authTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/buyer-only", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "buyer-1", RoleBuyer, testSecret))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "buyer-1")
}

func TestAuthRequired_MissingOrBadToken(t *testing.T) {
	router := authTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/buyer-only", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/buyer-only", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "buyer-1", RoleBuyer, "wrong-secret"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_RejectsOtherRoles(t *testing.T) {
	// A seller token on a buyer-only endpoint is a role mismatch.
	router := authTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/buyer-only", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "seller-1", RoleSeller, testSecret))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
