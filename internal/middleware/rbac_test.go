package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-leave-api/internal/models"
)

func newAuthedContext(role models.Role) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/requests/pending", nil)
	c.Request = req
	c.Set(ContextUserKey, &models.JWTClaims{UserID: "u1", Role: role})
	return c, w
}

func TestRequireRolesAllowsListedRole(t *testing.T) {
	c, w := newAuthedContext(models.RoleAdmin)

	called := false
	RequireRoles(models.RoleAdmin)(c)
	if !c.IsAborted() {
		called = true
	}
	require.True(t, called)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesBlocksStudentFromAdminRoute(t *testing.T) {
	c, w := newAuthedContext(models.RoleStudent)

	RequireRoles(models.RoleAdmin)(c)
	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesBlocksStaffFromAdminRoute(t *testing.T) {
	c, w := newAuthedContext(models.RoleStaff)

	RequireRoles(models.RoleAdmin)(c)
	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesWithoutClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/requests/pending", nil)
	c.Request = req

	RequireRoles(models.RoleAdmin)(c)
	require.True(t, c.IsAborted())
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRolesMultipleRoles(t *testing.T) {
	c, w := newAuthedContext(models.RoleStaff)

	RequireRoles(models.RoleStaff, models.RoleAdmin)(c)
	require.False(t, c.IsAborted())
	require.Equal(t, http.StatusOK, w.Code)
}
