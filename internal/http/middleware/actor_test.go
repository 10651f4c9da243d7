// README: Actor middleware tests.
package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	httpmiddleware "kurier/internal/http/middleware"
	"kurier/internal/types"
)

func buildTestRouter() (*gin.Engine, *types.Actor) {
	gin.SetMode(gin.TestMode)
	var seen types.Actor
	r := gin.New()
	r.Use(httpmiddleware.Actor())
	r.GET("/ping", func(c *gin.Context) {
		seen = httpmiddleware.ActorFrom(c)
		c.Status(http.StatusOK)
	})
	return r, &seen
}

func doRequest(r *gin.Engine, id, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if id != "" {
		req.Header.Set("X-Actor-Id", id)
	}
	if role != "" {
		req.Header.Set("X-Actor-Role", role)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestActor_MissingIdentity(t *testing.T) {
	r, _ := buildTestRouter()
	if w := doRequest(r, "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
	if w := doRequest(r, "u1", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without role, got %d", w.Code)
	}
	if w := doRequest(r, "", "customer"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without id, got %d", w.Code)
	}
}

func TestActor_UnknownRole(t *testing.T) {
	r, _ := buildTestRouter()
	if w := doRequest(r, "u1", "superuser"); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for unknown role, got %d", w.Code)
	}
}

func TestActor_ValidIdentityReachesHandler(t *testing.T) {
	r, seen := buildTestRouter()
	w := doRequest(r, "u1", "contractor")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if seen.ID != "u1" || seen.Role != types.RoleContractor {
		t.Errorf("unexpected actor: %+v", *seen)
	}
}
