package manager

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, m *Manager) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	m.ManageRoutes(r.Group("/runtime"))
	return r
}

func TestListPackagesRoute(t *testing.T) {
	m := newTestManager(t)
	registerActive(t, m, testPackage("pkg1", "app1", "1.0.0"))
	r := newTestRouter(t, m)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/runtime/apps", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var views []packageView
	if err := json.Unmarshal(w.Body.Bytes(), &views); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 package, got %d", len(views))
	}
	if views[0].Metadata.ID != "pkg1" || views[0].AppID != "app1" || !views[0].Enabled {
		t.Errorf("unexpected view: %+v", views[0])
	}
}

func TestActivateDeactivateRoutes(t *testing.T) {
	m := newTestManager(t)
	if err := m.Register(context.Background(), testPackage("pkg1", "app1", "1.0.0")); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	r := newTestRouter(t, m)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/runtime/apps/pkg1/activate", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("activate: expected 200, got %d", w.Code)
	}

	entry, _ := m.registry.Get("pkg1")
	if !entry.Enabled {
		t.Error("package not enabled after activate route")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/runtime/apps/pkg1/deactivate", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("deactivate: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/runtime/apps/ghost/activate", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("activate unknown: expected 404, got %d", w.Code)
	}
}

func TestUnregisterRoute(t *testing.T) {
	m := newTestManager(t)
	registerActive(t, m, testPackage("pkg1", "app1", "1.0.0"))
	r := newTestRouter(t, m)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/runtime/apps/pkg1", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if len(m.ListPackages()) != 0 {
		t.Error("package still registered after delete route")
	}
}

func TestMetricsRoutes(t *testing.T) {
	m := newTestManager(t)
	r := newTestRouter(t, m)

	for _, path := range []string{"/runtime/metrics", "/runtime/events/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/runtime/apps/ghost/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown package metrics, got %d", w.Code)
	}
}
