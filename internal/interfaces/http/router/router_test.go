package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	assert.Equal(t, "v2", NewRouter(engine, WithAPIVersion("v2")).apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine, WithAPIVersion("v1"))

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.Register(group)
	r.Setup()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestDomainGroup(t *testing.T) {
	t.Run("creates group with name and prefix", func(t *testing.T) {
		g := NewDomainGroup("batches", "/batches")
		assert.Equal(t, "batches", g.Name())
		assert.Equal(t, "/batches", g.Prefix())
	})

	t.Run("registers every method", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("test", "/items")
		for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
			method := m
			g.Handle(method, "/x", func(c *gin.Context) { c.String(http.StatusOK, method) })
		}
		g.RegisterRoutes(engine.Group("/api/v1"))

		for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(m, "/api/v1/items/x", nil))
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, m, w.Body.String())
		}
	})

	t.Run("applies middleware and nests subgroups", func(t *testing.T) {
		engine := gin.New()
		g := NewDomainGroup("products", "/products").Use(func(c *gin.Context) {
			c.Header("X-Group", "products")
			c.Next()
		})
		g.Group("batches", "/:id/batches").GET("/eligible", func(c *gin.Context) {
			c.String(http.StatusOK, c.Param("id"))
		})
		g.RegisterRoutes(engine.Group("/api/v1"))

		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/abc/batches/eligible", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "abc", w.Body.String())
		assert.Equal(t, "products", w.Header().Get("X-Group"))
	})
}
