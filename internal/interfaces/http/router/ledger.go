package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/thanhnm3/khomypham/internal/interfaces/http/dto"
	"github.com/thanhnm3/khomypham/internal/interfaces/http/handler"
)

// LedgerHandlers are the handlers behind the ledger API
type LedgerHandlers struct {
	Products  *handler.ProductHandler
	Inventory *handler.InventoryHandler
	Orders    *handler.OrderHandler
	Reports   *handler.ReportHandler
	Health    *handler.HealthHandler

	// Posting guards the requests that write ledger movements, typically
	// with the idempotency middleware. Nil leaves them unguarded.
	Posting gin.HandlerFunc

	// Swagger serves the API document and its UI under /swagger. Nil leaves
	// them off.
	Swagger gin.HandlerFunc
}

func (h LedgerHandlers) posting(handler gin.HandlerFunc) []gin.HandlerFunc {
	if h.Posting == nil {
		return []gin.HandlerFunc{handler}
	}
	return []gin.HandlerFunc{h.Posting, handler}
}

// LedgerGroups returns the route groups of the ledger API
func LedgerGroups(h LedgerHandlers) []RouteRegistrar {
	products := NewDomainGroup("products", "/products").
		POST("", h.Products.Create).
		GET("", h.Products.List).
		GET("/:id", h.Products.GetByID).
		POST("/:id/deactivate", h.Products.Deactivate).
		GET("/:id/stock", h.Inventory.TotalStock)
	products.Group("product-batches", "/:id/batches").
		GET("/eligible", h.Inventory.ListEligible).
		GET("/low-stock", h.Inventory.LowStock).
		GET("/expiring", h.Inventory.Expiring)

	batches := NewDomainGroup("batches", "/batches").
		POST("", h.posting(h.Inventory.CreateBatch)...).
		GET("/:id", h.Inventory.GetBatch)

	allocations := NewDomainGroup("allocations", "/allocations").
		POST("/plan", h.Inventory.Plan).
		POST("/:id/release", h.posting(h.Inventory.Release)...)

	receiving := NewDomainGroup("receiving", "/receiving-orders").
		POST("", h.posting(h.Orders.CreateReceiving)...).
		POST("/import", h.posting(h.Orders.ImportReceiving)...).
		GET("", h.Orders.ListReceiving).
		GET("/:id", h.Orders.GetReceiving).
		PUT("/:id", h.Orders.UpdateReceiving).
		DELETE("/:id", h.Orders.DeleteReceiving)

	shipping := NewDomainGroup("shipping", "/shipping-orders").
		POST("", h.posting(h.Orders.CreateShipping)...).
		GET("", h.Orders.ListShipping).
		GET("/:id", h.Orders.GetShipping).
		PUT("/:id", h.Orders.UpdateShipping).
		DELETE("/:id", h.Orders.DeleteShipping)

	reports := NewDomainGroup("reports", "/reports").
		GET("/profit", h.Reports.Profit).
		GET("/profit/orders/:id", h.Reports.OrderProfit).
		GET("/stock-summary", h.Reports.StockSummary)

	return []RouteRegistrar{products, batches, allocations, receiving, shipping, reports}
}

// SetupLedger registers the ledger API, the health check, the optional
// Swagger UI and the JSON 404 on engine
func SetupLedger(engine *gin.Engine, h LedgerHandlers, opts ...RouterOption) *Router {
	r := NewRouter(engine, opts...).Register(LedgerGroups(h)...)
	r.Setup()

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}
	if h.Swagger != nil {
		engine.GET("/swagger/*any", h.Swagger)
	}
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, dto.NewErrorResponse(dto.ErrCodeRouteNotFound, "Route not found"))
	})
	return r
}
