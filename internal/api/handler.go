package api

import (
	"context"
	"net/http"
	"time"

	"commerce-service/internal/models"
	"commerce-service/internal/service"
	"commerce-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	orderService   *service.OrderService
	productService *service.ProductService
	dependencies   map[string]Pinger
	logger         *zap.Logger
}

// NewHandler creates a new HTTP handler. dependencies are pinged by /ready.
func NewHandler(orderService *service.OrderService, productService *service.ProductService, dependencies map[string]Pinger) *Handler {
	return &Handler{
		orderService:   orderService,
		productService: productService,
		dependencies:   dependencies,
		logger:         util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(identityMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		orders := v1.Group("/orders")
		orders.POST("", h.createOrder)
		orders.GET("", h.listOrders)
		orders.GET("/my-orders", h.getMyOrders)
		orders.GET("/number/:number", h.getOrderByNumber)
		orders.GET("/:id", h.getOrder)
		orders.PATCH("/:id/status", h.updateOrderStatus)
		orders.POST("/:id/items", h.addOrderItem)
		orders.PATCH("/:id/items", h.updateOrderItemQuantity)
		orders.DELETE("/:id/items/:itemId", h.removeOrderItem)
		orders.DELETE("/:id", h.deleteOrder)

		products := v1.Group("/products")
		products.POST("", h.createProduct)
		products.GET("", h.listProducts)
		products.GET("/low-stock", h.getLowStockProducts)
		products.GET("/:id", h.getProduct)
		products.PUT("/:id", h.updateProduct)
		products.PATCH("/:id/stock", h.updateProductStock)
		products.POST("/:id/activate", h.activateProduct)
		products.POST("/:id/deactivate", h.deactivateProduct)
		products.POST("/:id/discontinue", h.discontinueProduct)
		products.PUT("/:id/discount", h.setProductDiscount)
		products.DELETE("/:id/discount", h.removeProductDiscount)
		products.DELETE("/:id", h.deleteProduct)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency and reports the ones that failed
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, dep := range h.dependencies {
		if err := dep.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// respond writes a service result with the status matching its outcome
func respond[T any](c *gin.Context, successStatus int, result service.Result[T]) {
	if result.Success {
		c.JSON(successStatus, result)
		return
	}
	c.JSON(statusFor(result.Kind), result)
}

func statusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindValidation, models.KindBusinessRule:
		return http.StatusBadRequest
	case models.KindDuplicate:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// badRequest reports a request that never reached the service layer
func badRequest(c *gin.Context, message string, details ...string) {
	if len(details) == 0 {
		details = []string{message}
	}
	c.JSON(http.StatusBadRequest, service.Result[any]{
		Message: message,
		Errors:  details,
	})
}

// bindJSON binds the request body and reports binding errors as validation failures
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		badRequest(c, "Invalid request body", err.Error())
		return false
	}
	return true
}
