package api

import (
	"net/http"

	"commerce-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// Stock operations accepted by PATCH /products/:id/stock
const (
	StockOperationSet    = "set"
	StockOperationAdd    = "add"
	StockOperationReduce = "reduce"
)

// UpdateStockRequest is the body of PATCH /products/:id/stock
type UpdateStockRequest struct {
	Quantity  int    `json:"quantity" binding:"min=0"`
	Operation string `json:"operation" binding:"required,oneof=set add reduce"`
}

// SetDiscountRequest is the body of PUT /products/:id/discount
type SetDiscountRequest struct {
	DiscountPrice *decimal.Decimal `json:"discount_price" binding:"required"`
}

func (h *Handler) createProduct(c *gin.Context) {
	var req service.CreateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	respond(c, http.StatusCreated, h.productService.CreateProduct(c.Request.Context(), &req, currentActor(c)))
}

func (h *Handler) getProduct(c *gin.Context) {
	productID, ok := pathID(c, "id", "Invalid product ID")
	if !ok {
		return
	}
	respond(c, http.StatusOK, h.productService.GetProduct(c.Request.Context(), productID))
}

func (h *Handler) listProducts(c *gin.Context) {
	respond(c, http.StatusOK, h.productService.ListProducts(c.Request.Context(), parsePage(c)))
}

func (h *Handler) getLowStockProducts(c *gin.Context) {
	respond(c, http.StatusOK, h.productService.GetLowStockProducts(c.Request.Context()))
}

func (h *Handler) updateProduct(c *gin.Context) {
	productID, ok := pathID(c, "id", "Invalid product ID")
	if !ok {
		return
	}
	var req service.UpdateProductRequest
	if !bindJSON(c, &req) {
		return
	}
	respond(c, http.StatusOK, h.productService.UpdateProduct(c.Request.Context(), productID, &req, currentActor(c)))
}

// updateProductStock sets, adds or reduces stock depending on the operation
func (h *Handler) updateProductStock(c *gin.Context) {
	productID, ok := pathID(c, "id", "Invalid product ID")
	if !ok {
		return
	}
	var req UpdateStockRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx, actor := c.Request.Context(), currentActor(c)
	switch req.Operation {
	case StockOperationAdd:
		respond(c, http.StatusOK, h.productService.AddStock(ctx, productID, req.Quantity, actor))
	case StockOperationReduce:
		respond(c, http.StatusOK, h.productService.ReduceStock(ctx, productID, req.Quantity, actor))
	default:
		respond(c, http.StatusOK, h.productService.UpdateStock(ctx, productID, req.Quantity, actor))
	}
}

func (h *Handler) activateProduct(c *gin.Context) {
	productID, ok := pathID(c, "id", "Invalid product ID")
	if !ok {
		return
	}
	respond(c, http.StatusOK, h.productService.ActivateProduct(c.Request.Context(), productID, currentActor(c)))
}

func (h *Handler) deactivateProduct(c *gin.Context) {
	productID, ok := pathID(c, "id", "Invalid product ID")
	if !ok {
		return
	}
	respond(c, http.StatusOK, h.productService.DeactivateProduct(c.Request.Context(), productID, currentActor(c)))
}

func (h *Handler) discontinueProduct(c *gin.Context) {
	productID, ok := pathID(c, "id", "Invalid product ID")
	if !ok {
		return
	}
	respond(c, http.StatusOK, h.productService.DiscontinueProduct(c.Request.Context(), productID, currentActor(c)))
}

func (h *Handler) setProductDiscount(c *gin.Context) {
	productID, ok := pathID(c, "id", "Invalid product ID")
	if !ok {
		return
	}
	var req SetDiscountRequest
	if !bindJSON(c, &req) {
		return
	}
	respond(c, http.StatusOK, h.productService.SetDiscount(c.Request.Context(), productID, *req.DiscountPrice, currentActor(c)))
}

func (h *Handler) removeProductDiscount(c *gin.Context) {
	productID, ok := pathID(c, "id", "Invalid product ID")
	if !ok {
		return
	}
	respond(c, http.StatusOK, h.productService.RemoveDiscount(c.Request.Context(), productID, currentActor(c)))
}

func (h *Handler) deleteProduct(c *gin.Context) {
	productID, ok := pathID(c, "id", "Invalid product ID")
	if !ok {
		return
	}
	respond(c, http.StatusOK, h.productService.DeleteProduct(c.Request.Context(), productID, currentActor(c)))
}
