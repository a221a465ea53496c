package api

import (
	"net/http"
	"strconv"

	"commerce-service/internal/models"
	"commerce-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UpdateOrderStatusRequest is the body of PATCH /orders/:id/status
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

// createOrder handles order creation
func (h *Handler) createOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	if req.UserID == uuid.Nil {
		req.UserID = currentUserID(c)
	}
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	respond(c, http.StatusCreated, h.orderService.CreateOrder(c.Request.Context(), &req, currentActor(c)))
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id", "Invalid order ID")
	if !ok {
		return
	}
	respond(c, http.StatusOK, h.orderService.GetOrder(c.Request.Context(), orderID))
}

func (h *Handler) getOrderByNumber(c *gin.Context) {
	respond(c, http.StatusOK, h.orderService.GetOrderByNumber(c.Request.Context(), c.Param("number")))
}

// getMyOrders lists the orders of the calling user
func (h *Handler) getMyOrders(c *gin.Context) {
	userID := currentUserID(c)
	if userID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, service.Result[any]{
			Message: "User identity is required",
			Errors:  []string{headerUserID + " header is missing or invalid"},
		})
		return
	}
	respond(c, http.StatusOK, h.orderService.GetUserOrders(c.Request.Context(), userID))
}

func (h *Handler) listOrders(c *gin.Context) {
	respond(c, http.StatusOK, h.orderService.ListOrders(c.Request.Context(), parsePage(c)))
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	orderID, ok := pathID(c, "id", "Invalid order ID")
	if !ok {
		return
	}
	var req UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	respond(c, http.StatusOK, h.orderService.UpdateOrderStatus(c.Request.Context(), orderID, req.Status, currentActor(c), req.Reason))
}

func (h *Handler) addOrderItem(c *gin.Context) {
	orderID, ok := pathID(c, "id", "Invalid order ID")
	if !ok {
		return
	}
	var req service.OrderItemRequest
	if !bindJSON(c, &req) {
		return
	}
	respond(c, http.StatusOK, h.orderService.AddOrderItem(c.Request.Context(), orderID, &req, currentActor(c)))
}

func (h *Handler) updateOrderItemQuantity(c *gin.Context) {
	orderID, ok := pathID(c, "id", "Invalid order ID")
	if !ok {
		return
	}
	var req service.UpdateOrderItemQuantityRequest
	if !bindJSON(c, &req) {
		return
	}
	respond(c, http.StatusOK, h.orderService.UpdateOrderItemQuantity(c.Request.Context(), orderID, &req, currentActor(c)))
}

func (h *Handler) removeOrderItem(c *gin.Context) {
	orderID, ok := pathID(c, "id", "Invalid order ID")
	if !ok {
		return
	}
	itemID, ok := pathID(c, "itemId", "Invalid order item ID")
	if !ok {
		return
	}
	respond(c, http.StatusOK, h.orderService.RemoveOrderItem(c.Request.Context(), orderID, itemID, currentActor(c)))
}

func (h *Handler) deleteOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id", "Invalid order ID")
	if !ok {
		return
	}
	respond(c, http.StatusOK, h.orderService.DeleteOrder(c.Request.Context(), orderID, currentActor(c)))
}

// pathID parses a uuid path parameter, answering 400 when it is malformed
func pathID(c *gin.Context, param, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		badRequest(c, message)
		return uuid.Nil, false
	}
	return id, true
}

// parsePage reads page and page_size; bad values fall back to the defaults
func parsePage(c *gin.Context) models.Page {
	number, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(models.DefaultPageSize)))
	return models.NewPage(number, size)
}
