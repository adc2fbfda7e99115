package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"canteen/placement"
)

type createOrderRequest struct {
	UserID int64            `json:"user_id" binding:"required"`
	Items  []placement.Line `json:"items" binding:"required"`
}

// 建立訂單
func CreateOrderHandler(c *gin.Context, engine *placement.Engine) {
	var orderReq createOrderRequest
	if err := c.ShouldBindJSON(&orderReq); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid order request",
			"error":   err.Error(),
		})
		return
	}

	order, err := engine.PlaceOrder(c.Request.Context(), orderReq.UserID, orderReq.Items)
	if err != nil {
		respondPlacementError(c, err)
		return
	}

	invoice, err := engine.BuildInvoice(c.Request.Context(), order)
	if err != nil {
		respondPlacementError(c, err)
		return
	}

	c.Header("Location", "/api/orders/"+strconv.FormatInt(order.ID, 10))
	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"invoice": invoice,
	})
}

// 查詢訂單列表
func GetOrderListHandler(c *gin.Context, engine *placement.Engine) {
	invoices, err := engine.Invoices(c.Request.Context())
	if err != nil {
		respondPlacementError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Orders retrieved",
		"orders":     invoices,
		"totalCount": len(invoices),
	})
}

// 查詢訂單詳細資訊
func GetOrderDataHandler(c *gin.Context, engine *placement.Engine) {
	orderID, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid order id",
			"error":   err.Error(),
		})
		return
	}

	invoice, err := engine.Invoice(c.Request.Context(), orderID)
	if err != nil {
		respondPlacementError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Order retrieved",
		"invoice": invoice,
	})
}
