package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"canteen/placement"
)

const retryAfterSeconds = "1"

// respondPlacementError writes the status and body for an engine error.
func respondPlacementError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		cartErr  *placement.InvalidCartError
		userErr  *placement.UnknownUserError
		foodErr  *placement.UnknownFoodItemError
		stockErr *placement.InsufficientStockError
	)
	switch {
	case errors.As(err, &cartErr):
		body := gin.H{"message": "Invalid order", "error": cartErr.Error()}
		if cartErr.Line > 0 {
			body["item"] = cartErr.Line
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &userErr):
		c.JSON(http.StatusNotFound, gin.H{
			"message": "User not found",
			"error":   userErr.Error(),
			"user_id": userErr.UserID,
		})
	case errors.As(err, &foodErr):
		c.JSON(http.StatusNotFound, gin.H{
			"message":      "Food item not found",
			"error":        foodErr.Error(),
			"food_item_id": foodErr.FoodItemID,
		})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"message":      "Insufficient stock",
			"error":        stockErr.Error(),
			"food_item_id": stockErr.FoodItemID,
			"requested":    stockErr.Requested,
			"available":    stockErr.Available,
		})
	case errors.Is(err, placement.ErrUnknownOrder):
		c.JSON(http.StatusNotFound, gin.H{
			"message": "Order not found",
			"error":   err.Error(),
		})
	case errors.Is(err, placement.ErrBusy):
		c.Header("Retry-After", retryAfterSeconds)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"message": "Food items are busy, try again",
			"error":   placement.ErrBusy.Error(),
		})
	case errors.Is(err, placement.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{
			"message": "Conflicting update, try again",
			"error":   placement.ErrConflict.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Something went wrong",
			"error":   placement.ErrInternal.Error(),
		})
	}
}
