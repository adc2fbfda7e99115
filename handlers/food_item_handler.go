package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"canteen/store"
)

const maxFoodItemLimit = 100

// 查詢餐點列表
func GetFoodItemListHandler(c *gin.Context, catalog store.CatalogReader) {
	items, err := catalog.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Unable to read food items",
			"error":   "internal error",
		})
		return
	}
	totalCount := len(items)

	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid offset",
		})
		return
	}
	limit := totalCount
	if raw, ok := c.GetQuery("limit"); ok {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{
				"message": "Invalid limit",
			})
			return
		}
		//限制最高查詢數量
		if limit > maxFoodItemLimit {
			limit = maxFoodItemLimit
		}
	}

	if offset > totalCount {
		offset = totalCount
	}
	end := min(offset+limit, totalCount)

	c.JSON(http.StatusOK, gin.H{
		"message":    "Food items retrieved",
		"food_items": items[offset:end],
		"totalCount": totalCount,
	})
}

// 查詢餐點詳細資料
func GetFoodItemDataHandler(c *gin.Context, catalog store.CatalogReader) {
	foodID, err := strconv.ParseInt(c.Param("food_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"message": "Invalid food item id",
			"error":   err.Error(),
		})
		return
	}

	item, err := catalog.Lookup(c.Request.Context(), foodID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"message": "Food item not found",
			})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"message": "Unable to read food item",
			"error":   "internal error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Food item retrieved",
		"food_item": item,
	})
}
