package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"canteen/placement"
)

func TestRespondPlacementError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		err        error
		status     int
		retryAfter string
	}{
		{&placement.InvalidCartError{Reason: "empty"}, http.StatusBadRequest, ""},
		{&placement.UnknownUserError{UserID: 1}, http.StatusNotFound, ""},
		{&placement.UnknownFoodItemError{FoodItemID: 1}, http.StatusNotFound, ""},
		{&placement.InsufficientStockError{FoodItemID: 1, Requested: 2}, http.StatusBadRequest, ""},
		{fmt.Errorf("%w: 5", placement.ErrUnknownOrder), http.StatusNotFound, ""},
		{fmt.Errorf("%w: lock wait", placement.ErrBusy), http.StatusServiceUnavailable, retryAfterSeconds},
		{fmt.Errorf("%w: duplicate", placement.ErrConflict), http.StatusConflict, ""},
		{fmt.Errorf("%w: disk on fire", placement.ErrInternal), http.StatusInternalServerError, ""},
		{errors.New("anything else"), http.StatusInternalServerError, ""},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondPlacementError(c, tc.err)

			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.retryAfter, w.Header().Get("Retry-After"))
			assert.NotContains(t, w.Body.String(), "disk on fire")
		})
	}
}
