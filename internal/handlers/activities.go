package handlers

import (
	"net/http"
	"strconv"

	"github.com/P3chys/ustam-api/internal/services"
	"github.com/gin-gonic/gin"
)

// GetRecentActivities returns the latest platform activity (admin only)
// GET /api/v1/admin/activities?limit=&type=
func GetRecentActivities(activity *services.ActivityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if limit <= 0 {
			limit = 20
		}
		if limit > 100 {
			limit = 100
		}

		activities, err := activity.GetRecentActivities(c.Request.Context(), limit, c.Query("type"))
		if err != nil {
			respondError(c, err)
			return
		}

		respond(c, http.StatusOK, activities)
	}
}
