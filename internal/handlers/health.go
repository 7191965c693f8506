package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Pinger is any dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck reports database reachability and, for the optional
// dependencies passed in, their status. Only the database affects the status
// code.
func HealthCheck(db *gorm.DB, optional map[string]Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		sqlDB, err := db.DB()
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
			})
			return
		}

		if err := sqlDB.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unreachable",
			})
			return
		}

		resp := gin.H{
			"status":   "healthy",
			"database": "ok",
		}
		for name, p := range optional {
			state := "ok"
			if p == nil {
				state = "disabled"
			} else if err := p.Ping(ctx); err != nil {
				state = "unreachable"
			}
			resp[name] = state
		}

		c.JSON(http.StatusOK, resp)
	}
}
