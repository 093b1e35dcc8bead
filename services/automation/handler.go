package automation

import (
	"net/http"

	"boostpanel/pkg/errutil"
	"boostpanel/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func registerRoutes(engine *gin.Engine, rdb *redis.Client, svc *Service) {
	authed := engine.Group("/v1/automation", middleware.Auth(rdb))

	authed.GET("/tasks", func(c *gin.Context) {
		tasks, err := svc.List(c.Request.Context(), middleware.AccountID(c))
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"tasks": tasks})
	})

	authed.POST("/tasks", func(c *gin.Context) {
		var req CreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errutil.BadRequest("invalid request body", err))
			return
		}

		t, err := svc.Create(c.Request.Context(), middleware.AccountID(c), req)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusCreated, t)
	})

	authed.DELETE("/tasks/:order_id", func(c *gin.Context) {
		if err := svc.Remove(c.Request.Context(), middleware.AccountID(c), c.Param("order_id")); err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"deleted": true})
	})
}
