package order

import (
	"net/http"

	"boostpanel/pkg/errutil"
	"boostpanel/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type analyzeRequest struct {
	Link string `json:"link" binding:"required"`
}

func registerRoutes(engine *gin.Engine, rdb *redis.Client, svc *Service) {
	authed := engine.Group("/v1", middleware.Auth(rdb))

	authed.POST("/orders", func(c *gin.Context) {
		var req PlaceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errutil.BadRequest("invalid request body", err))
			return
		}

		o, err := svc.Place(c.Request.Context(), middleware.AccountID(c), req)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusCreated, o)
	})

	authed.GET("/orders", func(c *gin.Context) {
		orders, err := svc.History(c.Request.Context(), middleware.AccountID(c))
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"orders": orders})
	})

	authed.POST("/analyze", func(c *gin.Context) {
		var req analyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errutil.BadRequest("invalid request body", err))
			return
		}

		stats, err := svc.Analyze(c.Request.Context(), req.Link)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, stats)
	})
}
