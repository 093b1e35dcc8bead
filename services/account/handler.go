package account

import (
	"net/http"
	"strings"

	"boostpanel/pkg/errutil"
	"boostpanel/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	APIKey   string `json:"api_key" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type apiKeyRequest struct {
	APIKey string `json:"api_key" binding:"required"`
}

func registerRoutes(engine *gin.Engine, rdb *redis.Client, svc *Service) {
	v1 := engine.Group("/v1")
	v1.POST("/register", registerHandler(svc))
	v1.POST("/login", loginHandler(svc))

	authed := v1.Group("", middleware.Auth(rdb))
	authed.POST("/logout", logoutHandler(svc))
	authed.GET("/init", initHandler(svc))
	authed.GET("/settings", settingsHandler(svc))
	authed.PUT("/settings/apikey", updateAPIKeyHandler(svc))
}

func registerHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errutil.BadRequest("invalid request body", err))
			return
		}

		acct, err := svc.Register(c.Request.Context(), req.Username, req.Password, req.APIKey)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"account_id": acct.ID,
			"username":   acct.Username,
		})
	}
}

func loginHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errutil.BadRequest("invalid request body", err))
			return
		}

		token, err := svc.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

func logoutHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if err := svc.Logout(c.Request.Context(), token); err != nil {
			c.Error(errutil.Internal("failed to end session", err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

func initHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := svc.Init(c.Request.Context(), middleware.AccountID(c))
		if err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, data)
	}
}

func settingsHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		connected := svc.Connected(c.Request.Context(), middleware.AccountID(c))
		c.JSON(http.StatusOK, gin.H{"connected": connected})
	}
}

func updateAPIKeyHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req apiKeyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(errutil.BadRequest("invalid request body", err))
			return
		}

		if err := svc.UpdateAPIKey(c.Request.Context(), middleware.AccountID(c), req.APIKey); err != nil {
			c.Error(err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}
