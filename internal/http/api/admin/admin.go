// Package admin registers the operator API.
package admin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/authz"
	"github.com/growtradenfts/platform/internal/http/api/admin/handlers"
	"github.com/growtradenfts/platform/internal/http/api/admin/permissions"
	"github.com/growtradenfts/platform/internal/http/api/core"
	"github.com/growtradenfts/platform/internal/models"
	"github.com/growtradenfts/platform/internal/security"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, svc *core.Services) {
	if r == nil || svc == nil || svc.DB == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(svc.DB)
	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(svc)
	adminGroup.POST("/login", authHandler.Login)

	selfAuthed := adminGroup.Group("")
	selfAuthed.Use(adminAuthMiddleware(svc))
	selfAuthed.POST("/totp/enroll", authHandler.EnrollTOTP)

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(svc))
	authed.Use(adminPermissionMiddleware())

	dashboardHandler := handlers.NewDashboardHandler(svc)
	authed.GET("/dashboard", dashboardHandler.Dashboard)
	authed.GET("/mlm-stats", dashboardHandler.MLMStats)

	userHandler := handlers.NewUserHandler(svc)
	authed.GET("/users", userHandler.List)
	authed.POST("/users/:id/freeze", userHandler.Freeze)
	authed.PUT("/users/:id/trading", userHandler.SetTrading)
	authed.PUT("/users/:id/withdrawal", userHandler.SetWithdrawal)

	nftHandler := handlers.NewNFTHandler(svc)
	authed.GET("/nfts", nftHandler.List)
	authed.POST("/nft-batches", nftHandler.CreateBatch)
	authed.POST("/nft-batches/:number/unlock", nftHandler.UnlockBatch)

	withdrawalHandler := handlers.NewWithdrawalHandler(svc)
	authed.POST("/withdrawals/:id/settle", withdrawalHandler.Settle)

	settingHandler := handlers.NewSettingHandler(svc)
	authed.GET("/settings", settingHandler.List)
	authed.PUT("/settings/:key", settingHandler.Update)

	permissionHandler := handlers.NewPermissionHandler()
	authed.GET("/permissions", permissionHandler.List)
}

// adminAuthMiddleware validates admin JWTs and stores the admin capability.
func adminAuthMiddleware(svc *core.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, problem := core.BearerToken(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": problem})
			return
		}

		claims, errJWT := security.ParseAdminToken(svc.JWT.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := svc.DB.WithContext(c.Request.Context()).
			Where("id = ?", claims.UserID).
			First(&user).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "load admin failed"})
			return
		}
		capability, errAdmin := authz.RequireAdmin(&user)
		if errAdmin != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin disabled"})
			return
		}

		c.Set(core.ContextUserID, user.ID)
		c.Set(core.ContextAdmin, capability)
		c.Next()
	}
}

// adminPermissionMiddleware enforces the permission registered for the
// matched route.
func adminPermissionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := permissions.Key(c.Request.Method, c.FullPath())
		admin := core.Admin(c)
		if _, known := permissions.Lookup(key); !known && !admin.IsSuper() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied", "permission": key})
			return
		}
		if !admin.Allows(key) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied", "permission": key})
			return
		}
		c.Next()
	}
}
