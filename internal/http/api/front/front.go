// Package front registers the member-facing API.
package front

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/http/api/core"
	handlers "github.com/growtradenfts/platform/internal/http/api/front/handlers"
	"github.com/growtradenfts/platform/internal/models"
	"github.com/growtradenfts/platform/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RegisterFrontRoutes registers member routes, middleware, and handlers.
func RegisterFrontRoutes(r *gin.Engine, svc *core.Services) {
	if r == nil || svc == nil {
		return
	}

	frontGroup := r.Group("/v0/front")

	authHandler := handlers.NewAuthFrontHandler(svc)
	frontGroup.POST("/register", authHandler.Register)
	frontGroup.POST("/login", authHandler.Login)

	authed := frontGroup.Group("")
	authed.Use(userAuthMiddleware(svc))

	walletHandler := handlers.NewWalletFrontHandler(svc)
	authed.POST("/wallet/activate", rateLimitMiddleware(svc, "activate"), walletHandler.Activate)
	authed.POST("/wallet/withdraw", rateLimitMiddleware(svc, "withdraw"), walletHandler.Withdraw)
	authed.GET("/wallet/balance", walletHandler.Balance)

	nftHandler := handlers.NewNFTFrontHandler(svc)
	authed.GET("/nft/marketplace", nftHandler.Marketplace)
	authed.POST("/nft/buy", rateLimitMiddleware(svc, "nft_purchase"), nftHandler.Buy)
	authed.POST("/nft/sell/:nft_id", rateLimitMiddleware(svc, "nft_sale"), nftHandler.Sell)
	authed.GET("/nft/mine", nftHandler.Mine)

	planHandler := handlers.NewPlanFrontHandler(svc)
	authed.GET("/package/plans", planHandler.List)
	authed.POST("/package/upgrade", rateLimitMiddleware(svc, "package_upgrade"), planHandler.Upgrade)
	authed.GET("/package/current", planHandler.Current)

	userHandler := handlers.NewUserFrontHandler(svc)
	authed.GET("/user/profile", userHandler.Profile)
	authed.GET("/user/team", userHandler.Team)
	authed.GET("/user/mlm-earnings", userHandler.MLMEarnings)
	authed.GET("/user/transactions", userHandler.Transactions)
	authed.GET("/user/dashboard", userHandler.Dashboard)
}

// userAuthMiddleware validates member JWTs and stores the user id.
func userAuthMiddleware(svc *core.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, problem := core.BearerToken(c)
		if problem != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": problem})
			return
		}
		claims, errJWT := security.ParseUserToken(svc.JWT.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := svc.DB.WithContext(c.Request.Context()).
			Select("id", "is_frozen").
			Where("id = ?", claims.UserID).
			First(&user).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "load user failed"})
			return
		}
		if user.IsFrozen {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account frozen"})
			return
		}
		c.Set(core.ContextUserID, user.ID)
		c.Next()
	}
}

// rateLimitMiddleware throttles money-moving requests per user. Limiter
// failures let the request through.
func rateLimitMiddleware(svc *core.Services, operation string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if svc.RateLimiter == nil {
			c.Next()
			return
		}
		userID := core.UserID(c)
		decision, result, errCheck := svc.RateLimiter.Check(c.Request.Context(), svc.DB, userID, operation)
		if errCheck != nil {
			log.WithError(errCheck).WithFields(log.Fields{"user_id": userID, "operation": operation}).Warn("rate limit check failed")
			c.Next()
			return
		}
		if decision.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		}
		if !result.Allowed {
			retry := time.Until(result.Reset)
			if retry < time.Second {
				retry = time.Second
			}
			c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":     "RateLimited",
				"message":   "too many requests",
				"retryable": true,
			})
			return
		}
		c.Next()
	}
}
