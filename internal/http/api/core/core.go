// Package core bundles the services and helpers shared by the front and
// admin route groups.
package core

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/accounts"
	"github.com/growtradenfts/platform/internal/authz"
	"github.com/growtradenfts/platform/internal/bonus"
	"github.com/growtradenfts/platform/internal/config"
	"github.com/growtradenfts/platform/internal/ledger"
	"github.com/growtradenfts/platform/internal/nft"
	"github.com/growtradenfts/platform/internal/plans"
	"github.com/growtradenfts/platform/internal/ratelimit"
	"github.com/growtradenfts/platform/internal/referral"
	"github.com/growtradenfts/platform/internal/stats"
	"github.com/growtradenfts/platform/internal/txlog"
	"github.com/growtradenfts/platform/internal/wallet"
	"gorm.io/gorm"
)

// Context keys set by the auth middleware.
const (
	ContextUserID = "userID"
	ContextAdmin  = "adminCapability"
)

// Services holds every core component the handlers call.
type Services struct {
	DB          *gorm.DB
	JWT         config.JWTConfig
	Ledger      *ledger.Ledger
	Graph       *referral.Graph
	Accounts    *accounts.Service
	Distributor *bonus.Distributor
	Plans       *plans.Manager
	NFTs        *nft.Engine
	Wallet      *wallet.Service
	Stats       *stats.Service
	Log         *txlog.Log
	RateLimiter *ratelimit.Manager
}

// NewServices wires the core components over conn.
func NewServices(conn *gorm.DB, jwtCfg config.JWTConfig, l *ledger.Ledger, limiter *ratelimit.Manager) *Services {
	if l == nil {
		l = ledger.New(conn)
	}
	graph := referral.New(conn)
	engine := nft.New(l)
	return &Services{
		DB:          conn,
		JWT:         jwtCfg,
		Ledger:      l,
		Graph:       graph,
		Accounts:    accounts.New(l, graph, accounts.TokenConfig{Secret: jwtCfg.Secret, Expiry: jwtCfg.Expiry}),
		Distributor: bonus.New(l, graph),
		Plans:       plans.New(l),
		NFTs:        engine,
		Wallet:      wallet.New(l),
		Stats:       stats.New(l, graph, engine),
		Log:         txlog.New(conn),
		RateLimiter: limiter,
	}
}

// UserID returns the authenticated member id.
func UserID(c *gin.Context) uint64 {
	return c.GetUint64(ContextUserID)
}

// Admin returns the admin capability stored by the admin middleware.
func Admin(c *gin.Context) authz.Admin {
	if v, ok := c.Get(ContextAdmin); ok {
		if capability, okCast := v.(authz.Admin); okCast {
			return capability
		}
	}
	return authz.Admin{}
}

// ParseID parses a positive integer path parameter.
func ParseID(c *gin.Context, name string) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id == 0 {
		return 0, false
	}
	return id, true
}

// QueryInt parses an integer query parameter, returning fallback when it is
// absent or malformed.
func QueryInt(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	n, errParse := strconv.Atoi(raw)
	if errParse != nil {
		return fallback
	}
	return n
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(c *gin.Context) (string, string) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", "missing authorization header"
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return "", "invalid authorization format"
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}
