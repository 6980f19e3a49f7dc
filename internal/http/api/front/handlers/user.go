package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/accounts"
	"github.com/growtradenfts/platform/internal/http/api/core"
	"github.com/growtradenfts/platform/internal/http/apierr"
	"github.com/growtradenfts/platform/internal/models"
	"github.com/growtradenfts/platform/internal/stats"
	"github.com/growtradenfts/platform/internal/txlog"
)

// UserFrontHandler serves the member profile views.
type UserFrontHandler struct {
	accounts *accounts.Service
	stats    *stats.Service
	log      *txlog.Log
}

// NewUserFrontHandler constructs a UserFrontHandler.
func NewUserFrontHandler(svc *core.Services) *UserFrontHandler {
	return &UserFrontHandler{accounts: svc.Accounts, stats: svc.Stats, log: svc.Log}
}

// Profile returns the caller's account.
func (h *UserFrontHandler) Profile(c *gin.Context) {
	user, errGet := h.accounts.Get(c.Request.Context(), core.UserID(c))
	if errGet != nil {
		apierr.Write(c, errGet)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": core.User(user)})
}

// Team lists the caller's direct referrals.
func (h *UserFrontHandler) Team(c *gin.Context) {
	rows, errTeam := h.accounts.Team(c.Request.Context(), core.UserID(c))
	if errTeam != nil {
		apierr.Write(c, errTeam)
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":              row.ID,
			"name":            row.Name,
			"email":           row.Email,
			"is_active":       row.IsActive,
			"total_referrals": row.TotalReferrals,
			"created_at":      row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"team": out, "total": len(out)})
}

// MLMEarnings returns the caller's per-level bonus income.
func (h *UserFrontHandler) MLMEarnings(c *gin.Context) {
	view, errView := h.stats.MLMEarnings(c.Request.Context(), core.UserID(c))
	if errView != nil {
		apierr.Write(c, errView)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Dashboard returns the caller's home view.
func (h *UserFrontHandler) Dashboard(c *gin.Context) {
	view, errView := h.stats.UserDashboard(c.Request.Context(), core.UserID(c))
	if errView != nil {
		apierr.Write(c, errView)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance":             view.Balance,
		"total_earnings":      view.TotalEarnings,
		"is_active":           view.IsActive,
		"referral_code":       view.ReferralCode,
		"current_plan":        view.CurrentPlan,
		"daily_limit":         view.DailyLimit,
		"total_limit":         view.TotalLimit,
		"daily_investment":    view.DailyInvestment,
		"total_investment":    view.TotalInvestment,
		"team_size":           view.TeamSize,
		"active_team_members": view.ActiveTeamMembers,
		"total_transactions":  view.TotalTransactions,
		"nft_count":           view.NFTCount,
		"recent_transactions": core.Transactions(view.RecentTransactions),
	})
}

// Transactions pages through the caller's ledger records, newest first.
// kind may repeat or hold a comma separated list.
func (h *UserFrontHandler) Transactions(c *gin.Context) {
	var kinds []models.TransactionKind
	for _, raw := range c.QueryArray("kind") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				kinds = append(kinds, models.TransactionKind(part))
			}
		}
	}
	page := txlog.Page{Page: core.QueryInt(c, "page", 1), PageSize: core.QueryInt(c, "page_size", 0)}.Normalize()
	rows, total, errList := h.log.ListByOwner(c.Request.Context(), core.UserID(c), page, kinds...)
	if errList != nil {
		apierr.Write(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"transactions": core.Transactions(rows),
		"total":        total,
		"page":         page.Page,
		"page_size":    page.PageSize,
	})
}
