package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/http/api/core"
	"github.com/growtradenfts/platform/internal/http/apierr"
	"github.com/growtradenfts/platform/internal/stats"
)

// DashboardHandler serves the operator overviews.
type DashboardHandler struct {
	stats *stats.Service
}

// NewDashboardHandler constructs a DashboardHandler.
func NewDashboardHandler(svc *core.Services) *DashboardHandler {
	return &DashboardHandler{stats: svc.Stats}
}

// Dashboard returns platform-wide counters.
func (h *DashboardHandler) Dashboard(c *gin.Context) {
	out, errStats := h.stats.AdminDashboard(c.Request.Context(), core.Admin(c))
	if errStats != nil {
		apierr.Write(c, errStats)
		return
	}
	var batch gin.H
	if out.CurrentBatch != nil {
		batch = core.Batch(out.CurrentBatch)
	}
	c.JSON(http.StatusOK, gin.H{
		"users": gin.H{
			"total":  out.TotalUsers,
			"active": out.ActiveUsers,
			"frozen": out.FrozenUsers,
		},
		"nfts": gin.H{
			"total":  out.TotalNFTs,
			"sold":   out.SoldNFTs,
			"locked": out.LockedNFTs,
		},
		"revenue": gin.H{
			"activation":          out.ActivationRevenue,
			"mlm_payouts":         out.MLMPayouts,
			"pending_withdrawals": out.PendingWithdrawals,
		},
		"current_batch": batch,
		"sink":          out.Sink,
	})
}

// MLMStats returns per-level bonus sums and the top earners.
func (h *DashboardHandler) MLMStats(c *gin.Context) {
	out, errStats := h.stats.MLMStats(c.Request.Context(), core.Admin(c))
	if errStats != nil {
		apierr.Write(c, errStats)
		return
	}
	c.JSON(http.StatusOK, out)
}
