package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/http/api/core"
	"github.com/growtradenfts/platform/internal/http/apierr"
	"github.com/growtradenfts/platform/internal/plans"
)

// PlanFrontHandler serves plan-related front endpoints.
type PlanFrontHandler struct {
	plans *plans.Manager
}

// NewPlanFrontHandler constructs a PlanFrontHandler.
func NewPlanFrontHandler(svc *core.Services) *PlanFrontHandler {
	return &PlanFrontHandler{plans: svc.Plans}
}

// List returns the tier table with the caller's counters.
func (h *PlanFrontHandler) List(c *gin.Context) {
	catalog, errCatalog := h.plans.Catalog(c.Request.Context(), core.UserID(c))
	if errCatalog != nil {
		apierr.Write(c, errCatalog)
		return
	}
	c.JSON(http.StatusOK, catalog)
}

// upgradeRequest defines the request body for plan upgrades.
type upgradeRequest struct {
	PlanType string `json:"plan_type"`
}

// Upgrade moves the caller to a higher tier.
func (h *PlanFrontHandler) Upgrade(c *gin.Context) {
	var body upgradeRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apierr.Bad(c, "invalid json")
		return
	}
	res, errUpgrade := h.plans.Upgrade(c.Request.Context(), core.UserID(c), body.PlanType)
	if errUpgrade != nil {
		apierr.Write(c, errUpgrade)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"plan":    res.Tier,
		"package": core.Package(res.Package),
		"balance": res.User.Balance,
	})
}

// Current returns the caller's plan and active package.
func (h *PlanFrontHandler) Current(c *gin.Context) {
	current, errCurrent := h.plans.Current(c.Request.Context(), core.UserID(c))
	if errCurrent != nil {
		apierr.Write(c, errCurrent)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"current_plan":     current.CurrentPlan,
		"daily_limit":      current.DailyLimit,
		"total_limit":      current.TotalLimit,
		"daily_investment": current.DailyInvestment,
		"total_investment": current.TotalInvestment,
		"package":          core.Package(current.Package),
	})
}
