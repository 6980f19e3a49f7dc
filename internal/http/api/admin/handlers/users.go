package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/accounts"
	"github.com/growtradenfts/platform/internal/authz"
	"github.com/growtradenfts/platform/internal/http/api/core"
	"github.com/growtradenfts/platform/internal/http/apierr"
	"github.com/growtradenfts/platform/internal/models"
)

// UserHandler manages member accounts.
type UserHandler struct {
	accounts *accounts.Service
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc *core.Services) *UserHandler {
	return &UserHandler{accounts: svc.Accounts}
}

// List returns users with optional search, status filter and paging.
func (h *UserHandler) List(c *gin.Context) {
	page, errList := h.accounts.ListUsers(c.Request.Context(), core.Admin(c), accounts.UserFilter{
		Search:   strings.TrimSpace(c.Query("search")),
		Status:   accounts.UserStatus(strings.ToLower(strings.TrimSpace(c.Query("status")))),
		Page:     core.QueryInt(c, "page", 1),
		PageSize: core.QueryInt(c, "page_size", 0),
	})
	if errList != nil {
		apierr.Write(c, errList)
		return
	}
	out := make([]gin.H, 0, len(page.Users))
	for i := range page.Users {
		out = append(out, core.User(&page.Users[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"users":     out,
		"total":     page.Total,
		"page":      page.Page,
		"page_size": page.PageSize,
	})
}

// Freeze toggles the frozen flag of a user.
func (h *UserHandler) Freeze(c *gin.Context) {
	id, ok := core.ParseID(c, "id")
	if !ok {
		apierr.Bad(c, "invalid id")
		return
	}
	user, errFreeze := h.accounts.ToggleFreeze(c.Request.Context(), core.Admin(c), id)
	if errFreeze != nil {
		apierr.Write(c, errFreeze)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": core.User(user)})
}

// switchRequest carries a boolean account switch.
type switchRequest struct {
	Allowed *bool `json:"allowed"`
}

// SetTrading switches NFT trading for a user.
func (h *UserHandler) SetTrading(c *gin.Context) {
	h.setSwitch(c, h.accounts.SetCanTrade)
}

// SetWithdrawal switches withdrawals for a user.
func (h *UserHandler) SetWithdrawal(c *gin.Context) {
	h.setSwitch(c, h.accounts.SetCanWithdraw)
}

func (h *UserHandler) setSwitch(c *gin.Context, apply func(context.Context, authz.Admin, uint64, bool) (*models.User, error)) {
	id, ok := core.ParseID(c, "id")
	if !ok {
		apierr.Bad(c, "invalid id")
		return
	}
	var body switchRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil || body.Allowed == nil {
		apierr.Bad(c, "allowed is required")
		return
	}
	user, errApply := apply(c.Request.Context(), core.Admin(c), id, *body.Allowed)
	if errApply != nil {
		apierr.Write(c, errApply)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": core.User(user)})
}
