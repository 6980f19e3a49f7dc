package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/http/api/core"
	"github.com/growtradenfts/platform/internal/http/apierr"
	"github.com/growtradenfts/platform/internal/models"
	"github.com/growtradenfts/platform/internal/wallet"
)

// WithdrawalHandler settles pending withdrawals.
type WithdrawalHandler struct {
	wallet *wallet.Service
}

// NewWithdrawalHandler constructs a WithdrawalHandler.
func NewWithdrawalHandler(svc *core.Services) *WithdrawalHandler {
	return &WithdrawalHandler{wallet: svc.Wallet}
}

// settleRequest carries the final withdrawal status.
type settleRequest struct {
	Status string `json:"status"`
}

// Settle marks a pending withdrawal completed, or failed with a refund.
func (h *WithdrawalHandler) Settle(c *gin.Context) {
	id, ok := core.ParseID(c, "id")
	if !ok {
		apierr.Bad(c, "invalid id")
		return
	}
	var body settleRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apierr.Bad(c, "invalid json")
		return
	}
	status := models.TransactionStatus(strings.ToLower(strings.TrimSpace(body.Status)))
	row, errSettle := h.wallet.SettleWithdrawal(c.Request.Context(), core.Admin(c), id, status)
	if errSettle != nil {
		apierr.Write(c, errSettle)
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": core.Transaction(row)})
}
