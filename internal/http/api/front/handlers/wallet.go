package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/bonus"
	"github.com/growtradenfts/platform/internal/http/api/core"
	"github.com/growtradenfts/platform/internal/http/apierr"
	"github.com/growtradenfts/platform/internal/wallet"
	"github.com/shopspring/decimal"
)

// WalletFrontHandler handles activation, withdrawals and balances.
type WalletFrontHandler struct {
	distributor *bonus.Distributor
	wallet      *wallet.Service
}

// NewWalletFrontHandler constructs a WalletFrontHandler.
func NewWalletFrontHandler(svc *core.Services) *WalletFrontHandler {
	return &WalletFrontHandler{distributor: svc.Distributor, wallet: svc.Wallet}
}

// activateRequest carries the external payment proof.
type activateRequest struct {
	TxHash        string `json:"tx_hash"`
	WalletAddress string `json:"wallet_address"`
}

// Activate records the activation payment and distributes referral bonuses.
func (h *WalletFrontHandler) Activate(c *gin.Context) {
	var body activateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apierr.Bad(c, "invalid json")
		return
	}
	user, report, errActivate := h.distributor.Activate(c.Request.Context(), core.UserID(c), bonus.PaymentProof{
		TxHash:        body.TxHash,
		WalletAddress: body.WalletAddress,
	})
	if errActivate != nil {
		apierr.Write(c, errActivate)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":    core.User(user),
		"bonuses": report,
	})
}

// withdrawRequest defines the request body for withdrawals.
type withdrawRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	WalletAddress string          `json:"wallet_address"`
}

// Withdraw debits the balance and queues a pending withdrawal.
func (h *WalletFrontHandler) Withdraw(c *gin.Context) {
	var body withdrawRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apierr.Bad(c, "invalid json")
		return
	}
	row, user, errWithdraw := h.wallet.Withdraw(c.Request.Context(), core.UserID(c), body.Amount, body.WalletAddress)
	if errWithdraw != nil {
		apierr.Write(c, errWithdraw)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"transaction": core.Transaction(row),
		"balance":     user.Balance,
	})
}

// Balance returns the caller's balance summary.
func (h *WalletFrontHandler) Balance(c *gin.Context) {
	balance, errBalance := h.wallet.Balance(c.Request.Context(), core.UserID(c))
	if errBalance != nil {
		apierr.Write(c, errBalance)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"balance":        balance.Balance,
		"total_earnings": balance.TotalEarnings,
		"is_active":      balance.IsActive,
	})
}
