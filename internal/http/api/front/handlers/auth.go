package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/accounts"
	"github.com/growtradenfts/platform/internal/http/api/core"
	"github.com/growtradenfts/platform/internal/http/apierr"
)

// AuthFrontHandler handles member sign up and sign in.
type AuthFrontHandler struct {
	accounts *accounts.Service
}

// NewAuthFrontHandler constructs an AuthFrontHandler.
func NewAuthFrontHandler(svc *core.Services) *AuthFrontHandler {
	return &AuthFrontHandler{accounts: svc.Accounts}
}

// registerRequest defines the request body for sign up.
type registerRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Mobile        string `json:"mobile"`
	Password      string `json:"password"`
	WalletAddress string `json:"wallet_address"`
	ReferralCode  string `json:"referral_code"`
}

// Register creates an inactive member account.
func (h *AuthFrontHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apierr.Bad(c, "invalid json")
		return
	}
	user, errRegister := h.accounts.Register(c.Request.Context(), accounts.Registration{
		Name:          body.Name,
		Email:         body.Email,
		Mobile:        body.Mobile,
		Password:      body.Password,
		WalletAddress: body.WalletAddress,
		ReferralCode:  body.ReferralCode,
	})
	if errRegister != nil {
		apierr.Write(c, errRegister)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": core.User(user)})
}

// loginRequest defines the request body for sign in.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks credentials and returns a session token.
func (h *AuthFrontHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apierr.Bad(c, "invalid json")
		return
	}
	session, errAuth := h.accounts.Authenticate(c.Request.Context(), body.Email, body.Password)
	if errAuth != nil {
		apierr.Write(c, errAuth)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":            session.Token,
		"needs_activation": session.NeedsActivation,
		"user":             core.User(session.User),
	})
}
