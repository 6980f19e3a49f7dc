package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/accounts"
	"github.com/growtradenfts/platform/internal/http/api/core"
	"github.com/growtradenfts/platform/internal/http/apierr"
)

// AuthHandler handles admin sign in and second factor enrollment.
type AuthHandler struct {
	accounts *accounts.Service
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc *core.Services) *AuthHandler {
	return &AuthHandler{accounts: svc.Accounts}
}

// loginRequest defines the request body for admin sign in.
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	OTP      string `json:"otp"`
}

// Login checks admin credentials, plus the TOTP code when one is enrolled.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		apierr.Bad(c, "invalid json")
		return
	}
	session, errLogin := h.accounts.AdminLogin(c.Request.Context(), body.Email, body.Password, body.OTP)
	if errLogin != nil {
		apierr.Write(c, errLogin)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token": session.Token,
		"user":  core.User(session.User),
	})
}

// EnrollTOTP issues a fresh TOTP secret for the calling admin.
func (h *AuthHandler) EnrollTOTP(c *gin.Context) {
	url, errEnroll := h.accounts.EnrollTOTP(c.Request.Context(), core.Admin(c).UserID())
	if errEnroll != nil {
		apierr.Write(c, errEnroll)
		return
	}
	c.JSON(http.StatusOK, gin.H{"otpauth_url": url})
}
