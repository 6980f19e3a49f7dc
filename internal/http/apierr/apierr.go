// Package apierr renders core errors as JSON responses.
package apierr

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/growtradenfts/platform/internal/ledger"
	log "github.com/sirupsen/logrus"
)

var statusByKind = map[ledger.Kind]int{
	ledger.KindInvalidInput:        http.StatusBadRequest,
	ledger.KindInvalidAddress:      http.StatusBadRequest,
	ledger.KindInvalidReferralCode: http.StatusBadRequest,
	ledger.KindInvalidTier:         http.StatusBadRequest,
	ledger.KindNotAnUpgrade:        http.StatusBadRequest,
	ledger.KindBelowMinimum:        http.StatusBadRequest,
	ledger.KindUnauthorized:        http.StatusUnauthorized,
	ledger.KindAdminRequired:       http.StatusForbidden,
	ledger.KindTradingDisabled:     http.StatusForbidden,
	ledger.KindWithdrawalDisabled:  http.StatusForbidden,
	ledger.KindNotFound:            http.StatusNotFound,
	ledger.KindAlreadyActive:       http.StatusConflict,
	ledger.KindDuplicate:           http.StatusConflict,
	ledger.KindConflict:            http.StatusConflict,
	ledger.KindInsufficientBalance: http.StatusUnprocessableEntity,
	ledger.KindDailyLimitExceeded:  http.StatusUnprocessableEntity,
	ledger.KindTotalLimitExceeded:  http.StatusUnprocessableEntity,
	ledger.KindCannotSellLastAsset: http.StatusUnprocessableEntity,
	ledger.KindNoBatchAvailable:    http.StatusUnprocessableEntity,
}

// Status maps an error kind to an HTTP status code.
func Status(kind ledger.Kind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Write aborts c with the JSON form of err. Storage failures are logged and
// their detail is withheld from the client.
func Write(c *gin.Context, err error) {
	kind := ledger.KindOf(err)
	status := Status(kind)
	message := err.Error()
	var typed *ledger.Error
	if errors.As(err, &typed) {
		message = typed.Message
	}
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(log.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{
		"error":     string(kind),
		"message":   message,
		"retryable": ledger.IsRetryable(err),
	})
}

// Bad aborts c with a 400 for malformed requests that never reached the core.
func Bad(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":     string(ledger.KindInvalidInput),
		"message":   message,
		"retryable": false,
	})
}
