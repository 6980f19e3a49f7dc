package ledger

import (
	"errors"
	"fmt"

	"github.com/growtradenfts/platform/internal/db"
)

// Kind classifies a failure so callers can decide whether to retry.
type Kind string

// Failure kinds returned by core operations.
const (
	KindInsufficientBalance Kind = "InsufficientBalance"
	KindTradingDisabled     Kind = "TradingDisabled"
	KindDailyLimitExceeded  Kind = "DailyLimitExceeded"
	KindTotalLimitExceeded  Kind = "TotalLimitExceeded"
	KindNoBatchAvailable    Kind = "NoBatchAvailable"
	KindNotFound            Kind = "NotFound"
	KindCannotSellLastAsset Kind = "CannotSellLastAsset"
	KindInvalidReferralCode Kind = "InvalidReferralCode"
	KindAlreadyActive       Kind = "AlreadyActive"
	KindInvalidTier         Kind = "InvalidTier"
	KindNotAnUpgrade        Kind = "NotAnUpgrade"
	KindAdminRequired       Kind = "AdminRequired"
	KindWithdrawalDisabled  Kind = "WithdrawalDisabled"
	KindBelowMinimum        Kind = "BelowMinimum"
	KindInvalidAddress      Kind = "InvalidAddress"
	KindInvalidInput        Kind = "InvalidInput"
	KindDuplicate           Kind = "Duplicate"
	KindUnauthorized        Kind = "Unauthorized"
	KindConflict            Kind = "Conflict"
	KindStorage             Kind = "StorageFailure"
)

// Error is the typed failure returned by every core operation.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements error.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error with the same kind, so sentinels compare by kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// Retryable reports whether a caller may retry the same request later.
func (e *Error) Retryable() bool {
	return e != nil && (e.Kind == KindConflict || e.Kind == KindStorage)
}

// Sentinels for errors.Is comparisons.
var (
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance, Message: "insufficient balance"}
	ErrTradingDisabled     = &Error{Kind: KindTradingDisabled, Message: "trading not allowed"}
	ErrDailyLimitExceeded  = &Error{Kind: KindDailyLimitExceeded, Message: "daily investment limit exceeded"}
	ErrTotalLimitExceeded  = &Error{Kind: KindTotalLimitExceeded, Message: "total investment limit exceeded"}
	ErrNoBatchAvailable    = &Error{Kind: KindNoBatchAvailable, Message: "no NFTs available for purchase"}
	ErrNotFound            = &Error{Kind: KindNotFound, Message: "not found"}
	ErrCannotSellLastAsset = &Error{Kind: KindCannotSellLastAsset, Message: "cannot sell last NFT, purchase another first"}
	ErrInvalidReferralCode = &Error{Kind: KindInvalidReferralCode, Message: "invalid referral code"}
	ErrAlreadyActive       = &Error{Kind: KindAlreadyActive, Message: "account already activated"}
	ErrInvalidTier         = &Error{Kind: KindInvalidTier, Message: "invalid plan type"}
	ErrNotAnUpgrade        = &Error{Kind: KindNotAnUpgrade, Message: "cannot downgrade or keep the same plan"}
	ErrAdminRequired       = &Error{Kind: KindAdminRequired, Message: "admin access required"}
	ErrWithdrawalDisabled  = &Error{Kind: KindWithdrawalDisabled, Message: "withdrawals not allowed"}
	ErrBelowMinimum        = &Error{Kind: KindBelowMinimum, Message: "amount below minimum"}
	ErrInvalidAddress      = &Error{Kind: KindInvalidAddress, Message: "invalid wallet address"}
	ErrInvalidInput        = &Error{Kind: KindInvalidInput, Message: "invalid input"}
	ErrDuplicate           = &Error{Kind: KindDuplicate, Message: "already exists"}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized, Message: "invalid credentials"}
	ErrConflict            = &Error{Kind: KindConflict, Message: "concurrent update, retry"}
)

// Errorf builds an *Error of kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of err, or KindStorage for untyped errors.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// IsRetryable reports whether err signals a transient storage problem.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return true
}

// FromStorage wraps a raw persistence error. Typed errors pass through.
func FromStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if db.IsUniqueViolation(err) {
		return &Error{Kind: KindDuplicate, Message: op + ": already exists", Err: err}
	}
	return &Error{Kind: KindStorage, Message: op, Err: err}
}

// Outcome labels err for metrics: "success" or its kind.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	return string(KindOf(err))
}
