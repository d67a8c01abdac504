package ledger

import "errors"

var (
	// ErrUnauthorized means the caller lacks the capability the entry point
	// requires (mint/burn role or the admin role).
	ErrUnauthorized = errors.New("caller lacks required capability")

	// ErrInsufficientBalance means the requested amount exceeds the
	// holder's post-accrual principal.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInsufficientAllowance means the spender's approved amount does not
	// cover the requested transfer.
	ErrInsufficientAllowance = errors.New("insufficient allowance")

	// ErrRateMustDecrease means a proposed global rate is not strictly
	// below the current one.
	ErrRateMustDecrease = errors.New("global rate can only decrease")

	// ErrRateCannotBeZero means a rate of zero was supplied where a
	// strictly positive rate is required.
	ErrRateCannotBeZero = errors.New("rate cannot be zero")

	// ErrRateNotInteger means a rate with a fractional part was supplied.
	// Rates are fixed-point integers already scaled by the precision
	// factor; a fractional value would not survive the bridge payload
	// encoding.
	ErrRateNotInteger = errors.New("rate must be an integer")

	// ErrAmountNotPositive means a zero or negative amount was supplied.
	ErrAmountNotPositive = errors.New("amount must be positive")
)
