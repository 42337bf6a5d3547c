package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrRateLimited           = errors.New("rate limited")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrLockHeld              = errors.New("lock already held")
	ErrInvalidAmount         = errors.New("amount must be a positive decimal")
	ErrInsufficientAllowance = errors.New("token allowance below bet amount")
	ErrMarketClosed          = errors.New("market is not open")
	ErrMarketOpen            = errors.New("market is not resolved")
	ErrNothingToWithdraw     = errors.New("no winning stake to withdraw")
	ErrNoWallet              = errors.New("no operator wallet configured")
	ErrSnapshotLoading       = errors.New("markets are still loading")
)
