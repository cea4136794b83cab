package economy

import "errors"

var (
	// ErrNoAccount is returned when a player without an account tries an
	// operation that requires one. Checking the balance creates the account.
	ErrNoAccount = errors.New("no account")

	// ErrInsufficientFunds is returned when a bet exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrBetTooSmall is returned when a bet is below the minimum.
	ErrBetTooSmall = errors.New("bet below minimum")

	// ErrInvalidAmount is returned for zero or negative amounts.
	ErrInvalidAmount = errors.New("invalid amount")
)
