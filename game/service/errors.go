package service

import (
	"errors"
	"fmt"
)

// Every operation fails with one of these kinds; nothing propagates as a
// generic failure. The gateway maps each one to its user-facing message.
var (
	ErrAlreadyInGame      = errors.New("player is already in a game")
	ErrNotFound           = errors.New("game session not found")
	ErrSelfJoin           = errors.New("cannot join your own game")
	ErrNotInGame          = errors.New("player is not in a game")
	ErrNotStarted         = errors.New("game has not started yet")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrInvalidPosition    = errors.New("position must be a number from 1 to 9")
	ErrCellOccupied       = errors.New("cell is already taken")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// storageErr wraps an infrastructure failure from the session store so that
// callers see a single recoverable kind regardless of backend.
func storageErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
}
