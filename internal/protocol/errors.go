package protocol

import (
	"errors"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
)

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrUnknownOp       = "E_UNKNOWN_OP"

	// Game routing.
	ErrGameNotFound = "E_GAME_NOT_FOUND"

	// Engine rejections.
	ErrInvalidAction    = "E_INVALID_ACTION"
	ErrCapacityExceeded = "E_CAPACITY_EXCEEDED"
	ErrChoiceNotFound   = "E_CHOICE_NOT_FOUND"
	ErrInvalidState     = "E_INVALID_STATE"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrUnknownOp:        {},
	ErrGameNotFound:     {},
	ErrInvalidAction:    {},
	ErrCapacityExceeded: {},
	ErrChoiceNotFound:   {},
	ErrInvalidState:     {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}

// CodeOf maps an engine error to its wire code.
func CodeOf(err error) string {
	var (
		ia *game.InvalidActionError
		ce *game.CapacityExceededError
		cn *game.ChoiceNotFoundError
		is *game.InvalidStateError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ia):
		return ErrInvalidAction
	case errors.As(err, &ce):
		return ErrCapacityExceeded
	case errors.As(err, &cn):
		return ErrChoiceNotFound
	case errors.As(err, &is):
		return ErrInvalidState
	default:
		return ErrInternal
	}
}
