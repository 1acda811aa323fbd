package protocol

import (
	"errors"
	"fmt"
	"testing"

	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
)

func TestIsKnownCode(t *testing.T) {
	cases := []string{
		"",
		ErrProtoBadRequest,
		ErrUnknownOp,
		ErrGameNotFound,
		ErrInvalidAction,
		ErrCapacityExceeded,
		ErrChoiceNotFound,
		ErrInvalidState,
		ErrInternal,
	}
	for _, c := range cases {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	if IsKnownCode("E_NOT_DEFINED") {
		t.Fatalf("expected unknown code rejected")
	}
}

func TestCodeOf(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&game.InvalidActionError{Kind: "x", Reason: "unknown"}, ErrInvalidAction},
		{fmt.Errorf("turn: %w", &game.CapacityExceededError{Needed: 4, Available: 3}), ErrCapacityExceeded},
		{&game.ChoiceNotFoundError{EventID: "e", ChoiceID: "c"}, ErrChoiceNotFound},
		{&game.InvalidStateError{Reason: "game is over: victory"}, ErrInvalidState},
		{errors.New("disk full"), ErrInternal},
	}
	for _, tc := range cases {
		if got := CodeOf(tc.err); got != tc.want || !IsKnownCode(got) {
			t.Fatalf("CodeOf(%v) = %q want %q", tc.err, got, tc.want)
		}
	}
}
