package game

import (
	"fmt"
	"strings"
)

type DefeatReason string

const (
	DefeatNone       DefeatReason = ""
	DefeatOutOfMoney DefeatReason = "out_of_money"
	DefeatBurnout    DefeatReason = "burnout"
	DefeatReputation DefeatReason = "reputation"
)

// GameStatus is the canonical outcome. The legacy string form is only a
// serialization of it.
type GameStatus struct {
	GameOver bool         `json:"game_over"`
	Victory  bool         `json:"victory"`
	Reason   DefeatReason `json:"reason,omitempty"`
	Message  string       `json:"message"`
}

// Legacy encodes the status as "victory", "defeat:<reason>" or "playing".
func (g GameStatus) Legacy() string {
	switch {
	case g.Victory:
		return "victory"
	case g.GameOver:
		return "defeat:" + string(g.Reason)
	default:
		return "playing"
	}
}

func ParseLegacyStatus(s string) (GameStatus, error) {
	switch {
	case s == "playing":
		return GameStatus{Message: "in progress"}, nil
	case s == "victory":
		return GameStatus{GameOver: true, Victory: true, Message: "escape velocity reached"}, nil
	case strings.HasPrefix(s, "defeat:"):
		r := DefeatReason(strings.TrimPrefix(s, "defeat:"))
		switch r {
		case DefeatOutOfMoney, DefeatBurnout, DefeatReputation:
			return GameStatus{GameOver: true, Reason: r, Message: DefeatMessage(r)}, nil
		}
	}
	return GameStatus{}, fmt.Errorf("unknown status %q", s)
}

func DefeatMessage(r DefeatReason) string {
	switch r {
	case DefeatOutOfMoney:
		return "out of money: the bank hit zero"
	case DefeatBurnout:
		return "burnout: morale collapsed"
	case DefeatReputation:
		return "reputation destroyed: nobody will buy from you"
	default:
		return ""
	}
}
