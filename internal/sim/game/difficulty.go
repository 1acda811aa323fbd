package game

import "strings"

type Difficulty string

const (
	IndieBootstrap   Difficulty = "IndieBootstrap"
	VCTrack          Difficulty = "VCTrack"
	RegulatedFintech Difficulty = "RegulatedFintech"
	InfraDevTool     Difficulty = "InfraDevTool"
)

var Difficulties = []Difficulty{IndieBootstrap, VCTrack, RegulatedFintech, InfraDevTool}

func (d Difficulty) Valid() bool {
	switch d {
	case IndieBootstrap, VCTrack, RegulatedFintech, InfraDevTool:
		return true
	default:
		return false
	}
}

// ParseDifficulty accepts the canonical names plus the short aliases older
// clients send ("indie", "vc", "regulated", "infra").
func ParseDifficulty(s string) (Difficulty, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "indiebootstrap", "indie", "indie_bootstrap":
		return IndieBootstrap, true
	case "vctrack", "vc", "vc_track":
		return VCTrack, true
	case "regulatedfintech", "regulated", "fintech", "regulated_fintech":
		return RegulatedFintech, true
	case "infradevtool", "infra", "infra_dev_tool":
		return InfraDevTool, true
	default:
		return "", false
	}
}
