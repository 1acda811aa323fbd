package protocol

import "github.com/acailic/founders-dilemma-sub001/internal/sim/game"

// Boundary operations.
const (
	OpNewGame                    = "new_game"
	OpTakeTurn                   = "take_turn"
	OpCheckGameStatus            = "check_game_status"
	OpGetAvailableActions        = "get_available_actions"
	OpGetMarketStatus            = "get_market_status"
	OpGenerateInsights           = "generate_insights"
	OpGenerateWarnings           = "generate_warnings"
	OpProcessCompoundingEffects  = "process_compounding_effects"
	OpCheckForEvents             = "check_for_events"
	OpApplyEventChoice           = "apply_event_choice"
	OpCheckActionSynergies       = "check_action_synergies"
	OpUpdateMarketConditions     = "update_market_conditions"
	OpCheckProgressionMilestones = "check_progression_milestones"
	OpUpdateCustomerSegments     = "update_customer_segments"
	OpUpdateCompetitors          = "update_competitors"
)

var Ops = []string{
	OpNewGame, OpTakeTurn, OpCheckGameStatus, OpGetAvailableActions, OpGetMarketStatus,
	OpGenerateInsights, OpGenerateWarnings, OpProcessCompoundingEffects, OpCheckForEvents,
	OpApplyEventChoice, OpCheckActionSynergies, OpUpdateMarketConditions,
	OpCheckProgressionMilestones, OpUpdateCustomerSegments, OpUpdateCompetitors,
}

// StateRef names the snapshot an op runs on: a game held by the server or
// an inline state. An inline state wins when both are set.
type StateRef struct {
	GameID string          `json:"game_id,omitempty"`
	State  *game.GameState `json:"state,omitempty"`
}

type NewGameReq struct {
	Difficulty game.Difficulty `json:"difficulty" jsonschema:"required"`
	Seed       int64           `json:"seed,omitempty"`
	GameID     string          `json:"game_id,omitempty"`
	StartedAt  int64           `json:"started_at,omitempty"`
	Founder    string          `json:"founder,omitempty"`
}

type TakeTurnReq struct {
	StateRef
	Actions []game.Action `json:"actions"`
}

// StateReq serves every op that only needs the snapshot.
type StateReq struct {
	StateRef
}

type GetAvailableActionsReq struct {
	StateRef
	Detailed bool `json:"detailed,omitempty"`
}

type GenerateInsightsReq struct {
	Prev game.GameState `json:"prev" jsonschema:"required"`
	Cur  game.GameState `json:"cur" jsonschema:"required"`
}

type ProcessCompoundingEffectsReq struct {
	StateRef
	Effects []game.Effect `json:"effects" jsonschema:"required"`
}

type CheckForEventsReq struct {
	StateRef
	Active []game.Event `json:"active,omitempty"`
}

// ApplyEventChoiceReq names the event by value or, for one already in the
// state's active set, by id. Event wins when both are set.
type ApplyEventChoiceReq struct {
	StateRef
	Event    *game.Event `json:"event,omitempty"`
	EventID  string      `json:"event_id,omitempty"`
	ChoiceID string      `json:"choice_id" jsonschema:"required"`
}

type CheckActionSynergiesReq struct {
	StateRef
	Actions []game.ActionKind   `json:"actions" jsonschema:"required"`
	Recent  [][]game.ActionKind `json:"recent,omitempty"`
	Rules   []game.SynergyRule  `json:"rules,omitempty"`
}

type UpdateMarketConditionsReq struct {
	StateRef
	Conditions []game.MarketCondition `json:"conditions,omitempty"`
}

type CheckProgressionMilestonesReq struct {
	StateRef
	Milestones []game.Milestone `json:"milestones,omitempty"`
}

type UpdateCustomerSegmentsReq struct {
	StateRef
	Segments []game.SegmentDef `json:"segments,omitempty"`
}

type UpdateCompetitorsReq struct {
	StateRef
	Competitors []game.Competitor `json:"competitors,omitempty"`
}

// Requests maps each op to a zero request value, for decoding and schema
// generation.
func Requests() map[string]any {
	return map[string]any{
		OpNewGame:                    &NewGameReq{},
		OpTakeTurn:                   &TakeTurnReq{},
		OpCheckGameStatus:            &StateReq{},
		OpGetAvailableActions:        &GetAvailableActionsReq{},
		OpGetMarketStatus:            &StateReq{},
		OpGenerateInsights:           &GenerateInsightsReq{},
		OpGenerateWarnings:           &StateReq{},
		OpProcessCompoundingEffects:  &ProcessCompoundingEffectsReq{},
		OpCheckForEvents:             &CheckForEventsReq{},
		OpApplyEventChoice:           &ApplyEventChoiceReq{},
		OpCheckActionSynergies:       &CheckActionSynergiesReq{},
		OpUpdateMarketConditions:     &UpdateMarketConditionsReq{},
		OpCheckProgressionMilestones: &CheckProgressionMilestonesReq{},
		OpUpdateCustomerSegments:     &UpdateCustomerSegmentsReq{},
		OpUpdateCompetitors:          &UpdateCompetitorsReq{},
	}
}
