package tuning

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/acailic/founders-dilemma-sub001/configs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	// Difficulty entries must be complete; a partial entry replaces the
	// default one wholesale.
	Difficulties map[game.Difficulty]Difficulty `yaml:"difficulties"`

	Start          Start          `yaml:"start"`
	Balance        Balance        `yaml:"balance"`
	EscapeVelocity EscapeVelocity `yaml:"escape_velocity"`
	Events         Events         `yaml:"events"`
	Market         Market         `yaml:"market"`
	Synergy        Synergy        `yaml:"synergy"`

	SnapshotEveryWeeks int `yaml:"snapshot_every_weeks"`
}

type Difficulty struct {
	Bank       float64 `yaml:"bank"`
	Burn       float64 `yaml:"burn"`
	FocusSlots int     `yaml:"focus_slots"`

	StartReputation float64 `yaml:"start_reputation"`
	StartCompliance float64 `yaml:"start_compliance"`

	GrowthModifier   float64 `yaml:"growth_modifier"`
	ComplianceBurden float64 `yaml:"compliance_burden"`
	ReputationWeight float64 `yaml:"reputation_weight"`
	EventSeverity    float64 `yaml:"event_severity"`

	RivalAggressionMin float64 `yaml:"rival_aggression_min"`
	RivalAggressionMax float64 `yaml:"rival_aggression_max"`
}

type Start struct {
	WAU      float64 `yaml:"wau"`
	Morale   float64 `yaml:"morale"`
	NPS      float64 `yaml:"nps"`
	TechDebt float64 `yaml:"tech_debt"`
	Churn    float64 `yaml:"churn"`
	Velocity float64 `yaml:"velocity"`
}

type Balance struct {
	// CashflowPerTurn is the share of a month of burn and revenue booked per
	// weekly turn.
	CashflowPerTurn float64 `yaml:"cashflow_per_turn"`
	// GrowthDecay is the share of the growth rate that fades every week
	// without fresh actions behind it.
	GrowthDecay     float64 `yaml:"growth_decay"`

	BaseChurn      float64 `yaml:"base_churn"`
	ChurnFloor     float64 `yaml:"churn_floor"`
	ChurnCeiling   float64 `yaml:"churn_ceiling"`
	MoraleDecay    float64 `yaml:"morale_decay"`
	NPSTarget      float64 `yaml:"nps_target"`
	NPSDrift       float64 `yaml:"nps_drift"`
	VelocityDrift  float64 `yaml:"velocity_drift"`
	ComplianceRise float64 `yaml:"compliance_rise"`

	OverworkVelocity   float64 `yaml:"overwork_velocity"`
	OverworkDebt       float64 `yaml:"overwork_debt"`
	IncidentDebt       float64 `yaml:"incident_debt"`
	IncidentChance     float64 `yaml:"incident_chance"`
	IncidentChurn      float64 `yaml:"incident_churn"`
	IncidentReputation float64 `yaml:"incident_reputation"`

	HireSalary     float64 `yaml:"hire_salary"`
	HireVelocity   float64 `yaml:"hire_velocity"`
	HireMorale     float64 `yaml:"hire_morale"`
	FireMorale     float64 `yaml:"fire_morale"`
	FireReputation float64 `yaml:"fire_reputation"`

	SalesConversion float64 `yaml:"sales_conversion"`
	DealSize        float64 `yaml:"deal_size"`
	MaxCalls        int     `yaml:"max_calls"`

	FundraiseBase        float64 `yaml:"fundraise_base"`
	FundraiseCap         float64 `yaml:"fundraise_cap"`
	DilutionPer5M        float64 `yaml:"dilution_per_5m"`
	MaxDilution          float64 `yaml:"max_dilution"`
	FailedRaiseMorale    float64 `yaml:"failed_raise_morale"`
	DefaultRaiseTarget   float64 `yaml:"default_raise_target"`
	DefaultAdsBudget     float64 `yaml:"default_ads_budget"`
	AdsUsersPerDollar    float64 `yaml:"ads_users_per_dollar"`
	FocusFloor           int     `yaml:"focus_floor"`
	RecentActionsHistory int     `yaml:"recent_actions_history"`
}

type EscapeVelocity struct {
	StreakToWin     int     `yaml:"streak_to_win"`
	GrowthThreshold float64 `yaml:"growth_threshold"`
	NPSThreshold    float64 `yaml:"nps_threshold"`
	MoraleThreshold float64 `yaml:"morale_threshold"`
}

type Events struct {
	MaxPerWeek            int     `yaml:"max_per_week"`
	DefaultMaxProbability float64 `yaml:"default_max_probability"`
	DefaultExpiresAfter   int     `yaml:"default_expires_after"`
}

type Market struct {
	NewConditionProbability float64 `yaml:"new_condition_probability"`
	MaxActiveConditions     int     `yaml:"max_active_conditions"`
	DemandReversion         float64 `yaml:"demand_reversion"`
	DemandNoise             float64 `yaml:"demand_noise"`
	DemandMin               float64 `yaml:"demand_min"`
	DemandMax               float64 `yaml:"demand_max"`
	EffectivenessMin        float64 `yaml:"effectiveness_min"`
	EffectivenessMax        float64 `yaml:"effectiveness_max"`
	Competitors             int     `yaml:"competitors"`
	CompetitorActScale      float64 `yaml:"competitor_act_scale"`
}

type Synergy struct {
	Window              int     `yaml:"window"`
	SpecializationWeeks int     `yaml:"specialization_weeks"`
	SpecializationShare float64 `yaml:"specialization_share"`
	SpecializationMin   int     `yaml:"specialization_min_actions"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion: "1.0",
		Difficulties: map[game.Difficulty]Difficulty{
			game.IndieBootstrap: {
				Bank: 50_000, Burn: 8_000, FocusSlots: 3,
				StartReputation: 50, StartCompliance: 20,
				GrowthModifier: 0.8, ComplianceBurden: 0.3, ReputationWeight: 1.0, EventSeverity: 1.0,
				RivalAggressionMin: 0.3, RivalAggressionMax: 0.6,
			},
			game.VCTrack: {
				Bank: 1_000_000, Burn: 80_000, FocusSlots: 5,
				StartReputation: 50, StartCompliance: 20,
				GrowthModifier: 1.5, ComplianceBurden: 0.5, ReputationWeight: 1.0, EventSeverity: 1.2,
				RivalAggressionMin: 0.5, RivalAggressionMax: 0.8,
			},
			game.RegulatedFintech: {
				Bank: 500_000, Burn: 40_000, FocusSlots: 4,
				StartReputation: 50, StartCompliance: 35,
				GrowthModifier: 1.0, ComplianceBurden: 2.0, ReputationWeight: 1.0, EventSeverity: 1.5,
				RivalAggressionMin: 0.4, RivalAggressionMax: 0.7,
			},
			game.InfraDevTool: {
				Bank: 300_000, Burn: 25_000, FocusSlots: 4,
				StartReputation: 55, StartCompliance: 20,
				GrowthModifier: 1.0, ComplianceBurden: 0.7, ReputationWeight: 1.3, EventSeverity: 1.3,
				RivalAggressionMin: 0.6, RivalAggressionMax: 0.9,
			},
		},
		Start: Start{WAU: 100, Morale: 80, NPS: 0, TechDebt: 10, Churn: 5, Velocity: 1.0},
		Balance: Balance{
			CashflowPerTurn:      1.0,
			GrowthDecay:          0.2,
			BaseChurn:            5,
			ChurnFloor:           1,
			ChurnCeiling:         20,
			MoraleDecay:          0.5,
			NPSTarget:            30,
			NPSDrift:             0.1,
			VelocityDrift:        0.2,
			ComplianceRise:       0.5,
			OverworkVelocity:     1.2,
			OverworkDebt:         0.5,
			IncidentDebt:         80,
			IncidentChance:       0.1,
			IncidentChurn:        1,
			IncidentReputation:   2,
			HireSalary:           10_000,
			HireVelocity:         0.1,
			HireMorale:           5,
			FireMorale:           10,
			FireReputation:       2,
			SalesConversion:      0.05,
			DealSize:             500,
			MaxCalls:             10,
			FundraiseBase:        0.3,
			FundraiseCap:         0.8,
			DilutionPer5M:        20,
			MaxDilution:          40,
			FailedRaiseMorale:    10,
			DefaultRaiseTarget:   500_000,
			DefaultAdsBudget:     5_000,
			AdsUsersPerDollar:    0.02,
			FocusFloor:           2,
			RecentActionsHistory: 8,
		},
		EscapeVelocity: EscapeVelocity{StreakToWin: 12, GrowthThreshold: 10, NPSThreshold: 30, MoraleThreshold: 40},
		Events:         Events{MaxPerWeek: 2, DefaultMaxProbability: 0.9, DefaultExpiresAfter: 2},
		Market: Market{
			NewConditionProbability: 0.15,
			MaxActiveConditions:     3,
			DemandReversion:         0.2,
			DemandNoise:             0.05,
			DemandMin:               0.5,
			DemandMax:               1.5,
			EffectivenessMin:        0.5,
			EffectivenessMax:        2.0,
			Competitors:             3,
			CompetitorActScale:      0.3,
		},
		Synergy:            Synergy{Window: 3, SpecializationWeeks: 8, SpecializationShare: 0.6, SpecializationMin: 8},
		SnapshotEveryWeeks: 4,
	}
}

// Load reads tuning.yaml on top of Defaults, so a file only needs the keys
// it changes.
func Load(path string) (Tuning, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Defaults(), err
	}
	return Parse(raw)
}

// Default parses the tuning.yaml built into the binary.
func Default() (Tuning, error) {
	raw, err := fs.ReadFile(configs.FS, "tuning.yaml")
	if err != nil {
		return Defaults(), err
	}
	return Parse(raw)
}

func Parse(raw []byte) (Tuning, error) {
	t := Defaults()
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// Digest identifies the values in effect, whichever file they came from.
func (t Tuning) Digest() string {
	b, _ := json.Marshal(t)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (t Tuning) Validate() error {
	for _, d := range game.Difficulties {
		dt, ok := t.Difficulties[d]
		if !ok {
			return fmt.Errorf("missing difficulty %s", d)
		}
		if dt.Bank <= 0 || dt.Burn <= 0 || dt.FocusSlots <= 0 {
			return fmt.Errorf("difficulty %s: bank, burn and focus_slots must be positive", d)
		}
	}
	if t.EscapeVelocity.StreakToWin <= 0 {
		return fmt.Errorf("escape_velocity.streak_to_win must be positive")
	}
	if t.Balance.CashflowPerTurn <= 0 {
		return fmt.Errorf("balance.cashflow_per_turn must be positive")
	}
	return nil
}

// Difficulty returns the preset for d, falling back to the defaults.
func (t Tuning) Difficulty(d game.Difficulty) Difficulty {
	if dt, ok := t.Difficulties[d]; ok {
		return dt
	}
	return Defaults().Difficulties[d]
}
