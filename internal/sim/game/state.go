package game

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// HistoryLimit caps the week ledger.
const HistoryLimit = 52

// GameState is a full snapshot. Engine calls never mutate their input; they
// Clone and return the copy.
type GameState struct {
	GameID     string     `json:"game_id"`
	Difficulty Difficulty `json:"difficulty"`
	StartedAt  int64      `json:"started_at"`
	Seed       int64      `json:"seed"`
	Week       int        `json:"week"`

	Bank         float64 `json:"bank"`
	Burn         float64 `json:"burn"`
	RunwayMonths float64 `json:"runway_months"`
	MRR          float64 `json:"mrr"`

	WAU           float64 `json:"wau"`
	WAUGrowthRate float64 `json:"wau_growth_rate"`
	ChurnRate     float64 `json:"churn_rate"`

	Morale         float64 `json:"morale"`
	Reputation     float64 `json:"reputation"`
	NPS            float64 `json:"nps"`
	TechDebt       float64 `json:"tech_debt"`
	ComplianceRisk float64 `json:"compliance_risk"`

	Velocity   float64 `json:"velocity"`
	FocusSlots int     `json:"focus_slots"`

	FounderEquity float64 `json:"founder_equity"`
	OptionPool    float64 `json:"option_pool"`
	InvestorShare float64 `json:"investor_share"`

	Momentum       float64                `json:"momentum"`
	EscapeVelocity EscapeVelocityProgress `json:"escape_velocity"`
	History        []WeekSnapshot         `json:"history"`

	Roster          Roster           `json:"roster"`
	UnlockedActions []ActionKind     `json:"unlocked_actions"`
	Achieved        []string         `json:"achieved_milestones"`
	ActiveEvents    []Event          `json:"active_events"`
	EventCooldowns  map[string]int   `json:"event_cooldowns,omitempty"`
	ScheduledEvents []ScheduledEvent `json:"scheduled_events,omitempty"`
	RecentActions   [][]ActionKind   `json:"recent_actions,omitempty"`
	PendingEffects  []PendingEffect  `json:"pending_effects,omitempty"`
	Market          MarketState      `json:"market"`
	Competitors     []Competitor     `json:"competitors"`
	Customers       CustomerBase     `json:"customers"`
	Practices       map[string]int   `json:"practices,omitempty"`
	Incidents       int              `json:"incidents"`
	LastBreakWeek   int              `json:"last_break_week"`
	Specialization  string           `json:"specialization,omitempty"`
}

type EscapeVelocityProgress struct {
	RevenueCoversBurn bool `json:"revenue_covers_burn"`
	GrowthSustained   bool `json:"growth_sustained"`
	CustomerLove      bool `json:"customer_love"`
	FounderHealthy    bool `json:"founder_healthy"`
	StreakWeeks       int  `json:"streak_weeks"`
}

func (p EscapeVelocityProgress) AllMet() bool {
	return p.RevenueCoversBurn && p.GrowthSustained && p.CustomerLove && p.FounderHealthy
}

func (p EscapeVelocityProgress) Holds(c Criterion) bool {
	switch c {
	case CriterionRevenueCoversBurn:
		return p.RevenueCoversBurn
	case CriterionGrowthSustained:
		return p.GrowthSustained
	case CriterionCustomerLove:
		return p.CustomerLove
	case CriterionFounderHealthy:
		return p.FounderHealthy
	default:
		return false
	}
}

// WeekSnapshot is display-only history. Simulation logic never reads it.
type WeekSnapshot struct {
	Week       int     `json:"week"`
	Bank       float64 `json:"bank"`
	MRR        float64 `json:"mrr"`
	Burn       float64 `json:"burn"`
	WAU        float64 `json:"wau"`
	Morale     float64 `json:"morale"`
	Reputation float64 `json:"reputation"`
	Momentum   float64 `json:"momentum"`
}

type MarketState struct {
	Demand              float64           `json:"demand"`
	CompetitivePressure float64           `json:"competitive_pressure"`
	Conditions          []MarketCondition `json:"conditions"`
}

// Multiplier is the product of every active condition's modifier for t.
func (m MarketState) Multiplier(t ModTarget) float64 {
	k := 1.0
	for _, c := range m.Conditions {
		for _, mod := range c.Modifiers {
			if mod.Target == t && mod.Multiplier > 0 {
				k *= mod.Multiplier
			}
		}
	}
	return k
}

type FundingStage string

const (
	StageBootstrapped FundingStage = "bootstrapped"
	StageSeed         FundingStage = "seed"
	StageSeriesA      FundingStage = "series_a"
	StageSeriesB      FundingStage = "series_b"
	StageSeriesC      FundingStage = "series_c"
	StagePublic       FundingStage = "public"
)

type PricingStrategy string

const (
	PricingPremium  PricingStrategy = "premium"
	PricingMatch    PricingStrategy = "match"
	PricingUndercut PricingStrategy = "undercut"
	PricingFreemium PricingStrategy = "freemium"
)

type CompetitorMove string

const (
	MoveFeatureLaunch CompetitorMove = "feature_launch"
	MovePriceCut      CompetitorMove = "price_cut"
	MoveFundingRound  CompetitorMove = "funding_round"
	MoveMarketingPush CompetitorMove = "marketing_push"
	MoveTalentPoach   CompetitorMove = "talent_poach"
	MovePartnership   CompetitorMove = "partnership"
	MovePivot         CompetitorMove = "pivot"
	MoveAcquired      CompetitorMove = "acquired"
)

type CompetitorMoveRecord struct {
	Week int            `json:"week"`
	Move CompetitorMove `json:"move"`
}

type Competitor struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Stage          FundingStage           `json:"stage"`
	Funding        float64                `json:"funding"`
	Pricing        PricingStrategy        `json:"pricing"`
	FeatureParity  float64                `json:"feature_parity"`
	Aggressiveness float64                `json:"aggressiveness"`
	MarketShare    float64                `json:"market_share"`
	TeamSize       int                    `json:"team_size"`
	Acquired       bool                   `json:"acquired,omitempty"`
	Moves          []CompetitorMoveRecord `json:"moves,omitempty"`
}

// Threat ranks how dangerous a competitor is right now (0..1).
func (c Competitor) Threat() float64 {
	if c.Acquired {
		return 0
	}
	return c.FeatureParity / 100 * c.MarketShare * c.Aggressiveness
}

type Lifecycle string

const (
	StageOnboarding Lifecycle = "onboarding"
	StageActive     Lifecycle = "active"
	StageChampion   Lifecycle = "champion"
	StageAtRisk     Lifecycle = "at_risk"
	StageChurned    Lifecycle = "churned"
)

type Customer struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Segment      Segment   `json:"segment"`
	MRR          float64   `json:"mrr"`
	Satisfaction float64   `json:"satisfaction"`
	Stage        Lifecycle `json:"stage"`
	SinceWeek    int       `json:"since_week"`
}

type SegmentShare struct {
	Segment  Segment `json:"segment"`
	Share    float64 `json:"share"`
	Accounts int     `json:"accounts"`
	MRR      float64 `json:"mrr"`
}

type CustomerBase struct {
	Accounts []Customer     `json:"accounts"`
	Shares   []SegmentShare `json:"shares"`
	NextID   int            `json:"next_id"`
}

// AccountMRR sums revenue held by live named accounts.
func (b CustomerBase) AccountMRR() float64 {
	var sum float64
	for _, c := range b.Accounts {
		if c.Stage != StageChurned {
			sum += c.MRR
		}
	}
	return sum
}

func (b CustomerBase) Count(stage Lifecycle) int {
	n := 0
	for _, c := range b.Accounts {
		if c.Stage == stage {
			n++
		}
	}
	return n
}

// Metric reads any stat, derived ones included.
func (s *GameState) Metric(stat Stat) (float64, bool) {
	switch stat {
	case StatBank:
		return s.Bank, true
	case StatBurn:
		return s.Burn, true
	case StatMRR:
		return s.MRR, true
	case StatWAU:
		return s.WAU, true
	case StatWAUGrowth:
		return s.WAUGrowthRate, true
	case StatChurn:
		return s.ChurnRate, true
	case StatMorale:
		return s.Morale, true
	case StatReputation:
		return s.Reputation, true
	case StatNPS:
		return s.NPS, true
	case StatTechDebt:
		return s.TechDebt, true
	case StatCompliance:
		return s.ComplianceRisk, true
	case StatVelocity:
		return s.Velocity, true
	case StatFocusSlots:
		return float64(s.FocusSlots), true
	case StatOptionPool:
		return s.OptionPool, true
	case StatFounderEquity:
		return s.FounderEquity, true
	case StatIncidents:
		return float64(s.Incidents), true
	case StatRunway:
		return s.RunwayMonths, true
	case StatMomentum:
		return s.Momentum, true
	case StatWeek:
		return float64(s.Week), true
	case StatTeamSize:
		return float64(s.Roster.Size()), true
	case StatAtRiskAccounts:
		return float64(s.Customers.Count(StageAtRisk)), true
	case StatRivalParity:
		var best float64
		for _, c := range s.Competitors {
			if !c.Acquired && c.FeatureParity > best {
				best = c.FeatureParity
			}
		}
		return best, true
	case StatDemand:
		return s.Market.Demand, true
	default:
		return 0, false
	}
}

// Ref returns a pointer to the float field backing a writable stat.
// Structural stats (focus slots, incidents, equity) are handled by the
// resolver and return nil here.
func (s *GameState) Ref(stat Stat) *float64 {
	switch stat {
	case StatBank:
		return &s.Bank
	case StatBurn:
		return &s.Burn
	case StatMRR:
		return &s.MRR
	case StatWAU:
		return &s.WAU
	case StatWAUGrowth:
		return &s.WAUGrowthRate
	case StatChurn:
		return &s.ChurnRate
	case StatMorale:
		return &s.Morale
	case StatReputation:
		return &s.Reputation
	case StatNPS:
		return &s.NPS
	case StatTechDebt:
		return &s.TechDebt
	case StatCompliance:
		return &s.ComplianceRisk
	case StatVelocity:
		return &s.Velocity
	default:
		return nil
	}
}

func (s *GameState) IsUnlocked(k ActionKind) bool {
	i := sort.Search(len(s.UnlockedActions), func(i int) bool { return s.UnlockedActions[i] >= k })
	return i < len(s.UnlockedActions) && s.UnlockedActions[i] == k
}

func (s *GameState) Unlock(k ActionKind) bool {
	if s.IsUnlocked(k) {
		return false
	}
	s.UnlockedActions = append(s.UnlockedActions, k)
	sort.Slice(s.UnlockedActions, func(i, j int) bool { return s.UnlockedActions[i] < s.UnlockedActions[j] })
	return true
}

func (s *GameState) HasAchieved(id string) bool {
	i := sort.SearchStrings(s.Achieved, id)
	return i < len(s.Achieved) && s.Achieved[i] == id
}

func (s *GameState) MarkAchieved(id string) {
	if s.HasAchieved(id) {
		return
	}
	s.Achieved = append(s.Achieved, id)
	sort.Strings(s.Achieved)
}

func (s *GameState) ActiveEvent(id string) (Event, bool) {
	for _, e := range s.ActiveEvents {
		if e.ID == id {
			return e, true
		}
	}
	return Event{}, false
}

// AppendHistory records the current week, dropping the oldest entry past
// HistoryLimit.
func (s *GameState) AppendHistory() {
	s.History = append(s.History, WeekSnapshot{
		Week:       s.Week,
		Bank:       s.Bank,
		MRR:        s.MRR,
		Burn:       s.Burn,
		WAU:        s.WAU,
		Morale:     s.Morale,
		Reputation: s.Reputation,
		Momentum:   s.Momentum,
	})
	if n := len(s.History); n > HistoryLimit {
		s.History = append([]WeekSnapshot(nil), s.History[n-HistoryLimit:]...)
	}
}

// PushRecentActions appends this turn's kinds to the trailing window.
func (s *GameState) PushRecentActions(kinds []ActionKind, limit int) {
	s.RecentActions = append(s.RecentActions, append([]ActionKind{}, kinds...))
	if limit > 0 && len(s.RecentActions) > limit {
		s.RecentActions = append([][]ActionKind(nil), s.RecentActions[len(s.RecentActions)-limit:]...)
	}
}

// Digest is the sha256 of the state's JSON encoding. Replays compare it
// week by week. Empty and nil collections encode alike, since a gob round
// trip does not keep them apart.
func (s GameState) Digest() (string, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return "", err
	}
	if b, err = json.Marshal(nilEmpty(v)); err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func nilEmpty(v any) any {
	switch x := v.(type) {
	case []any:
		if len(x) == 0 {
			return nil
		}
		for i := range x {
			x[i] = nilEmpty(x[i])
		}
	case map[string]any:
		if len(x) == 0 {
			return nil
		}
		for k := range x {
			x[k] = nilEmpty(x[k])
		}
	}
	return v
}

// Clone deep-copies every slice and map so the copy can be mutated freely.
func (s GameState) Clone() GameState {
	out := s
	out.History = append([]WeekSnapshot(nil), s.History...)
	out.Roster = s.Roster.Clone()
	out.UnlockedActions = append([]ActionKind(nil), s.UnlockedActions...)
	out.Achieved = append([]string(nil), s.Achieved...)
	out.ActiveEvents = cloneEvents(s.ActiveEvents)
	out.EventCooldowns = cloneIntMap(s.EventCooldowns)
	out.ScheduledEvents = append([]ScheduledEvent(nil), s.ScheduledEvents...)
	if s.RecentActions != nil {
		out.RecentActions = make([][]ActionKind, len(s.RecentActions))
		for i, turn := range s.RecentActions {
			out.RecentActions[i] = append([]ActionKind(nil), turn...)
		}
	}
	out.PendingEffects = append([]PendingEffect(nil), s.PendingEffects...)
	out.Market = s.Market.Clone()
	if s.Competitors != nil {
		out.Competitors = make([]Competitor, len(s.Competitors))
		for i, c := range s.Competitors {
			c.Moves = append([]CompetitorMoveRecord(nil), c.Moves...)
			out.Competitors[i] = c
		}
	}
	out.Customers = CustomerBase{
		Accounts: append([]Customer(nil), s.Customers.Accounts...),
		Shares:   append([]SegmentShare(nil), s.Customers.Shares...),
		NextID:   s.Customers.NextID,
	}
	out.Practices = cloneIntMap(s.Practices)
	return out
}

func (m MarketState) Clone() MarketState {
	out := m
	if m.Conditions != nil {
		out.Conditions = make([]MarketCondition, len(m.Conditions))
		for i, c := range m.Conditions {
			c.Modifiers = append([]Modifier(nil), c.Modifiers...)
			out.Conditions[i] = c
		}
	}
	return out
}

func cloneEvents(in []Event) []Event {
	if in == nil {
		return nil
	}
	out := make([]Event, len(in))
	for i, e := range in {
		e.Effects = append([]Effect(nil), e.Effects...)
		if e.Choices != nil {
			cs := make([]Choice, len(e.Choices))
			for j, c := range e.Choices {
				c.Effects = append([]Effect(nil), c.Effects...)
				cs[j] = c
			}
			e.Choices = cs
		}
		out[i] = e
	}
	return out
}

func cloneIntMap(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
