package game

// Stat names a metric. Writable stats can be targeted by effects; the rest
// are derived or structural and only appear in conditions.
type Stat string

const (
	StatBank           Stat = "bank"
	StatBurn           Stat = "burn"
	StatMRR            Stat = "mrr"
	StatWAU            Stat = "wau"
	StatWAUGrowth      Stat = "wau_growth_rate"
	StatChurn          Stat = "churn_rate"
	StatMorale         Stat = "morale"
	StatReputation     Stat = "reputation"
	StatNPS            Stat = "nps"
	StatTechDebt       Stat = "tech_debt"
	StatCompliance     Stat = "compliance_risk"
	StatVelocity       Stat = "velocity"
	StatFocusSlots     Stat = "focus_slots"
	StatDilution       Stat = "dilution"
	StatOptionPool     Stat = "option_pool"
	StatIncidents      Stat = "incidents"
	StatRunway         Stat = "runway_months"
	StatMomentum       Stat = "momentum"
	StatWeek           Stat = "week"
	StatTeamSize       Stat = "team_size"
	StatFounderEquity  Stat = "founder_equity"
	StatAtRiskAccounts Stat = "at_risk_accounts"
	StatRivalParity    Stat = "rival_parity"
	StatDemand         Stat = "demand"
)

func (s Stat) Valid() bool {
	switch s {
	case StatBank, StatBurn, StatMRR, StatWAU, StatWAUGrowth, StatChurn, StatMorale,
		StatReputation, StatNPS, StatTechDebt, StatCompliance, StatVelocity, StatFocusSlots,
		StatDilution, StatOptionPool, StatIncidents, StatRunway, StatMomentum, StatWeek,
		StatTeamSize, StatFounderEquity, StatAtRiskAccounts, StatRivalParity, StatDemand:
		return true
	default:
		return false
	}
}

func (s Stat) Writable() bool {
	switch s {
	case StatBank, StatBurn, StatMRR, StatWAU, StatWAUGrowth, StatChurn, StatMorale,
		StatReputation, StatNPS, StatTechDebt, StatCompliance, StatVelocity, StatFocusSlots,
		StatDilution, StatOptionPool, StatIncidents:
		return true
	default:
		return false
	}
}

type Op string

const (
	OpAdd Op = "add"
	// OpMul multiplies onto the running value (a compounding effect).
	OpMul Op = "mul"
)

// Effect is one ordered numeric delta.
type Effect struct {
	Stat       Stat    `json:"stat"`
	Op         Op      `json:"op,omitempty"`
	Value      float64 `json:"value"`
	DelayWeeks int     `json:"delay_weeks,omitempty"`
	Source     string  `json:"source,omitempty"`
}

func Add(stat Stat, v float64, source string) Effect {
	return Effect{Stat: stat, Op: OpAdd, Value: v, Source: source}
}

func Mul(stat Stat, v float64, source string) Effect {
	return Effect{Stat: stat, Op: OpMul, Value: v, Source: source}
}

// Multiplicative reports whether the effect compounds. An empty op adds.
func (e Effect) Multiplicative() bool { return e.Op == OpMul }

// Scaled returns a copy of effs with additive magnitudes multiplied by k.
// Multiplicative effects are scaled around 1.0.
func Scaled(effs []Effect, k float64) []Effect {
	out := make([]Effect, len(effs))
	for i, e := range effs {
		if e.Multiplicative() {
			e.Value = 1 + (e.Value-1)*k
		} else {
			e.Value *= k
		}
		out[i] = e
	}
	return out
}

// WithSource stamps every effect that has no source yet.
func WithSource(effs []Effect, source string) []Effect {
	out := make([]Effect, len(effs))
	for i, e := range effs {
		if e.Source == "" {
			e.Source = source
		}
		out[i] = e
	}
	return out
}

// PendingEffect is a delayed effect waiting for its week.
type PendingEffect struct {
	DueWeek int    `json:"due_week"`
	Effect  Effect `json:"effect"`
}

type Cmp string

const (
	CmpGT  Cmp = "gt"
	CmpGTE Cmp = "gte"
	CmpLT  Cmp = "lt"
	CmpLTE Cmp = "lte"
)

// Condition is a threshold predicate over one metric.
type Condition struct {
	Stat  Stat    `json:"stat"`
	Cmp   Cmp     `json:"cmp"`
	Value float64 `json:"value"`
	// Scale is the distance past the threshold that doubles an event's
	// base chance. Zero means the distance does not matter.
	Scale float64 `json:"scale,omitempty"`
}

func (c Condition) Holds(v float64) bool {
	switch c.Cmp {
	case CmpGT:
		return v > c.Value
	case CmpGTE:
		return v >= c.Value
	case CmpLT:
		return v < c.Value
	case CmpLTE:
		return v <= c.Value
	default:
		return false
	}
}

// Excess is how far past the threshold v sits, in units of Scale.
func (c Condition) Excess(v float64) float64 {
	if c.Scale <= 0 || !c.Holds(v) {
		return 0
	}
	d := v - c.Value
	if c.Cmp == CmpLT || c.Cmp == CmpLTE {
		d = c.Value - v
	}
	if d < 0 {
		d = 0
	}
	return d / c.Scale
}

// AllHold evaluates every condition against s.
func AllHold(s *GameState, conds []Condition) bool {
	for _, c := range conds {
		v, ok := s.Metric(c.Stat)
		if !ok || !c.Holds(v) {
			return false
		}
	}
	return true
}
