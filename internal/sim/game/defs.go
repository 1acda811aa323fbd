package game

// EventKind separates events that resolve on their own from ones that wait
// for the player.
type EventKind string

const (
	EventAutomatic EventKind = "automatic"
	EventDilemma   EventKind = "dilemma"
)

func (k EventKind) Valid() bool {
	switch k {
	case EventAutomatic, EventDilemma:
		return true
	default:
		return false
	}
}

type Choice struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Description string   `json:"description,omitempty"`
	ShortTerm   string   `json:"short_term,omitempty"`
	LongTerm    string   `json:"long_term,omitempty"`
	Wisdom      string   `json:"wisdom,omitempty"`
	Effects     []Effect `json:"effects"`
	// FollowUp names an event forced FollowUpDelay weeks after this choice.
	FollowUp      string `json:"follow_up,omitempty"`
	FollowUpDelay int    `json:"follow_up_delay,omitempty"`
}

// EventDef is a catalog entry.
type EventDef struct {
	ID              string       `json:"id"`
	Kind            EventKind    `json:"kind"`
	Title           string       `json:"title"`
	Description     string       `json:"description"`
	Trigger         []Condition  `json:"trigger,omitempty"`
	Difficulties    []Difficulty `json:"difficulties,omitempty"`
	MinWeek         int          `json:"min_week,omitempty"`
	BaseProbability float64      `json:"base_probability"`
	MaxProbability  float64      `json:"max_probability,omitempty"`
	CooldownWeeks   int          `json:"cooldown_weeks,omitempty"`
	ExpiresAfter    int          `json:"expires_after,omitempty"`
	DefaultChoice   string       `json:"default_choice,omitempty"`
	Effects         []Effect     `json:"effects,omitempty"`
	Choices         []Choice     `json:"choices,omitempty"`
}

func (d EventDef) AllowedIn(diff Difficulty) bool {
	if len(d.Difficulties) == 0 {
		return true
	}
	for _, x := range d.Difficulties {
		if x == diff {
			return true
		}
	}
	return false
}

// Event is a triggered instance carried in the state until resolved.
type Event struct {
	ID            string    `json:"id"`
	Kind          EventKind `json:"kind"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Week          int       `json:"week"`
	ExpiresWeek   int       `json:"expires_week,omitempty"`
	CooldownWeeks int       `json:"cooldown_weeks,omitempty"`
	DefaultChoice string    `json:"default_choice,omitempty"`
	Effects       []Effect  `json:"effects,omitempty"`
	Choices       []Choice  `json:"choices,omitempty"`
}

func (e Event) Choice(id string) (Choice, bool) {
	for _, c := range e.Choices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

type ScheduledEvent struct {
	ID      string `json:"id"`
	DueWeek int    `json:"due_week"`
}

// SynergyRule rewards combining actions inside a trailing window.
type SynergyRule struct {
	ID            string       `json:"id"`
	Label         string       `json:"label"`
	Description   string       `json:"description,omitempty"`
	Requires      []ActionKind `json:"requires"`
	Window        int          `json:"window,omitempty"`
	Effects       []Effect     `json:"effects"`
	ExclusiveWith []string     `json:"exclusive_with,omitempty"`
}

type SynergyMatch struct {
	RuleID  string   `json:"rule_id"`
	Label   string   `json:"label"`
	Effects []Effect `json:"effects"`
}

type MilestoneKind string

const (
	// MilestoneAchievement is a standalone flag.
	MilestoneAchievement MilestoneKind = "achievement"
	// MilestoneCriterion marks the first week an escape-velocity criterion holds.
	MilestoneCriterion MilestoneKind = "criterion"
	// MilestoneUnlock opens new actions.
	MilestoneUnlock MilestoneKind = "unlock"
)

func (k MilestoneKind) Valid() bool {
	switch k {
	case MilestoneAchievement, MilestoneCriterion, MilestoneUnlock:
		return true
	default:
		return false
	}
}

type Milestone struct {
	ID          string        `json:"id"`
	Kind        MilestoneKind `json:"kind"`
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	When        []Condition   `json:"when,omitempty"`
	Criterion   Criterion     `json:"criterion,omitempty"`
	Unlocks     []ActionKind  `json:"unlocks,omitempty"`
	Reward      []Effect      `json:"reward,omitempty"`
}

type Criterion string

const (
	CriterionRevenueCoversBurn Criterion = "revenue_covers_burn"
	CriterionGrowthSustained   Criterion = "growth_sustained"
	CriterionCustomerLove      Criterion = "customer_love"
	CriterionFounderHealthy    Criterion = "founder_healthy"
)

type ModTarget string

const (
	ModWAUGrowth   ModTarget = "wau_growth"
	ModBurn        ModTarget = "burn"
	ModChurn       ModTarget = "churn_rate"
	ModVelocity    ModTarget = "velocity"
	ModMorale      ModTarget = "morale"
	ModReputation  ModTarget = "reputation"
	ModCompliance  ModTarget = "compliance_risk"
	ModFundraising ModTarget = "fundraising_success"
	ModHiringCost  ModTarget = "hiring_cost"
)

type Modifier struct {
	Target     ModTarget `json:"target"`
	Multiplier float64   `json:"multiplier"`
}

// MarketCondition is an exogenous situation lasting a few weeks.
type MarketCondition struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Modifiers      []Modifier `json:"modifiers"`
	MinWeeks       int        `json:"min_weeks,omitempty"`
	MaxWeeks       int        `json:"max_weeks,omitempty"`
	WeeksRemaining int        `json:"weeks_remaining,omitempty"`
}

type Segment string

const (
	SegmentEnterprise Segment = "enterprise"
	SegmentSMB        Segment = "smb"
	SegmentSelfServe  Segment = "self_serve"
)

type SegmentDef struct {
	Segment Segment `json:"segment"`
	Label   string  `json:"label"`
	// MinMRR is the smallest account MRR that lands in this segment.
	MinMRR float64 `json:"min_mrr"`
	// Sensitivity scales satisfaction drift for accounts in the segment.
	Sensitivity float64  `json:"sensitivity"`
	Names       []string `json:"names,omitempty"`
}
