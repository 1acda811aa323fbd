package game

type ActionKind string

const (
	ActShipFeature        ActionKind = "ship_feature"
	ActFounderLedSales    ActionKind = "founder_led_sales"
	ActHire               ActionKind = "hire"
	ActFundraise          ActionKind = "fundraise"
	ActTakeBreak          ActionKind = "take_break"
	ActRefactorCode       ActionKind = "refactor_code"
	ActRunExperiment      ActionKind = "run_experiment"
	ActContentLaunch      ActionKind = "content_launch"
	ActDevRel             ActionKind = "dev_rel"
	ActPaidAds            ActionKind = "paid_ads"
	ActCoach              ActionKind = "coach"
	ActFire               ActionKind = "fire"
	ActComplianceWork     ActionKind = "compliance_work"
	ActIncidentResponse   ActionKind = "incident_response"
	ActProcessImprovement ActionKind = "process_improvement"
)

var ActionKinds = []ActionKind{
	ActShipFeature, ActFounderLedSales, ActHire, ActFundraise, ActTakeBreak,
	ActRefactorCode, ActRunExperiment, ActContentLaunch, ActDevRel, ActPaidAds,
	ActCoach, ActFire, ActComplianceWork, ActIncidentResponse, ActProcessImprovement,
}

func (k ActionKind) Valid() bool {
	switch k {
	case ActShipFeature, ActFounderLedSales, ActHire, ActFundraise, ActTakeBreak,
		ActRefactorCode, ActRunExperiment, ActContentLaunch, ActDevRel, ActPaidAds,
		ActCoach, ActFire, ActComplianceWork, ActIncidentResponse, ActProcessImprovement:
		return true
	default:
		return false
	}
}

type Quality string

const (
	QualityQuick    Quality = "quick"
	QualityBalanced Quality = "balanced"
	QualityPolish   Quality = "polish"
)

// Category groups actions for specialization tracking.
type Category string

const (
	CategoryProduct    Category = "product"
	CategoryGrowth     Category = "growth"
	CategoryOperations Category = "operations"
	CategoryCustomer   Category = "customer"
)

// Action is one submitted weekly action. Only the fields relevant to Kind
// are read.
type Action struct {
	Kind ActionKind `json:"kind"`

	Quality  Quality `json:"quality,omitempty"`   // ship_feature
	Calls    int     `json:"calls,omitempty"`     // founder_led_sales
	Target   float64 `json:"target,omitempty"`    // fundraise
	Budget   float64 `json:"budget,omitempty"`    // paid_ads
	Role     string  `json:"role,omitempty"`      // hire
	MemberID int     `json:"member_id,omitempty"` // fire; 0 picks the latest hire
}

// ActionDef is the catalog entry for one action kind.
type ActionDef struct {
	Kind        ActionKind `json:"kind"`
	Label       string     `json:"label"`
	Description string     `json:"description,omitempty"`
	Category    Category   `json:"category"`
	FocusCost   int        `json:"focus_cost"`
	// Difficulties restricts the action to some modes. Empty means all.
	Difficulties   []Difficulty        `json:"difficulties,omitempty"`
	StartsUnlocked bool                `json:"starts_unlocked,omitempty"`
	Effects        []Effect            `json:"effects,omitempty"`
	Variants       map[string][]Effect `json:"variants,omitempty"`
}

func (d ActionDef) AllowedIn(diff Difficulty) bool {
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
