package catalogs

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/acailic/founders-dilemma-sub001/configs"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
)

type Catalogs struct {
	Actions     ActionCatalog
	Synergies   SynergyCatalog
	Events      EventCatalog
	Market      MarketCatalog
	Milestones  MilestoneCatalog
	Segments    SegmentCatalog
	Competitors CompetitorCatalog
}

type ActionCatalog struct {
	// Defs keeps file order; it is the order actions are offered in.
	Defs   []game.ActionDef
	ByKind map[game.ActionKind]game.ActionDef
	Digest string
}

func (c ActionCatalog) Def(k game.ActionKind) (game.ActionDef, bool) {
	d, ok := c.ByKind[k]
	return d, ok
}

type SynergyCatalog struct {
	// Rules keeps file order; earlier rules win exclusivity ties.
	Rules  []game.SynergyRule
	Digest string
}

type EventCatalog struct {
	// Defs is sorted by id so rolls happen in a stable order.
	Defs   []game.EventDef
	ByID   map[string]game.EventDef
	Digest string
}

type MarketCatalog struct {
	Conditions []game.MarketCondition
	ByID       map[string]game.MarketCondition
	Digest     string
}

type MilestoneCatalog struct {
	Defs   []game.Milestone
	Digest string
}

type SegmentCatalog struct {
	// Defs is sorted by MinMRR, largest first.
	Defs   []game.SegmentDef
	Digest string
}

// Classify returns the segment an account of the given MRR falls in.
func (c SegmentCatalog) Classify(mrr float64) game.SegmentDef {
	for _, d := range c.Defs {
		if mrr > d.MinMRR || (d.MinMRR == 0 && mrr >= 0) {
			return d
		}
	}
	if len(c.Defs) == 0 {
		return game.SegmentDef{Segment: game.SegmentSelfServe, Sensitivity: 1}
	}
	return c.Defs[len(c.Defs)-1]
}

func (c SegmentCatalog) Def(s game.Segment) (game.SegmentDef, bool) {
	for _, d := range c.Defs {
		if d.Segment == s {
			return d, true
		}
	}
	return game.SegmentDef{}, false
}

// NewMarketCatalog wraps caller-supplied conditions after the same checks
// the loader applies. The digest is left empty.
func NewMarketCatalog(conds []game.MarketCondition) (MarketCatalog, error) {
	c := MarketCatalog{Conditions: conds, ByID: make(map[string]game.MarketCondition, len(conds))}
	for _, x := range conds {
		if err := CheckCondition(x); err != nil {
			return MarketCatalog{}, err
		}
		c.ByID[x.ID] = x
	}
	return c, nil
}

// CheckCondition rejects a market condition that could not be started: no
// id, an empty duration range or a non-positive modifier.
func CheckCondition(c game.MarketCondition) error {
	if c.ID == "" {
		return fmt.Errorf("empty id")
	}
	if c.MinWeeks <= 0 || c.MaxWeeks < c.MinWeeks {
		return fmt.Errorf("%s: bad duration %d..%d", c.ID, c.MinWeeks, c.MaxWeeks)
	}
	for _, m := range c.Modifiers {
		if m.Multiplier <= 0 {
			return fmt.Errorf("%s: multiplier must be positive", c.ID)
		}
	}
	return nil
}

// NewSegmentCatalog wraps caller-supplied segment definitions in the same
// order the loader produces.
func NewSegmentCatalog(defs []game.SegmentDef) SegmentCatalog {
	c := SegmentCatalog{Defs: append([]game.SegmentDef(nil), defs...)}
	sort.SliceStable(c.Defs, func(i, j int) bool { return c.Defs[i].MinMRR > c.Defs[j].MinMRR })
	for i := range c.Defs {
		if c.Defs[i].Sensitivity <= 0 {
			c.Defs[i].Sensitivity = 1
		}
	}
	return c
}

type CompetitorCatalog struct {
	Names   []string               `json:"names"`
	Pricing []game.PricingStrategy `json:"pricing"`
	Digest  string                 `json:"-"`
}

// Load reads every catalog from a config directory on disk.
func Load(configDir string) (*Catalogs, error) {
	return LoadFS(os.DirFS(configDir))
}

// Default loads the catalogs compiled into the binary.
func Default() (*Catalogs, error) {
	return LoadFS(configs.FS)
}

func LoadFS(fsys fs.FS) (*Catalogs, error) {
	var c Catalogs

	if err := loadActions(fsys, "actions.json", &c.Actions); err != nil {
		return nil, err
	}
	if err := loadSynergies(fsys, "synergies.json", &c.Synergies, c.Actions); err != nil {
		return nil, err
	}
	if err := loadEvents(fsys, "events", &c.Events); err != nil {
		return nil, err
	}
	if err := loadMarket(fsys, "market_conditions.json", &c.Market); err != nil {
		return nil, err
	}
	if err := loadMilestones(fsys, "milestones.json", &c.Milestones, c.Actions); err != nil {
		return nil, err
	}
	if err := loadSegments(fsys, "segments.json", &c.Segments); err != nil {
		return nil, err
	}
	if err := loadCompetitors(fsys, "competitors.json", &c.Competitors); err != nil {
		return nil, err
	}
	return &c, nil
}

// Digests lists each catalog's digest under its file name.
func (c *Catalogs) Digests() map[string]string {
	return map[string]string{
		"actions":           c.Actions.Digest,
		"synergies":         c.Synergies.Digest,
		"events":            c.Events.Digest,
		"market_conditions": c.Market.Digest,
		"milestones":        c.Milestones.Digest,
		"segments":          c.Segments.Digest,
		"competitors":       c.Competitors.Digest,
	}
}

// Digest folds every catalog digest into one value, in a fixed order.
func (c *Catalogs) Digest() string {
	d := c.Digests()
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(d[k])
		b.WriteByte('\n')
	}
	return sha256Hex([]byte(b.String()))
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func validEffects(file, owner string, effs []game.Effect) error {
	for _, e := range effs {
		if !e.Stat.Writable() {
			return fmt.Errorf("%s: %s: effect on non-writable stat %q", file, owner, e.Stat)
		}
		switch e.Op {
		case "", game.OpAdd, game.OpMul:
		default:
			return fmt.Errorf("%s: %s: unknown op %q", file, owner, e.Op)
		}
		if e.DelayWeeks < 0 {
			return fmt.Errorf("%s: %s: negative delay", file, owner)
		}
	}
	return nil
}

func validConditions(file, owner string, conds []game.Condition) error {
	for _, c := range conds {
		if !c.Stat.Valid() {
			return fmt.Errorf("%s: %s: unknown stat %q", file, owner, c.Stat)
		}
		switch c.Cmp {
		case game.CmpGT, game.CmpGTE, game.CmpLT, game.CmpLTE:
		default:
			return fmt.Errorf("%s: %s: unknown comparison %q", file, owner, c.Cmp)
		}
	}
	return nil
}

func loadActions(fsys fs.FS, name string, out *ActionCatalog) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	var defs []game.ActionDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	out.ByKind = make(map[game.ActionKind]game.ActionDef, len(defs))
	for _, d := range defs {
		if !d.Kind.Valid() {
			return fmt.Errorf("%s: unknown action kind %q", name, d.Kind)
		}
		if _, dup := out.ByKind[d.Kind]; dup {
			return fmt.Errorf("%s: duplicate action %q", name, d.Kind)
		}
		if d.FocusCost <= 0 {
			return fmt.Errorf("%s: %s: focus_cost must be positive", name, d.Kind)
		}
		for _, diff := range d.Difficulties {
			if !diff.Valid() {
				return fmt.Errorf("%s: %s: unknown difficulty %q", name, d.Kind, diff)
			}
		}
		if err := validEffects(name, string(d.Kind), d.Effects); err != nil {
			return err
		}
		for v, effs := range d.Variants {
			if err := validEffects(name, string(d.Kind)+"/"+v, effs); err != nil {
				return err
			}
		}
		out.ByKind[d.Kind] = d
	}
	for _, k := range game.ActionKinds {
		if _, ok := out.ByKind[k]; !ok {
			return fmt.Errorf("%s: missing action %q", name, k)
		}
	}
	out.Defs = defs
	return nil
}

func loadSynergies(fsys fs.FS, name string, out *SynergyCatalog, actions ActionCatalog) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	if err := json.Unmarshal(raw, &out.Rules); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	seen := map[string]bool{}
	for _, r := range out.Rules {
		if r.ID == "" {
			return fmt.Errorf("%s: empty id", name)
		}
		if seen[r.ID] {
			return fmt.Errorf("%s: duplicate rule %q", name, r.ID)
		}
		seen[r.ID] = true
		if len(r.Requires) == 0 {
			return fmt.Errorf("%s: %s: requires no actions", name, r.ID)
		}
		for _, k := range r.Requires {
			if _, ok := actions.Def(k); !ok {
				return fmt.Errorf("%s: %s: unknown action %q", name, r.ID, k)
			}
		}
		if err := validEffects(name, r.ID, r.Effects); err != nil {
			return err
		}
	}
	for _, r := range out.Rules {
		for _, x := range r.ExclusiveWith {
			if !seen[x] {
				return fmt.Errorf("%s: %s: exclusive with unknown rule %q", name, r.ID, x)
			}
		}
	}
	return nil
}

// loadEvents reads one event definition per file under dir.
func loadEvents(fsys fs.FS, dir string, out *EventCatalog) error {
	out.ByID = map[string]game.EventDef{}

	var files []string
	err := fs.WalkDir(fsys, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".json") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			out.Digest = sha256Hex(nil)
			return nil
		}
		return err
	}
	sort.Strings(files)

	var concat bytes.Buffer
	for _, p := range files {
		b, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		concat.Write(b)
		concat.WriteByte('\n')

		base := path.Base(p)
		var ev game.EventDef
		if err := json.Unmarshal(b, &ev); err != nil {
			return fmt.Errorf("event %s: %w", base, err)
		}
		if err := validateEvent(base, ev); err != nil {
			return err
		}
		if _, dup := out.ByID[ev.ID]; dup {
			return fmt.Errorf("event %s: duplicate id %q", base, ev.ID)
		}
		out.ByID[ev.ID] = ev
	}
	out.Digest = sha256Hex(concat.Bytes())

	out.Defs = make([]game.EventDef, 0, len(out.ByID))
	for _, ev := range out.ByID {
		out.Defs = append(out.Defs, ev)
	}
	sort.Slice(out.Defs, func(i, j int) bool { return out.Defs[i].ID < out.Defs[j].ID })

	for _, ev := range out.Defs {
		for _, c := range ev.Choices {
			if c.FollowUp == "" {
				continue
			}
			if _, ok := out.ByID[c.FollowUp]; !ok {
				return fmt.Errorf("event %s: choice %s follows up unknown event %q", ev.ID, c.ID, c.FollowUp)
			}
		}
	}
	return nil
}

func validateEvent(file string, ev game.EventDef) error {
	if ev.ID == "" {
		return fmt.Errorf("event %s: missing id", file)
	}
	if !ev.Kind.Valid() {
		return fmt.Errorf("event %s: unknown kind %q", file, ev.Kind)
	}
	if ev.BaseProbability < 0 || ev.BaseProbability > 1 {
		return fmt.Errorf("event %s: base_probability out of range", file)
	}
	if err := validConditions(file, ev.ID, ev.Trigger); err != nil {
		return err
	}
	switch ev.Kind {
	case game.EventAutomatic:
		if len(ev.Choices) > 0 {
			return fmt.Errorf("event %s: automatic event with choices", file)
		}
		return validEffects(file, ev.ID, ev.Effects)
	case game.EventDilemma:
		if len(ev.Choices) == 0 {
			return fmt.Errorf("event %s: dilemma without choices", file)
		}
		found := ev.DefaultChoice == ""
		for _, c := range ev.Choices {
			if c.ID == ev.DefaultChoice {
				found = true
			}
			if err := validEffects(file, ev.ID+"/"+c.ID, c.Effects); err != nil {
				return err
			}
		}
		if !found {
			return fmt.Errorf("event %s: default choice %q not among choices", file, ev.DefaultChoice)
		}
		return nil
	default:
		return fmt.Errorf("event %s: unknown kind %q", file, ev.Kind)
	}
}

func loadMarket(fsys fs.FS, name string, out *MarketCatalog) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	if err := json.Unmarshal(raw, &out.Conditions); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	out.ByID = make(map[string]game.MarketCondition, len(out.Conditions))
	for _, c := range out.Conditions {
		if err := CheckCondition(c); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		out.ByID[c.ID] = c
	}
	return nil
}

func loadMilestones(fsys fs.FS, name string, out *MilestoneCatalog, actions ActionCatalog) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	if err := json.Unmarshal(raw, &out.Defs); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	seen := map[string]bool{}
	for _, m := range out.Defs {
		if m.ID == "" || seen[m.ID] {
			return fmt.Errorf("%s: empty or duplicate id %q", name, m.ID)
		}
		seen[m.ID] = true
		if err := validConditions(name, m.ID, m.When); err != nil {
			return err
		}
		if err := validEffects(name, m.ID, m.Reward); err != nil {
			return err
		}
		switch m.Kind {
		case game.MilestoneAchievement:
			if len(m.When) == 0 {
				return fmt.Errorf("%s: %s: achievement without conditions", name, m.ID)
			}
		case game.MilestoneCriterion:
			switch m.Criterion {
			case game.CriterionRevenueCoversBurn, game.CriterionGrowthSustained,
				game.CriterionCustomerLove, game.CriterionFounderHealthy:
			default:
				return fmt.Errorf("%s: %s: unknown criterion %q", name, m.ID, m.Criterion)
			}
		case game.MilestoneUnlock:
			if len(m.Unlocks) == 0 {
				return fmt.Errorf("%s: %s: unlock without actions", name, m.ID)
			}
			for _, k := range m.Unlocks {
				if _, ok := actions.Def(k); !ok {
					return fmt.Errorf("%s: %s: unlocks unknown action %q", name, m.ID, k)
				}
			}
		default:
			return fmt.Errorf("%s: %s: unknown kind %q", name, m.ID, m.Kind)
		}
	}
	return nil
}

func loadSegments(fsys fs.FS, name string, out *SegmentCatalog) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)

	if err := json.Unmarshal(raw, &out.Defs); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if len(out.Defs) == 0 {
		return fmt.Errorf("%s: no segments", name)
	}
	sort.SliceStable(out.Defs, func(i, j int) bool { return out.Defs[i].MinMRR > out.Defs[j].MinMRR })
	for i := range out.Defs {
		if out.Defs[i].Sensitivity <= 0 {
			out.Defs[i].Sensitivity = 1
		}
	}
	return nil
}

func loadCompetitors(fsys fs.FS, name string, out *CompetitorCatalog) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if len(out.Names) == 0 {
		return fmt.Errorf("%s: no competitor names", name)
	}
	if len(out.Pricing) == 0 {
		out.Pricing = []game.PricingStrategy{game.PricingMatch}
	}
	return nil
}
