// Command schemagen writes the request schema of every boundary operation
// to schemas/<op>.schema.json.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/iancoleman/orderedmap"
	"github.com/invopop/jsonschema"

	"github.com/acailic/founders-dilemma-sub001/internal/protocol"
	"github.com/acailic/founders-dilemma-sub001/internal/sim/game"
)

var descriptions = map[string]string{
	protocol.OpNewGame:                    "Start a game at week 0.",
	protocol.OpTakeTurn:                   "Advance one week.",
	protocol.OpCheckGameStatus:            "Report victory or defeat.",
	protocol.OpGetAvailableActions:        "List the actions the state may submit.",
	protocol.OpGetMarketStatus:            "Summarize the market.",
	protocol.OpGenerateInsights:           "Compare two snapshots.",
	protocol.OpGenerateWarnings:           "List health warnings.",
	protocol.OpProcessCompoundingEffects:  "Apply an effect batch.",
	protocol.OpCheckForEvents:             "Roll this week's events.",
	protocol.OpApplyEventChoice:           "Resolve a dilemma with one of its choices.",
	protocol.OpCheckActionSynergies:       "Match actions against synergy rules.",
	protocol.OpUpdateMarketConditions:     "Advance the market one step.",
	protocol.OpCheckProgressionMilestones: "List newly achieved milestones.",
	protocol.OpUpdateCustomerSegments:     "Advance customer accounts.",
	protocol.OpUpdateCompetitors:          "Let every rival act once.",
}

func main() {
	var outDir string
	flag.StringVar(&outDir, "out", "schemas", "directory to write the schemas to")
	flag.Parse()

	reqs := protocol.Requests()
	for _, op := range protocol.Ops {
		schema := buildSchema(op, reqs[op])
		if err := writeSchema(filepath.Join(outDir, op+".schema.json"), schema); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", op, err)
			os.Exit(1)
		}
	}
}

func buildSchema(op string, req any) *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
		Mapper:                     mapType,
	}
	schema := reflector.Reflect(req)
	schema.Version = jsonschema.Version
	schema.Title = op
	schema.Description = descriptions[op]
	return schema
}

var (
	actionKindType = reflect.TypeOf(game.ActionKind(""))
	difficultyType = reflect.TypeOf(game.Difficulty(""))
	actionType     = reflect.TypeOf(game.Action{})

	// Structures the engine validates itself; the schema only asks for an
	// object.
	opaqueTypes = map[reflect.Type]bool{
		reflect.TypeOf(game.GameState{}):       true,
		reflect.TypeOf(game.Effect{}):          true,
		reflect.TypeOf(game.Event{}):           true,
		reflect.TypeOf(game.SynergyRule{}):     true,
		reflect.TypeOf(game.MarketCondition{}): true,
		reflect.TypeOf(game.Milestone{}):       true,
		reflect.TypeOf(game.SegmentDef{}):      true,
		reflect.TypeOf(game.Competitor{}):      true,
	}
)

func mapType(t reflect.Type) *jsonschema.Schema {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch {
	case t == actionKindType:
		return enumSchema(game.ActionKinds)
	case t == difficultyType:
		return enumSchema(game.Difficulties)
	case t == actionType:
		props := orderedmap.New()
		props.Set("kind", enumSchema(game.ActionKinds))
		return &jsonschema.Schema{Type: "object", Properties: props, Required: []string{"kind"}}
	case opaqueTypes[t]:
		return &jsonschema.Schema{Type: "object"}
	}
	return nil
}

func enumSchema[T ~string](vals []T) *jsonschema.Schema {
	enum := make([]interface{}, len(vals))
	for i, v := range vals {
		enum[i] = string(v)
	}
	return &jsonschema.Schema{Type: "string", Enum: enum}
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
