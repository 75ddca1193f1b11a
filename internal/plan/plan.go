package plan

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/jwpure/internal/constraint"
	"github.com/roach88/jwpure/internal/engine"
)

//go:embed schema.cue
var schemaSource string

// Plan is an ordered list of allocation passes.
type Plan struct {
	Passes []Pass
}

// Pass is one call to engine.Allocate.
type Pass struct {
	// Name labels the pass in output. Defaults to "pass N" (1-based).
	Name string

	// Limits are the pass's caps. Omitted caps default to 999.
	Limits engine.Limits

	// Where is the constraint. nil matches every available slot.
	Where constraint.Predicate
}

// LoadFile reads and compiles a plan file.
func LoadFile(path string) (*Plan, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return Compile(src, path)
}

// CompileString compiles plan source held in a string.
func CompileString(src string) (*Plan, error) {
	return Compile([]byte(src), "plan.cue")
}

// Compile compiles plan source. filename is used in error positions.
func Compile(src []byte, filename string) (*Plan, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile plan schema: %w", err)
	}

	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Plan")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	return decodePlan(unified)
}

func decodePlan(v cue.Value) (*Plan, error) {
	passesVal := v.LookupPath(cue.ParsePath("passes"))
	iter, err := passesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	p := &Plan{}
	for iter.Next() {
		pass, err := decodePass(iter.Value(), len(p.Passes)+1)
		if err != nil {
			return nil, err
		}
		p.Passes = append(p.Passes, pass)
	}

	if len(p.Passes) == 0 {
		return nil, &CompileError{
			Field:   "passes",
			Message: "at least one pass is required",
			Pos:     passesVal.Pos(),
		}
	}
	return p, nil
}

func decodePass(v cue.Value, n int) (Pass, error) {
	pass := Pass{Name: fmt.Sprintf("pass %d", n)}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return pass, formatCUEError(err)
		}
		pass.Name = name
	}

	var err error
	if pass.Limits.MaxSlotsPerConfig, err = intField(v, "max_slots_per_config"); err != nil {
		return pass, err
	}
	if pass.Limits.MaxConfigsPerVisit, err = intField(v, "max_configs_per_visit"); err != nil {
		return pass, err
	}

	if whereVal := v.LookupPath(cue.ParsePath("where")); whereVal.Exists() {
		pass.Where, err = decodeNode(whereVal, "where")
		if err != nil {
			return pass, err
		}
	}

	return pass, nil
}

func intField(v cue.Value, field string) (int, error) {
	fv, _ := v.LookupPath(cue.ParsePath(field)).Default()
	n, err := fv.Int64()
	if err != nil {
		return 0, formatCUEError(err)
	}
	return int(n), nil
}

// Validate checks every pass's constraint against table descriptors.
// Issues are prefixed with the pass name.
func Validate(p *Plan, tables ...*constraint.Table) []string {
	var issues []string
	for _, pass := range p.Passes {
		if pass.Where == nil {
			continue
		}
		res := constraint.Validate(pass.Where, tables...)
		for _, issue := range res.Issues {
			issues = append(issues, pass.Name+": "+issue)
		}
	}
	return issues
}
