package hcl

import (
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// stageRoot is the value of the `stage_root` variable. Stage dirs are
// resolved per target, so it stays relative to the target root.
const stageRoot = "stage"

// variables are the values visible to declaration expressions.
type variables struct {
	sourceRoot string
	buildRoot  string
	env        cty.Value
}

func newVariables(env map[string]string) *variables {
	return &variables{env: envValue(env)}
}

// evalContext returns the context for one block. An empty name leaves the
// `name` variable undefined.
func (v *variables) evalContext(name string) *hcl.EvalContext {
	vars := map[string]cty.Value{
		"source_root": cty.StringVal(v.sourceRoot),
		"build_root":  cty.StringVal(v.buildRoot),
		"stage_root":  cty.StringVal(stageRoot),
		"env":         v.env,
	}
	if name != "" {
		vars["name"] = cty.StringVal(name)
	}
	return &hcl.EvalContext{Variables: vars}
}

func envValue(env map[string]string) cty.Value {
	if len(env) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	m := make(map[string]cty.Value, len(env))
	for k, val := range env {
		m[k] = cty.StringVal(val)
	}
	return cty.MapVal(m)
}

func environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k != "" {
			out[k] = v
		}
	}
	return out
}
