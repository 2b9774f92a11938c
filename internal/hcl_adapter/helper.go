package hcl_adapter

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// newEvalContext exposes the environment as the `env` object, so values like
// "${env.NLTK_MIRROR}" resolve at load time.
func newEvalContext(env map[string]string) *hcl.EvalContext {
	vals := make(map[string]cty.Value, len(env))
	for k, v := range env {
		vals[k] = cty.StringVal(v)
	}
	envVal := cty.EmptyObjectVal
	if len(vals) > 0 {
		envVal = cty.ObjectVal(vals)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"env": envVal},
	}
}

// processEnv snapshots os.Environ as a map.
func processEnv() map[string]string {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k != "" {
			env[k] = v
		}
	}
	return env
}

// parseDuration parses an optional duration attribute.
func parseDuration(attr string, s *string) (time.Duration, error) {
	if s == nil || *s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(*s)
	if err != nil {
		return 0, fmt.Errorf("settings: %s: %w", attr, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("settings: %s must not be negative, got %s", attr, *s)
	}
	return d, nil
}
