package testutil

import (
	"fmt"
	"strings"
	"testing"
)

// LayerHCL renders a minimal layer manifest rooted at stagingRoot followed by
// the given extra blocks.
func LayerHCL(t *testing.T, stagingRoot string, blocks ...string) string {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "layer {\n  runtime      = \"python\"\n  staging_root = %q\n}\n", stagingRoot)
	for _, block := range blocks {
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(block))
		b.WriteString("\n")
	}
	return b.String()
}
