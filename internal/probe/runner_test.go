package probe

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_StdoutOutlivingProcess(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	// The background sleep inherits stdout and keeps it open after sh is
	// killed at the deadline.
	started := time.Now()
	_, err = ExecRunner{WaitDelay: 100 * time.Millisecond}.Run(ctx, sh, "-c", "sleep 3 & sleep 3")
	elapsed := time.Since(started)

	require.Error(t, err)
	assert.Less(t, elapsed, 2*time.Second, "Run blocked on a pipe held by a grandchild")
}

func TestExecRunner_ExitErrorCarriesStderr(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	out, err := ExecRunner{}.Run(context.Background(), sh, "-c", "echo partial; echo first >&2; echo boom >&2; exit 3")

	require.Error(t, err)
	var exitErr *exec.ExitError
	assert.ErrorAs(t, err, &exitErr)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, "partial\n", string(out))
}
