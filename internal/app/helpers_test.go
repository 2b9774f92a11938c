package app

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/layerstage/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing. Reports go to
// the returned buffer, logs to the SafeBuffer.
func SetupAppTest(t *testing.T, appConfig *Config, opts ...Option) (*App, *bytes.Buffer, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	testutil.LogOnFailure(t, logBuffer)
	appConfig.LogLevel = "debug"

	out := &bytes.Buffer{}
	testApp, err := NewApp(out, logBuffer, appConfig, opts...)
	require.NoError(t, err)
	return testApp, out, logBuffer
}
