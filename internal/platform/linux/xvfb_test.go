package linux

import (
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mj1618/desktop-automation/internal/platform"
)

func withXvfbCommand(t *testing.T, name string, args ...string) {
	t.Helper()
	if _, err := exec.LookPath(name); err != nil {
		t.Skipf("%s not available", name)
	}
	prev := xvfbCommand
	xvfbCommand = func(string) *exec.Cmd { return exec.Command(name, args...) }
	t.Cleanup(func() { xvfbCommand = prev })
}

func TestXvfbArgs(t *testing.T) {
	args := xvfbArgs(":99")
	assert.Equal(t, ":99", args[0])
	assert.Contains(t, args, "-screen")
	assert.Contains(t, args, "-nolisten")
}

func TestStartXvfb_WaitsForDisplay(t *testing.T) {
	withXvfbCommand(t, "sleep", "30")
	attempts := 0
	dial := func(name string) (*display, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection refused")
		}
		return &display{name: name}, nil
	}

	srv, d, err := startXvfb(":99", dial, 5*time.Second, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, ":99", d.name)
	assert.Equal(t, 3, attempts)
	assert.True(t, srv.running())

	srv.stop()
	assert.False(t, srv.running())
	srv.stop()
}

func TestStartXvfb_ServerExits(t *testing.T) {
	withXvfbCommand(t, "true")
	dial := func(string) (*display, error) { return nil, errors.New("connection refused") }

	_, _, err := startXvfb(":99", dial, 5*time.Second, zap.NewNop())
	require.Error(t, err)
	assert.True(t, platform.Is(err, platform.CodePlatformError), "got %v", err)
	assert.Contains(t, err.Error(), "exited")
}

func TestStartXvfb_Timeout(t *testing.T) {
	withXvfbCommand(t, "sleep", "30")
	dial := func(string) (*display, error) { return nil, errors.New("connection refused") }

	_, _, err := startXvfb(":99", dial, 50*time.Millisecond, zap.NewNop())
	require.Error(t, err)
	assert.True(t, platform.IsRetryable(err))
}

func TestStartXvfb_MissingBinary(t *testing.T) {
	prev := xvfbCommand
	xvfbCommand = func(string) *exec.Cmd { return exec.Command("/nonexistent/Xvfb") }
	t.Cleanup(func() { xvfbCommand = prev })

	_, _, err := startXvfb(":99", openDisplay, time.Second, zap.NewNop())
	assert.True(t, platform.Is(err, platform.CodePlatformError), "got %v", err)
}
