package e2e

import (
	"bytes"
	"context"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	addr := freeAddr(t)
	env := []string{
		"HOME=" + home,
		"RELAY_SERVER_LISTEN=" + addr,
		"RELAY_CLIENT_SERVER_URL=http://" + addr,
		"RELAY_POLL_DEFAULT_TIMEOUT=200ms",
	}

	stopServe := startServe(t, binaryPath, env)
	defer stopServe()

	var sessionID string
	require.Eventually(t, func() bool {
		stdout, _, err := runRelay(t, binaryPath, env, "register", "--consumer", "smoke", "--link", "http://x.test")
		sessionID = strings.TrimSpace(stdout)
		return err == nil && sessionID != ""
	}, 10*time.Second, 50*time.Millisecond)

	stdout, stderr, err := runRelay(t, binaryPath, env, "submit", "http://x.test/page1", "broken button", "--selector", "button.save")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "delivered to session "+sessionID)

	stdout, stderr, err = runRelay(t, binaryPath, env, "poll", sessionID)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "broken button")

	stdout, stderr, err = runRelay(t, binaryPath, env, "poll", sessionID)
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "No annotations (timeout)")

	stdout, stderr, err = runRelay(t, binaryPath, env, "sessions")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, sessionID)

	stdout, stderr, err = runRelay(t, binaryPath, env, "version")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Equal(t, "dev", strings.TrimSpace(stdout))
}

func startServe(t *testing.T, binaryPath string, env []string) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, binaryPath, "serve")
	cmd.Env = append(os.Environ(), env...)
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 15 * time.Second

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	require.NoError(t, cmd.Start())

	return func() {
		cancel()
		err := cmd.Wait()
		assert.NoError(t, err, "serve stderr: %s", stderr.String())
	}
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "relay-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/relay")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build relay binary: %s", string(output))
	return binaryPath
}

func runRelay(t *testing.T, binaryPath string, env []string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), env...)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func freeAddr(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())
	return addr
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}
