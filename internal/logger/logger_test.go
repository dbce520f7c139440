package logger

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// captureLogs redirects output to a buffer for the duration of the test.
func captureLogs(t *testing.T, verboseMode bool) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(verboseMode)
	t.Cleanup(func() {
		SetVerbose(false)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestSetVerbose_Toggles(t *testing.T) {
	captureLogs(t, false)
	assert.False(t, IsVerbose())

	SetVerbose(true)
	assert.True(t, IsVerbose())

	SetVerbose(false)
	assert.False(t, IsVerbose())
}

func TestLevels_Verbose(t *testing.T) {
	tests := []struct {
		name string
		log  func()
		want string
	}{
		{"debug", func() { Debug("exchanging %s code", "spotify") }, "[DEBUG] exchanging spotify code\n"},
		{"info", func() { Info("%d platforms connected", 2) }, "[INFO] 2 platforms connected\n"},
		{"warn", func() { Warn("revoke failed") }, "[WARN] revoke failed\n"},
		{"error", func() { Error("sync failed: %s", "timeout") }, "[ERROR] sync failed: timeout\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t, true)
			tt.log()
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestLevels_QuietOnlyErrors(t *testing.T) {
	buf := captureLogs(t, false)

	Debug("hidden")
	Info("hidden")
	Warn("hidden")
	Section("Hidden")
	Error("failed: %s", "boom")

	assert.Equal(t, "[ERROR] failed: boom\n", buf.String())
}

func TestSection_Verbose(t *testing.T) {
	buf := captureLogs(t, true)

	Section("Sync")

	assert.Equal(t, "\n=== Sync ===\n", buf.String())
}

func TestNamed_IncludesComponentAndFields(t *testing.T) {
	buf := captureLogs(t, true)

	Named("connections").Debug("probing", zap.String("platform", "tiktok"))

	out := buf.String()
	assert.Contains(t, out, "[DEBUG] connections probing")
	assert.Contains(t, out, "tiktok")
}

func TestNamed_FollowsLevelChanges(t *testing.T) {
	buf := captureLogs(t, false)
	l := Named("credentials")

	l.Debug("dropped")
	SetVerbose(true)
	l.Debug("kept")

	assert.Equal(t, "[DEBUG] credentials kept\n", buf.String())
}

func TestConcurrentAccess(t *testing.T) {
	captureLogs(t, false)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			SetVerbose(n%2 == 0)
			Debug("concurrent %d", n)
			_ = IsVerbose()
			Named("worker").Info("tick")
		}(i)
	}
	wg.Wait()
}
