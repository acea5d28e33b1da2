package common

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestWriteCrashFile(t *testing.T) {
	previous := CrashLogDir
	t.Cleanup(func() { CrashLogDir = previous })

	InstallCrashHandler(t.TempDir())

	path := WriteCrashFile("boom", GetStackTrace())
	require.NotEmpty(t, path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	report := string(data)
	assert.Contains(t, report, "PLACEFINDER CRASH REPORT")
	assert.Contains(t, report, "boom")
	assert.True(t, strings.Contains(report, "TestWriteCrashFile"))
}

func TestSafeGo_RecoversPanic(t *testing.T) {
	done := make(chan struct{})

	SafeGo(arbor.NewLogger(), "test", func() {
		defer close(done)
		panic("subscriber failure")
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("goroutine did not run")
	}

	ran := make(chan struct{})
	SafeGo(nil, "after-panic", func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("second goroutine did not run")
	}
}
