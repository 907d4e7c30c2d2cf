package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServeCmd_Use(t *testing.T) {
	assert.Equal(t, "serve", serveCmd.Use)
}

func TestServeCmd_Short(t *testing.T) {
	assert.Equal(t, "Run the inbox watcher and digest worker", serveCmd.Short)
}

func TestServeCmd_WorkerNotConfigured(t *testing.T) {
	oldWorker := digestWorker
	digestWorker = nil
	defer func() {
		digestWorker = oldWorker
	}()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"serve"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "digest worker not configured")
}

func TestServeCmd_RejectsArgs(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"serve", "extra"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
}
