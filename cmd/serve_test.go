package cmd

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("text", false)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))

	logger, err = newLogger("json", true)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))

	_, err = newLogger("logfmt", false)
	assert.Error(t, err)
}

func TestApplyEnvFallbacks(t *testing.T) {
	t.Setenv("SUPERSHARE_FOLDER", "folder-from-env")
	t.Setenv("SUPERSHARE_EMAIL", "env@corp.example")
	t.Setenv("SUPERSHARE_KEY_DIR", "/etc/supershare/keys")
	t.Setenv("SUPERSHARE_KEY_FINGERPRINT", "envfinger")
	t.Setenv("SUPERSHARE_SERVICE_ACCOUNT", "svc@project.iam.gserviceaccount.com")

	opts := serveOptions{keyDir: "privatekeys"}
	applyEnvFallbacks(&opts)

	assert.Equal(t, "folder-from-env", opts.folderID)
	assert.Equal(t, "env@corp.example", opts.account)
	assert.Equal(t, "/etc/supershare/keys", opts.keyDir)
	assert.Equal(t, "envfinger", opts.keyFingerprint)
	assert.Equal(t, "svc@project.iam.gserviceaccount.com", opts.serviceAccount)
}

func TestApplyEnvFallbacksFlagsWin(t *testing.T) {
	t.Setenv("SUPERSHARE_FOLDER", "folder-from-env")
	t.Setenv("SUPERSHARE_KEY_DIR", "/etc/supershare/keys")

	opts := serveOptions{
		folderID: "folder-from-flag",
		keyDir:   "/opt/keys",
	}
	applyEnvFallbacks(&opts)

	assert.Equal(t, "folder-from-flag", opts.folderID)
	assert.Equal(t, "/opt/keys", opts.keyDir)
}

func TestServeCommandFlagDefaults(t *testing.T) {
	cmd := newServeCmd()

	addr, err := cmd.Flags().GetString("addr")
	require.NoError(t, err)
	assert.Equal(t, ":8080", addr)

	mount, err := cmd.Flags().GetString("mount")
	require.NoError(t, err)
	assert.Equal(t, "/view/", mount)

	keyDir, err := cmd.Flags().GetString("key-dir")
	require.NoError(t, err)
	assert.Equal(t, "privatekeys", keyDir)

	metricsEnabled, err := cmd.Flags().GetBool("metrics-enabled")
	require.NoError(t, err)
	assert.True(t, metricsEnabled)
}
