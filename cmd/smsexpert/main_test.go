package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunVersion(t *testing.T) {
	require.NoError(t, run(context.Background(), []string{"version"}))
}

func TestRunUnknownCommand(t *testing.T) {
	err := run(context.Background(), []string{"frobnicate"})
	assert.ErrorContains(t, err, `unknown command "frobnicate"`)
}

func TestRunStatusWithoutBaseURL(t *testing.T) {
	t.Setenv("SMSEXPERT_API_BASE_URL", "")
	cfg := filepath.Join(t.TempDir(), "config.yaml")

	err := run(context.Background(), []string{"--config", cfg, "status"})
	assert.ErrorContains(t, err, "no API base URL configured")
}

func TestRunPushRequiresToken(t *testing.T) {
	err := run(context.Background(), []string{"push", "register"})
	assert.ErrorContains(t, err, "--fcm-token is required")
}
