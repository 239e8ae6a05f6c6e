package messagesinfra

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/Abraxas-365/courier/pkg/errx"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOMLSettingStore_FlattensTables(t *testing.T) {
	s, err := ParseTOMLSettings(`
[messages]
case_invariant_replacement = "true"

[messages.warmup]
enable_logging = true
`)
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, s.GetBool(ctx, messages.SettingWarmupLogging, false))
	assert.True(t, s.GetBool(ctx, messages.SettingCaseInvariantReplace, false))
	assert.True(t, s.GetBool(ctx, "messages.unknown", true))
	assert.False(t, s.GetBool(ctx, "messages.unknown", false))
}

func TestTOMLSettingStore_Reload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	require.NoError(t, os.WriteFile(path, []byte("\"messages.warmup.enable_logging\" = false\n"), 0o600))

	s, err := NewTOMLSettingStore(path)
	require.NoError(t, err)
	ctx := context.Background()
	assert.False(t, s.GetBool(ctx, messages.SettingWarmupLogging, true))

	require.NoError(t, os.WriteFile(path, []byte("[messages.warmup]\nenable_logging = true\n"), 0o600))
	require.NoError(t, s.Reload())
	assert.True(t, s.GetBool(ctx, messages.SettingWarmupLogging, false))
}

func TestTOMLSettingStore_Errors(t *testing.T) {
	_, err := NewTOMLSettingStore(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
	assert.True(t, errx.IsType(err, errx.TypeConfiguration))

	_, err = ParseTOMLSettings("not = [valid")
	require.Error(t, err)

	empty, err := NewTOMLSettingStore("")
	require.NoError(t, err)
	assert.True(t, empty.GetBool(context.Background(), messages.SettingWarmupLogging, true))
}
