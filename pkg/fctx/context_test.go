package fctx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sswlabs/foundation/pkg/ferrors"
	"github.com/sswlabs/foundation/pkg/level"
)

func TestLoadDefaultsWithNoEnvOrOverrides(t *testing.T) {
	ctx, err := Load("FDN_TEST_DEFAULTS", Overrides{})
	require.NoError(t, err)
	assert.Equal(t, level.Info, ctx.DefaultLevel)
	assert.Equal(t, "key_value", ctx.ConsoleFormatter)
	assert.False(t, ctx.OmitTimestamp)
	assert.Empty(t, ctx.ModuleLevels)
	assert.False(t, ctx.TelemetryDisabled)
}

func TestLoadDerivesFromEnvironment(t *testing.T) {
	t.Setenv("FDN_TEST_ENV_SERVICE_NAME", "checkout")
	t.Setenv("FDN_TEST_ENV_LOG_LEVEL", "DEBUG")
	t.Setenv("FDN_TEST_ENV_LOG_MODULE_LEVELS", "db:warning, api:trace")
	t.Setenv("FDN_TEST_ENV_LOG_CONSOLE_FORMATTER", "json")
	t.Setenv("FDN_TEST_ENV_LOG_OMIT_TIMESTAMP", "YES")
	t.Setenv("FDN_TEST_ENV_ENABLED_EVENT_SETS", "auth, ,payments")
	t.Setenv("FDN_TEST_ENV_TELEMETRY_DISABLED", "0")

	ctx, err := Load("FDN_TEST_ENV", Overrides{})
	require.NoError(t, err)

	assert.Equal(t, "checkout", ctx.ServiceName)
	assert.Equal(t, level.Debug, ctx.DefaultLevel)
	assert.Equal(t, level.Warning, ctx.ModuleLevels["db"])
	assert.Equal(t, level.Trace, ctx.ModuleLevels["api"])
	assert.Equal(t, "json", ctx.ConsoleFormatter)
	assert.True(t, ctx.OmitTimestamp)
	assert.Equal(t, []string{"auth", "payments"}, ctx.EnabledEventSets)
	assert.False(t, ctx.TelemetryDisabled)
}

func TestProgrammaticOverrideBeatsEnvironment(t *testing.T) {
	t.Setenv("FDN_TEST_OVERRIDE_LOG_CONSOLE_FORMATTER", "json")

	formatter := "key_value"
	ctx, err := Load("FDN_TEST_OVERRIDE", Overrides{ConsoleFormatter: &formatter})
	require.NoError(t, err)
	assert.Equal(t, "key_value", ctx.ConsoleFormatter)
}

func TestInvalidBooleanIsRejected(t *testing.T) {
	t.Setenv("FDN_TEST_BADBOOL_LOG_OMIT_TIMESTAMP", "maybe")
	_, err := Load("FDN_TEST_BADBOOL", Overrides{})
	require.Error(t, err)
	assert.Equal(t, ferrors.KindInvalidConfiguration, ferrors.Of(err))
}

func TestInvalidLevelIsRejected(t *testing.T) {
	t.Setenv("FDN_TEST_BADLEVEL_LOG_LEVEL", "verbose")
	_, err := Load("FDN_TEST_BADLEVEL", Overrides{})
	require.Error(t, err)
	assert.Equal(t, ferrors.KindInvalidConfiguration, ferrors.Of(err))
}

func TestInvalidConsoleFormatterIsRejected(t *testing.T) {
	t.Setenv("FDN_TEST_BADFMT_LOG_CONSOLE_FORMATTER", "xml")
	_, err := Load("FDN_TEST_BADFMT", Overrides{})
	require.Error(t, err)
	assert.Equal(t, ferrors.KindInvalidConfiguration, ferrors.Of(err))
}

func TestSecretIndirectionReadsReferencedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "service_name.secret")
	require.NoError(t, os.WriteFile(path, []byte("from-file\n"), 0o600))

	t.Setenv("FDN_TEST_SECRET_SERVICE_NAME", "file://"+path)
	ctx, err := Load("FDN_TEST_SECRET", Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "from-file", ctx.ServiceName)
}

func TestMalformedModuleLevelPairIsRejected(t *testing.T) {
	t.Setenv("FDN_TEST_BADPAIR_LOG_MODULE_LEVELS", "db-without-colon")
	_, err := Load("FDN_TEST_BADPAIR", Overrides{})
	require.Error(t, err)
}

func TestConfigFileValuesAreOverriddenByEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("service_name: from-file\nenvironment: staging\n"), 0o600))

	t.Setenv("FDN_TEST_FILE_CONFIG_FILE", path)
	t.Setenv("FDN_TEST_FILE_SERVICE_NAME", "from-env")

	ctx, err := Load("FDN_TEST_FILE", Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "from-env", ctx.ServiceName, "environment variable must win over a config file value")
}

func TestMissingConfigFileIsNotAnError(t *testing.T) {
	t.Setenv("FDN_TEST_NOFILE_CONFIG_FILE", filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	_, err := Load("FDN_TEST_NOFILE", Overrides{})
	require.NoError(t, err)
}

func TestEachLoadGetsAFreshInstanceID(t *testing.T) {
	ctx1, err := Load("FDN_TEST_INSTANCEID_A", Overrides{})
	require.NoError(t, err)
	ctx2, err := Load("FDN_TEST_INSTANCEID_B", Overrides{})
	require.NoError(t, err)
	assert.NotEmpty(t, ctx1.InstanceID)
	assert.NotEqual(t, ctx1.InstanceID, ctx2.InstanceID)
}
