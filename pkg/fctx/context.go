// Package fctx implements the Foundation Context (C10): an immutable
// configuration snapshot derived from layered defaults, environment
// variables, and programmatic overrides (spec.md §4.10). Grounded on
// ipiton-alert-history-service's internal/config.LoadConfig layering
// (SetDefault → AutomaticEnv/BindEnv → Unmarshal → Validate), generalized
// from its per-domain mapstructure config tree to the spec's fixed
// environment-derivation rules and secret indirection.
package fctx

import (
	"errors"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/spf13/viper"

	"github.com/sswlabs/foundation/pkg/ferrors"
	"github.com/sswlabs/foundation/pkg/level"
)

// Context is the immutable snapshot described in spec.md §4.10.
type Context struct {
	// InstanceID identifies this particular Context snapshot for
	// diagnostics/correlation (e.g. the foundation.diag command, bootstrap
	// log lines); it has no bearing on derivation or validation and is
	// never read from the environment.
	InstanceID        string
	ServiceName       string
	Environment       string
	DefaultLevel      level.Level
	ModuleLevels      map[string]level.Level
	ConsoleFormatter  string `validate:"oneof=key_value json"`
	OmitTimestamp     bool
	EnabledEventSets  []string
	EmojiEnabled      bool
	SanitizePatterns  []string
	LogFilePath       string
	TelemetryDisabled bool
	// EventSetFile optionally points at a YAML file of declarative event
	// sets (pkg/eventset.LoadCatalogFile), loaded by the Hub alongside the
	// registry-discovered ones.
	EventSetFile string
}

// Overrides carries programmatic values that take precedence over both
// environment variables and defaults (spec.md §4.10: "Programmatic
// overrides take precedence over environment variables; environment
// overrides defaults"). A nil field means "no override"; for map/slice
// fields, a nil value means "no override" and a non-nil (possibly empty)
// value replaces the derived value entirely.
type Overrides struct {
	ServiceName       *string
	Environment       *string
	DefaultLevel      *level.Level
	ModuleLevels      map[string]level.Level
	ConsoleFormatter  *string
	OmitTimestamp     *bool
	EnabledEventSets  []string
	EmojiEnabled      *bool
	SanitizePatterns  []string
	LogFilePath       *string
	TelemetryDisabled *bool
	EventSetFile      *string
}

var validate = validator.New()

// Load derives a Context from defaults, then environment variables under
// prefix, then overrides (spec.md §4.10 precedence order, reversed here:
// each layer is computed outside-in so overrides apply last).
func Load(prefix string, overrides Overrides) (*Context, error) {
	v := viper.New()
	v.SetDefault("service_name", "")
	v.SetDefault("environment", "development")
	v.SetDefault("default_level", "info")
	v.SetDefault("module_levels", "")
	v.SetDefault("console_formatter", "key_value")
	v.SetDefault("omit_timestamp", false)
	v.SetDefault("enabled_event_sets", "")
	v.SetDefault("emoji_enabled", false)
	v.SetDefault("sanitize_patterns", "password,token,secret,authorization")
	v.SetDefault("log_file", "")
	v.SetDefault("telemetry_disabled", false)
	v.SetDefault("eventset_file", "")

	bind(v, "service_name", prefix+"_SERVICE_NAME")
	bind(v, "default_level", prefix+"_LOG_LEVEL")
	bind(v, "module_levels", prefix+"_LOG_MODULE_LEVELS")
	bind(v, "console_formatter", prefix+"_LOG_CONSOLE_FORMATTER")
	bind(v, "omit_timestamp", prefix+"_LOG_OMIT_TIMESTAMP")
	bind(v, "log_file", prefix+"_LOG_FILE")
	bind(v, "enabled_event_sets", prefix+"_ENABLED_EVENT_SETS")
	bind(v, "telemetry_disabled", prefix+"_TELEMETRY_DISABLED")
	bind(v, "eventset_file", prefix+"_EVENTSET_FILE")

	if configPath := os.Getenv(prefix + "_CONFIG_FILE"); configPath != "" {
		if err := mergeYAMLFile(v, configPath); err != nil {
			return nil, ferrors.InvalidConfiguration("fctx", "load", "failed to read config file").Wrap(err)
		}
	}

	serviceName, err := resolveSecret(v.GetString("service_name"))
	if err != nil {
		return nil, ferrors.InvalidConfiguration("fctx", "load", "service_name secret indirection failed").Wrap(err)
	}

	defaultLevelRaw, err := resolveSecret(v.GetString("default_level"))
	if err != nil {
		return nil, ferrors.InvalidConfiguration("fctx", "load", "default_level secret indirection failed").Wrap(err)
	}
	defaultLevel, ok := level.Parse(defaultLevelRaw)
	if !ok {
		return nil, ferrors.InvalidConfiguration("fctx", "load", "invalid log level: "+defaultLevelRaw)
	}

	moduleLevelsRaw, err := resolveSecret(v.GetString("module_levels"))
	if err != nil {
		return nil, ferrors.InvalidConfiguration("fctx", "load", "module_levels secret indirection failed").Wrap(err)
	}
	moduleLevels, err := parseModuleLevels(moduleLevelsRaw)
	if err != nil {
		return nil, err
	}

	formatter, err := resolveSecret(v.GetString("console_formatter"))
	if err != nil {
		return nil, ferrors.InvalidConfiguration("fctx", "load", "console_formatter secret indirection failed").Wrap(err)
	}

	omitTimestampRaw, err := resolveSecret(v.GetString("omit_timestamp"))
	if err != nil {
		return nil, ferrors.InvalidConfiguration("fctx", "load", "omit_timestamp secret indirection failed").Wrap(err)
	}
	omitTimestamp, err := parseBool(omitTimestampRaw)
	if err != nil {
		return nil, err
	}

	eventSetsRaw, err := resolveSecret(v.GetString("enabled_event_sets"))
	if err != nil {
		return nil, ferrors.InvalidConfiguration("fctx", "load", "enabled_event_sets secret indirection failed").Wrap(err)
	}

	logFile, err := resolveSecret(v.GetString("log_file"))
	if err != nil {
		return nil, ferrors.InvalidConfiguration("fctx", "load", "log_file secret indirection failed").Wrap(err)
	}

	telemetryDisabledRaw, err := resolveSecret(v.GetString("telemetry_disabled"))
	if err != nil {
		return nil, ferrors.InvalidConfiguration("fctx", "load", "telemetry_disabled secret indirection failed").Wrap(err)
	}
	telemetryDisabled, err := parseBool(telemetryDisabledRaw)
	if err != nil {
		return nil, err
	}

	eventSetFile, err := resolveSecret(v.GetString("eventset_file"))
	if err != nil {
		return nil, ferrors.InvalidConfiguration("fctx", "load", "eventset_file secret indirection failed").Wrap(err)
	}

	ctx := &Context{
		InstanceID:        uuid.NewString(),
		ServiceName:       serviceName,
		Environment:       v.GetString("environment"),
		DefaultLevel:      defaultLevel,
		ModuleLevels:      moduleLevels,
		ConsoleFormatter:  formatter,
		OmitTimestamp:     omitTimestamp,
		EnabledEventSets:  parseList(eventSetsRaw),
		EmojiEnabled:      v.GetBool("emoji_enabled"),
		SanitizePatterns:  parseList(v.GetString("sanitize_patterns")),
		LogFilePath:       logFile,
		TelemetryDisabled: telemetryDisabled,
		EventSetFile:      eventSetFile,
	}
	applyOverrides(ctx, overrides)

	if err := validate.Struct(ctx); err != nil {
		return nil, ferrors.InvalidConfiguration("fctx", "load", "context validation failed").Wrap(err)
	}
	return ctx, nil
}

func bind(v *viper.Viper, key, env string) {
	_ = v.BindEnv(key, env)
}

// mergeYAMLFile layers an optional on-disk config file between defaults and
// environment variables: a key present in the file overrides the default,
// but since every env key above is bound individually, viper still prefers
// the environment variable over the merged file value when both are set —
// matching the teacher's own ipiton-alert-history-service `LoadConfig`,
// where `AutomaticEnv` is likewise read after `ReadInConfig`. A missing file
// is not an error; a malformed one is.
func mergeYAMLFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return nil
}

func applyOverrides(ctx *Context, o Overrides) {
	if o.ServiceName != nil {
		ctx.ServiceName = *o.ServiceName
	}
	if o.Environment != nil {
		ctx.Environment = *o.Environment
	}
	if o.DefaultLevel != nil {
		ctx.DefaultLevel = *o.DefaultLevel
	}
	if o.ModuleLevels != nil {
		ctx.ModuleLevels = o.ModuleLevels
	}
	if o.ConsoleFormatter != nil {
		ctx.ConsoleFormatter = *o.ConsoleFormatter
	}
	if o.OmitTimestamp != nil {
		ctx.OmitTimestamp = *o.OmitTimestamp
	}
	if o.EnabledEventSets != nil {
		ctx.EnabledEventSets = o.EnabledEventSets
	}
	if o.EmojiEnabled != nil {
		ctx.EmojiEnabled = *o.EmojiEnabled
	}
	if o.SanitizePatterns != nil {
		ctx.SanitizePatterns = o.SanitizePatterns
	}
	if o.LogFilePath != nil {
		ctx.LogFilePath = *o.LogFilePath
	}
	if o.TelemetryDisabled != nil {
		ctx.TelemetryDisabled = *o.TelemetryDisabled
	}
	if o.EventSetFile != nil {
		ctx.EventSetFile = *o.EventSetFile
	}
}

// resolveSecret implements spec.md §6's secret indirection: "any variable
// whose value begins with file:// MUST be read from the referenced file
// (trimmed of trailing newline)".
func resolveSecret(v string) (string, error) {
	const filePrefix = "file://"
	if !strings.HasPrefix(v, filePrefix) {
		return v, nil
	}
	path := strings.TrimPrefix(v, filePrefix)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// parseBool implements spec.md §4.10's explicit boolean coercion rule.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, ferrors.InvalidConfiguration("fctx", "parseBool", "invalid boolean value: "+s)
	}
}

// parseList implements spec.md §4.10's comma-separated list rule: empty
// elements are trimmed away entirely.
func parseList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseModuleLevels implements spec.md §4.10's "comma-separated name:LEVEL
// pairs" module-level mapping rule.
func parseModuleLevels(s string) (map[string]level.Level, error) {
	out := make(map[string]level.Level)
	for _, pair := range parseList(s) {
		idx := strings.LastIndex(pair, ":")
		if idx <= 0 || idx == len(pair)-1 {
			return nil, ferrors.InvalidConfiguration("fctx", "parseModuleLevels", "malformed module-level pair: "+pair)
		}
		name, levelName := pair[:idx], pair[idx+1:]
		lvl, ok := level.Parse(levelName)
		if !ok {
			return nil, ferrors.InvalidConfiguration("fctx", "parseModuleLevels", "invalid level in pair: "+pair)
		}
		out[name] = lvl
	}
	return out, nil
}
