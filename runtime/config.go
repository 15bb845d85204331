package runtime

import (
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"os"
	"reflect"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Package-level validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
	registerCustomValidators()
}

// Config is the process configuration shared by the CLI commands.
type Config struct {
	Orchestrations string          `yaml:"orchestrations" env:"DURABLE_ORCHESTRATIONS" default:"orchestrations" validate:"required"`
	Server         ServerConfig    `yaml:"server"`
	Log            LogConfig       `yaml:"log"`
	Telemetry      TelemetryConfig `yaml:"telemetry"`

	// Properties are exposed to every orchestration as properties.<name>.
	Properties map[string]any `yaml:"properties"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"DURABLE_SERVER_ADDR" default:"localhost:8080" validate:"required,hostname_port"`

	// URL of a remote server used by `durable replay --server`.
	URL string `yaml:"url" env:"DURABLE_SERVER_URL" validate:"omitempty,url_format"`
}

type LogConfig struct {
	Level  string `yaml:"level" env:"DURABLE_LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"DURABLE_LOG_FORMAT" default:"text" validate:"oneof=text json"`
}

// TelemetryConfig controls OpenTelemetry export. Export is opt-in: nothing
// is exported while Endpoint is empty or Enabled is false.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" env:"DURABLE_OTEL_ENABLED" default:"true"`
	Endpoint    string `yaml:"endpoint" env:"DURABLE_OTEL_ENDPOINT" validate:"omitempty,hostname_port"`
	ServiceName string `yaml:"serviceName" env:"DURABLE_OTEL_SERVICE_NAME" default:"durable" validate:"required"`
	Insecure    bool   `yaml:"insecure" env:"DURABLE_OTEL_INSECURE"`
}

// Active reports whether telemetry should be exported.
func (c TelemetryConfig) Active() bool {
	return c.Enabled && c.Endpoint != ""
}

// SlogLevel maps the configured level name to a slog level.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadConfig reads the optional YAML file at path and applies defaults,
// environment overrides and validation. String values in the file may use
// ${VAR} or ${VAR:default}.
func LoadConfig(path string) (*Config, error) {
	raw := map[string]any{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("error unmarshalling config file %s: %w", path, err)
		}
		resolved, err := resolveEnvVars(raw)
		if err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		raw = resolved.(map[string]any)
	}

	cfg := &Config{}
	if err := InitializeConfig(cfg, raw); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitializeConfig prepares a config struct: defaults from `default` tags,
// then rawValues (matched by `yaml` tags), then environment variables named
// by `env` tags, then validation.
func InitializeConfig(config any, rawValues map[string]any) error {
	if err := ApplyDefaults(config); err != nil {
		slog.Error("Config: failed to apply defaults",
			"config_type", reflect.TypeOf(config).String(),
			"error", err)
		return fmt.Errorf("failed to apply defaults: %w", err)
	}

	if len(rawValues) > 0 {
		if err := decode(rawValues, config, "yaml"); err != nil {
			slog.Error("Config: failed to apply config values",
				"config_type", reflect.TypeOf(config).String(),
				"error", err)
			return fmt.Errorf("failed to apply config values: %w", err)
		}
	}

	if err := env.Parse(config); err != nil {
		return fmt.Errorf("failed to apply environment: %w", err)
	}

	configValue := reflect.ValueOf(config)
	if configValue.Kind() == reflect.Ptr {
		configValue = configValue.Elem()
	}

	if err := validateConfig(configValue.Interface()); err != nil {
		slog.Error("Config validation failed",
			"config_type", reflect.TypeOf(config).String(),
			"error", err)
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// registerCustomValidators registers framework-provided custom validation functions
func registerCustomValidators() {
	// hostname_port validates "host:port" format with numeric port
	validate.RegisterValidation("hostname_port", func(fl validator.FieldLevel) bool {
		addr := fl.Field().String()
		host, port, err := net.SplitHostPort(addr)
		if err != nil || host == "" || port == "" {
			return false
		}
		_, err = net.LookupPort("tcp", port)
		return err == nil
	})

	// url_format validates URL structure
	validate.RegisterValidation("url_format", func(fl validator.FieldLevel) bool {
		u, err := url.Parse(fl.Field().String())
		return err == nil && u.Scheme != "" && u.Host != ""
	})
}

func ApplyDefaults(config any) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := defaults.Set(config); err != nil {
		return fmt.Errorf("failed to apply default values: %w", err)
	}

	return nil
}

func validateConfig(config any) error {
	if config == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := validate.Struct(config); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			var errMessages []string
			for _, fieldErr := range validationErrors {
				errMessages = append(errMessages, fmt.Sprintf(
					"field '%s' failed validation: %s (rule: %s)",
					fieldErr.Namespace(),
					fieldErr.Error(),
					fieldErr.Tag(),
				))
			}
			return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errMessages, "\n  - "))
		}
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

func RegisterCustomValidator(tag string, fn validator.Func) error {
	if err := validate.RegisterValidation(tag, fn); err != nil {
		return fmt.Errorf("failed to register custom validator '%s': %w", tag, err)
	}
	return nil
}

// envVarPattern matches ${VAR} and ${VAR:default} syntax
var envVarPattern = regexp.MustCompile(`^\$\{([A-Z_][A-Z0-9_]*)(:[^}]*)?\}$`)

// resolveEnvVar resolves a ${VAR} or ${VAR:default} string. Other values
// are returned unchanged. A missing variable without default is an error.
func resolveEnvVar(value any) (any, error) {
	strValue, ok := value.(string)
	if !ok {
		return value, nil
	}

	matches := envVarPattern.FindStringSubmatch(strValue)
	if matches == nil {
		return value, nil
	}

	varName := matches[1]
	defaultPart := matches[2]

	if envValue, exists := os.LookupEnv(varName); exists {
		return envValue, nil
	}
	if defaultPart != "" {
		return strings.TrimPrefix(defaultPart, ":"), nil
	}

	return nil, fmt.Errorf("required environment variable not set: %s", varName)
}

// resolveEnvVars applies resolveEnvVar through nested maps and slices.
func resolveEnvVars(value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			resolved, err := resolveEnvVars(val)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			out[k] = resolved
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			resolved, err := resolveEnvVars(val)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = resolved
		}
		return out, nil
	default:
		return resolveEnvVar(value)
	}
}
