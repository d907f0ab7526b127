package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envFiles lists the dotenv files to read: ENV_FILE alone when set, else
// .env.local then .env. Variables already in the environment win.
func envFiles() []string {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		return []string{envFile}
	}
	return []string{".env.local", ".env"}
}

func loadEnvFiles() error {
	for _, name := range envFiles() {
		if err := godotenv.Load(name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then environment overrides, then validation.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, fmt.Errorf("load environment files: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns CONFIG_PATH when set, else defaultPath
func Path(defaultPath string) string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return defaultPath
}

// envBinding ties a field carrying an `env` tag to its variable
type envBinding struct {
	name  string
	field reflect.Value
}

// envBindings walks the config sections depth first
func envBindings(v reflect.Value) []envBinding {
	var out []envBinding
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct && field.Type() != durationType {
			out = append(out, envBindings(field)...)
			continue
		}
		if name := t.Field(i).Tag.Get("env"); name != "" {
			out = append(out, envBinding{name: name, field: field})
		}
	}
	return out
}

// applyEnvOverrides sets every tagged field whose variable is non-empty.
// Malformed values are reported instead of being ignored.
func applyEnvOverrides(cfg *Config) error {
	var errs []error
	for _, b := range envBindings(reflect.ValueOf(cfg).Elem()) {
		raw := strings.TrimSpace(os.Getenv(b.name))
		if raw == "" {
			continue
		}
		if err := setEnvValue(b.field, raw); err != nil {
			errs = append(errs, fmt.Errorf("%s=%q: %w", b.name, raw, err))
		}
	}
	return errors.Join(errs...)
}

var durationType = reflect.TypeOf(time.Duration(0))

func setEnvValue(field reflect.Value, raw string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
	case field.Kind() == reflect.String:
		field.SetString(raw)
	case field.Kind() == reflect.Int:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(n))
	case field.Kind() == reflect.Float64:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case field.Kind() == reflect.Bool:
		b, err := parseBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		field.Set(reflect.ValueOf(splitList(raw)))
	default:
		return fmt.Errorf("unsupported type %s", field.Type())
	}
	return nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean")
}

// splitList reads a comma separated list, dropping empty items
func splitList(raw string) []string {
	out := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
