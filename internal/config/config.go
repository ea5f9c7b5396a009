package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/smazurov/screenrec/internal/logging"
)

// EnvPrefix is prepended to every `env` tag.
const EnvPrefix = "SCREENREC_"

var durationType = reflect.TypeOf(time.Duration(0))

// LoadConfig fills the struct opts points to. Precedence is command-line
// flags, then SCREENREC_ environment variables, then the TOML file named by
// the Config field. Fields whose flag was set on cmd are left alone; cmd
// may be nil.
func LoadConfig(opts any, cmd *cobra.Command) error {
	v := reflect.ValueOf(opts).Elem()
	pinned := changedFlags(cmd)

	var file map[string]any
	if f := v.FieldByName("Config"); f.IsValid() && f.Kind() == reflect.String && f.String() != "" {
		path := f.String()
		// A missing file is not an error; defaults and env still apply.
		if data, err := os.ReadFile(path); err == nil {
			if err := toml.Unmarshal(data, &file); err != nil {
				return fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	eachTagged(v, func(field reflect.Value, sf reflect.StructField) {
		if pinned[fieldNameToFlag(sf.Name)] {
			return
		}
		if key := sf.Tag.Get("toml"); key != "" {
			if value, ok := lookup(file, key); ok {
				setFromTOML(field, value)
			}
		}
		if key := sf.Tag.Get("env"); key != "" {
			if value := os.Getenv(EnvPrefix + key); value != "" {
				setFromString(field, value)
			}
		}
	})
	return nil
}

func changedFlags(cmd *cobra.Command) map[string]bool {
	changed := make(map[string]bool)
	if cmd == nil {
		return changed
	}
	mark := func(f *pflag.Flag) {
		if f.Changed {
			changed[f.Name] = true
		}
	}
	cmd.Flags().VisitAll(mark)
	cmd.PersistentFlags().VisitAll(mark)
	return changed
}

// eachTagged calls fn for every settable field carrying a toml or env tag.
func eachTagged(v reflect.Value, fn func(reflect.Value, reflect.StructField)) {
	t := v.Type()
	for i := range t.NumField() {
		sf := t.Field(i)
		if sf.Tag.Get("toml") == "" && sf.Tag.Get("env") == "" {
			continue
		}
		if field := v.Field(i); field.CanSet() {
			fn(field, sf)
		}
	}
}

// fieldNameToFlag converts a struct field name to a CLI flag name the way
// humacli does. An upper-case run stays one word until its last letter starts
// a lower-case word.
// Example: "LoggingLevel" -> "logging-level", "DefaultFPS" -> "default-fps".
func fieldNameToFlag(fieldName string) string {
	runes := []rune(fieldName)
	result := make([]rune, 0, len(runes)+4)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
				result = append(result, '-')
			}
		}
		result = append(result, unicode.ToLower(r))
	}
	return string(result)
}

// lookup resolves a dotted key such as "recorder.default_fps" in decoded TOML.
func lookup(data map[string]any, key string) (any, bool) {
	table := data
	for {
		head, rest, nested := strings.Cut(key, ".")
		if !nested {
			value, ok := table[head]
			return value, ok
		}
		next, ok := table[head].(map[string]any)
		if !ok {
			return nil, false
		}
		table, key = next, rest
	}
}

// setFromTOML assigns a decoded TOML value. Arrays fill string slices and
// scalars go through setFromString, so a mismatched value leaves the field
// unchanged.
func setFromTOML(field reflect.Value, value any) {
	if arr, ok := value.([]any); ok {
		if field.Kind() != reflect.Slice || field.Type().Elem().Kind() != reflect.String {
			return
		}
		items := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, isString := item.(string); isString {
				items = append(items, s)
			}
		}
		field.Set(reflect.ValueOf(items))
		return
	}
	if field.Kind() == reflect.Slice {
		return
	}
	setFromString(field, fmt.Sprint(value))
}

// setFromString parses value into the field's type. Slices take
// comma-separated items; durations use time.ParseDuration.
func setFromString(field reflect.Value, value string) {
	if field.Type() == durationType {
		if d, err := time.ParseDuration(value); err == nil {
			field.SetInt(int64(d))
		}
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		if b, err := strconv.ParseBool(value); err == nil {
			field.SetBool(b)
		}
	case reflect.Int, reflect.Int64:
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			field.SetInt(i)
		}
	case reflect.Float64:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			field.SetFloat(f)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	}
}

// LoadLoggingConfig loads logging configuration from a TOML config file.
// Module levels may sit in a [logging.modules] table or directly under
// [logging] next to level and format.
// Returns default config if file doesn't exist or can't be parsed.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	if configPath == "" {
		return cfg
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}

	var rawConfig struct {
		Logging map[string]any `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &rawConfig); err != nil {
		return cfg
	}

	for key, value := range rawConfig.Logging {
		switch v := value.(type) {
		case string:
			switch key {
			case "level":
				cfg.Level = v
			case "format":
				cfg.Format = v
			default:
				cfg.Modules[key] = v
			}
		case int64:
			if key == "buffer_size" {
				cfg.BufferSize = int(v)
			}
		case map[string]any:
			if key != "modules" {
				continue
			}
			for module, level := range v {
				if s, ok := level.(string); ok {
					cfg.Modules[module] = s
				}
			}
		}
	}

	return cfg
}
