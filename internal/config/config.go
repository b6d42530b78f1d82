// Package config loads and validates cebg configuration.
//
// Settings come from .cebg/config.yaml (searched upward from the working
// directory), overridden by CEBG_* environment variables. Every known key is
// declared in Keys with its default, env var, and validator.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ceinfra/cebg/internal/env"
)

// Key describes one configuration key.
type Key struct {
	Name        string // full key name, e.g. "discovery.bucket"
	Description string
	EnvVar      string // corresponding env var (empty = derived from name)
	Default     string
	Validate    func(string) error
}

// Keys defines all valid configuration keys.
var Keys = []Key{
	{
		Name:        "aws.region",
		Description: "AWS region of the discovery artifact bucket",
		EnvVar:      "CEBG_AWS_REGION",
		Default:     "us-east-1",
	},
	{
		Name:        "aws.endpoint",
		Description: "S3 endpoint override (LocalStack/MinIO); empty for AWS",
		EnvVar:      "CEBG_AWS_ENDPOINT",
	},
	{
		Name:        "aws.access_key_id",
		Description: "Static AWS access key; empty uses the default credential chain",
		EnvVar:      "CEBG_AWS_ACCESS_KEY_ID",
	},
	{
		Name:        "aws.secret_access_key",
		Description: "Static AWS secret key",
		EnvVar:      "CEBG_AWS_SECRET_ACCESS_KEY",
	},
	{
		Name:        "discovery.bucket",
		Description: "S3 bucket holding compiler discovery artifacts",
		EnvVar:      "CEBG_DISCOVERY_BUCKET",
		Default:     "compiler-artifacts",
	},
	{
		Name:        "discovery.prefix",
		Description: "Key prefix for discovery artifacts",
		EnvVar:      "CEBG_DISCOVERY_PREFIX",
		Default:     "dist/discovery",
	},
	{
		Name:        "deploy.environment",
		Description: "Environment deployments target (prod, staging, beta)",
		EnvVar:      "CEBG_DEPLOY_ENVIRONMENT",
		Default:     "prod",
		Validate:    validateEnvironment,
	},
	{
		Name:        "deploy.target_color",
		Description: "Color generation receiving the next deployment (blue or green)",
		EnvVar:      "CEBG_DEPLOY_TARGET_COLOR",
		Default:     "blue",
		Validate:    validateColor,
	},
}

var keyMap map[string]*Key

func init() {
	keyMap = make(map[string]*Key, len(Keys))
	for i := range Keys {
		keyMap[Keys[i].Name] = &Keys[i]
	}
}

// v is the process-wide viper instance, set up by Initialize.
var v *viper.Viper

const configDirName = ".cebg"

// Initialize sets up viper: defaults from Keys, config.yaml if present,
// CEBG_* env overrides. Safe to call when no config file exists.
func Initialize() error {
	nv := viper.New()
	for _, k := range Keys {
		if k.Default != "" {
			nv.SetDefault(k.Name, k.Default)
		}
		if k.EnvVar != "" {
			if err := nv.BindEnv(k.Name, k.EnvVar); err != nil {
				return fmt.Errorf("binding %s: %w", k.EnvVar, err)
			}
		}
	}

	if path := findConfigFile(); path != "" {
		nv.SetConfigFile(path)
		nv.SetConfigType("yaml")
		if err := nv.ReadInConfig(); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	}

	v = nv
	return nil
}

// GetString returns the value for key, or its default when unset.
func GetString(key string) string {
	if v == nil {
		return ""
	}
	return v.GetString(key)
}

// Set validates and stores a value, writing it back to config.yaml.
// A config file is created next to the current directory when none exists.
func Set(key, value string) error {
	if err := ValidateKey(key, value); err != nil {
		return err
	}
	if v == nil {
		if err := Initialize(); err != nil {
			return err
		}
	}
	v.Set(key, value)

	path := findConfigFile()
	if path == "" {
		path = filepath.Join(configDirName, "config.yaml")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", configDirName, err)
		}
	}
	return writeYaml(path, settingsFor(v))
}

// LookupKey returns the Key definition, or nil for unknown keys.
func LookupKey(name string) *Key {
	return keyMap[name]
}

// ValidateKey checks that key is known and value passes its validator.
func ValidateKey(key, value string) error {
	k := keyMap[key]
	if k == nil {
		known := make([]string, 0, len(Keys))
		for _, kk := range Keys {
			known = append(known, kk.Name)
		}
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(known, ", "))
	}
	if k.Validate != nil {
		if err := k.Validate(value); err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
	}
	return nil
}

// KeyEnvMap returns the key -> env var mapping for keys with env overrides.
func KeyEnvMap() map[string]string {
	m := make(map[string]string, len(Keys))
	for _, k := range Keys {
		if k.EnvVar != "" {
			m[k.Name] = k.EnvVar
		}
	}
	return m
}

// findConfigFile walks up from the working directory looking for
// .cebg/config.yaml.
func findConfigFile() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for dir := cwd; ; dir = filepath.Dir(dir) {
		path := filepath.Join(dir, configDirName, "config.yaml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
		if dir == filepath.Dir(dir) {
			return ""
		}
	}
}

// settingsFor flattens viper's settings to only known keys, so stray env
// values and defaults-by-side-effect don't get persisted.
func settingsFor(src *viper.Viper) map[string]any {
	out := map[string]any{}
	for _, k := range Keys {
		if src.IsSet(k.Name) {
			setNested(out, strings.Split(k.Name, "."), src.GetString(k.Name))
		}
	}
	return out
}

func setNested(m map[string]any, path []string, value string) {
	if len(path) == 1 {
		m[path[0]] = value
		return
	}
	child, ok := m[path[0]].(map[string]any)
	if !ok {
		child = map[string]any{}
		m[path[0]] = child
	}
	setNested(child, path[1:], value)
}

func writeYaml(path string, settings map[string]any) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func validateEnvironment(value string) error {
	_, err := env.Parse(value)
	return err
}

func validateColor(value string) error {
	switch strings.ToLower(value) {
	case "blue", "green":
		return nil
	default:
		return fmt.Errorf("must be blue or green, got %q", value)
	}
}
