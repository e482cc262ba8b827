package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// envBindings maps config keys to variable names without the
// PROMETHEUS_PVE_SD_ prefix.
var envBindings = []struct {
	key  string
	name string
}{
	{key: "config_file", name: "CONFIG_FILE"},
	{key: "logging.level", name: "LOG_LEVEL"},
	{key: "logging.format", name: "LOG_FORMAT"},
	{key: "output_file", name: "OUTPUT_FILE"},
	{key: "output_file_mode", name: "OUTPUT_FILE_MODE"},
	{key: "loop_delay", name: "LOOP_DELAY"},
	{key: "service", name: "SERVICE"},
	{key: "exclude_state", name: "EXCLUDE_STATE"},
	{key: "exclude_vmid", name: "EXCLUDE_VMID"},
	{key: "exclude_tags", name: "EXCLUDE_TAGS"},
	{key: "include_vmid", name: "INCLUDE_VMID"},
	{key: "include_tags", name: "INCLUDE_TAGS"},
	{key: "pve.server", name: "PVE_SERVER"},
	{key: "pve.user", name: "PVE_USER"},
	{key: "pve.password", name: "PVE_PASSWORD"},
	{key: "pve.token_name", name: "PVE_TOKEN_NAME"},
	{key: "pve.token_value", name: "PVE_TOKEN_VALUE"},
	{key: "pve.auth_timeout", name: "PVE_AUTH_TIMEOUT"},
	{key: "pve.verify_ssl", name: "PVE_VERIFY_SSL"},
	{key: "pve.rate_limit", name: "PVE_RATE_LIMIT"},
	{key: "metrics.enabled", name: "METRICS_ENABLED"},
	{key: "metrics.address", name: "METRICS_ADDRESS"},
	{key: "metrics.port", name: "METRICS_PORT"},
	{key: "consul.enabled", name: "CONSUL_ENABLED"},
	{key: "consul.address", name: "CONSUL_ADDRESS"},
	{key: "consul.service", name: "CONSUL_SERVICE"},
	{key: "consul.auth_key", name: "CONSUL_AUTH_KEY"},
}

// newEnv returns a viper instance that only knows the environment bindings.
// It holds no defaults and no file, so unset variables leave the config as is.
func newEnv() *viper.Viper {
	v := viper.New()
	v.AllowEmptyEnv(true)

	for _, binding := range envBindings {
		// BindEnv only fails without a key
		_ = v.BindEnv(binding.key, EnvPrefix+binding.name) //nolint:errcheck
	}

	return v
}

// applyEnv decodes the set variables on top of c. Lists replace the current
// value instead of being merged into it.
func (c *Config) applyEnv(env *viper.Viper) error {
	err := env.Unmarshal(c,
		viper.DecodeHook(envDecodeHook),
		func(dc *mapstructure.DecoderConfig) {
			dc.TagName = "yaml"
			dc.ZeroFields = true
		},
	)
	if err != nil {
		return &ConfigError{Message: "unable to read environment variables", Err: err}
	}

	return nil
}

var stringSliceType = reflect.TypeOf([]string{})

// envDecodeHook converts variable values using the same rules as the
// command line tool: ParseBool for flags, ParseList for lists.
func envDecodeHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String {
		return data, nil
	}

	value, _ := data.(string)

	switch {
	case to.Kind() == reflect.Bool:
		return ParseBool(value)
	case to == stringSliceType:
		return ParseList(value), nil
	case to.Kind() == reflect.Int, to.Kind() == reflect.Float64:
		return strings.TrimSpace(value), nil
	}

	return data, nil
}

// ParseBool accepts y, yes, t, true, on, 1 and n, no, f, false, off, 0 in
// any case.
func ParseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "y", "yes", "t", "true", "on", "1":
		return true, nil
	case "n", "no", "f", "false", "off", "0":
		return false, nil
	}

	return false, fmt.Errorf("invalid truth value %q", value)
}

// ParseList splits a comma separated value, dropping empty items.
func ParseList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
