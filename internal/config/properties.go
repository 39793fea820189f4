// Package config loads the deployment property bag and builds loggers for
// the binaries.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/dreamware/inboxdeploy/internal/deploy"
)

// EnvPrefix prefixes environment overrides of known properties, e.g.
// INBOX_ELASTICINBOX_TARBALL_URL for elasticinbox.tarball.url.
const EnvPrefix = "INBOX"

// knownKeys are bound to the environment so they can be set without a file.
var knownKeys = []string{
	deploy.KeyS3Endpoint,
	deploy.KeyS3Container,
	deploy.KeyS3Identity,
	deploy.KeyS3Credential,
	deploy.KeyReplicationFactor,
	deploy.KeyTarballURL,
	deploy.KeyClusterName,
	deploy.KeyInstanceTemplates,
}

// LoadProperties reads a Java-style .properties file (optional when path is
// empty), applies INBOX_* environment overrides for the known keys and then
// the explicit overrides. Only keys that are actually set appear in the
// result, so absence survives loading.
func LoadProperties(path string, overrides map[string]string) (deploy.Properties, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AllowEmptyEnv(true)
	for _, key := range knownKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("properties")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read properties file: %w", err)
		}
	}

	props := deploy.Properties{}
	for _, key := range v.AllKeys() {
		if v.IsSet(key) {
			props[key] = v.GetString(key)
		}
	}
	for key, value := range overrides {
		props[strings.ToLower(key)] = value
	}
	return props, nil
}

// ParseOverrides turns "key=value" pairs into a map. The value may be empty
// but the separator is required.
func ParseOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid property override %q, want key=value", pair)
		}
		out[strings.TrimSpace(key)] = value
	}
	return out, nil
}
