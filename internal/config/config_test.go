package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/inboxdeploy/internal/deploy"
)

const sampleProperties = `whirr.cluster-name=inbox
whirr.instance-templates=1 elasticinbox+cassandra,2 cassandra
elasticinbox.aws.s3.container=mail-blobs
elasticinbox.aws.s3.identity=AKIAEXAMPLE
elasticinbox.cassandra.replication_factor=3
`

func writeProperties(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "elasticinbox.properties")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadProperties(t *testing.T) {
	props, err := LoadProperties(writeProperties(t, sampleProperties), nil)
	require.NoError(t, err)

	assert.Equal(t, deploy.Properties{
		deploy.KeyClusterName:       "inbox",
		deploy.KeyInstanceTemplates: "1 elasticinbox+cassandra,2 cassandra",
		deploy.KeyS3Container:       "mail-blobs",
		deploy.KeyS3Identity:        "AKIAEXAMPLE",
		deploy.KeyReplicationFactor: "3",
	}, props)

	_, ok := props.Lookup(deploy.KeyS3Endpoint)
	assert.False(t, ok, "absent keys must stay absent")
}

func TestLoadPropertiesEnvOverride(t *testing.T) {
	t.Setenv("INBOX_ELASTICINBOX_AWS_S3_ENDPOINT", "https://s3.example.com")
	t.Setenv("INBOX_ELASTICINBOX_AWS_S3_CONTAINER", "from-env")

	props, err := LoadProperties(writeProperties(t, sampleProperties), nil)
	require.NoError(t, err)

	assert.Equal(t, "https://s3.example.com", props.Get(deploy.KeyS3Endpoint))
	assert.Equal(t, "from-env", props.Get(deploy.KeyS3Container))
}

// TestLoadPropertiesEmptyEnv checks that an empty variable counts as set,
// the same as an empty value in the file.
func TestLoadPropertiesEmptyEnv(t *testing.T) {
	t.Setenv("INBOX_ELASTICINBOX_AWS_S3_IDENTITY", "")

	props, err := LoadProperties("", nil)
	require.NoError(t, err)

	value, ok := props.Lookup(deploy.KeyS3Identity)
	assert.True(t, ok)
	assert.Empty(t, value)

	_, ok = props.Lookup(deploy.KeyS3Credential)
	assert.False(t, ok)
}

func TestLoadPropertiesWithoutFile(t *testing.T) {
	props, err := LoadProperties("", map[string]string{"Elasticinbox.Tarball.URL": "http://x/y.tgz"})
	require.NoError(t, err)
	assert.Equal(t, deploy.Properties{deploy.KeyTarballURL: "http://x/y.tgz"}, props)
}

func TestLoadPropertiesOverridesWin(t *testing.T) {
	props, err := LoadProperties(writeProperties(t, sampleProperties), map[string]string{
		deploy.KeyReplicationFactor: "5",
	})
	require.NoError(t, err)
	assert.Equal(t, "5", props.Get(deploy.KeyReplicationFactor))
}

func TestLoadPropertiesMissingFile(t *testing.T) {
	_, err := LoadProperties(filepath.Join(t.TempDir(), "missing.properties"), nil)
	assert.Error(t, err)
}

func TestParseOverrides(t *testing.T) {
	got, err := ParseOverrides([]string{"a.b=1", "empty=", "eq=x=y"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a.b": "1", "empty": "", "eq": "x=y"}, got)

	_, err = ParseOverrides([]string{"novalue"})
	assert.Error(t, err)
	_, err = ParseOverrides([]string{"=v"})
	assert.Error(t, err)
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]zerolog.Level{
		"error":   zerolog.ErrorLevel,
		"WARN":    zerolog.WarnLevel,
		" info ":  zerolog.InfoLevel,
		"debug":   zerolog.DebugLevel,
		"verbose": zerolog.WarnLevel,
		"":        zerolog.WarnLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, LevelFromString(in), in)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", false)

	logger.Debug().Msg("hidden")
	logger.Info().Str("role", "elasticinbox").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"role":"elasticinbox"`)
	assert.Contains(t, out, `"message":"shown"`)
}
