package deploy

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

var wantDefaults = []string{
	"mailbox_quota_bytes: 1073741824",
	"mailbox_quota_count: 50000",
	"enable_performance_counters: false",
	"performance_counters_interval: 180",
	"lmtp_port: 2400",
	"lmtp_max_connections: 50",
	"metadata_storage_driver: cassandra",
	"store_html_message: true",
	"store_plain_message: false",
	"cassandra_autodiscovery: true",
	"cassandra_cluster_name: 'Test Cluster'",
	"cassandra_keyspace: 'ElasticInbox'",
}

// TestBuildServiceConfigEmpty covers the empty topology, empty bag case: the
// defaults, an empty host list and a profile header with no settings.
func TestBuildServiceConfigEmpty(t *testing.T) {
	got := DefaultSettings().BuildServiceConfig(nil, Properties{})

	want := append(append([]string{}, wantDefaults...),
		"cassandra_hosts:",
		"",
		"blobstore_write_profile: aws-demo",
		"blobstore_profiles:",
		"  aws-demo:",
		"    provider: aws-s3",
	)
	assert.Equal(t, ServiceConfigPath, got.Path)
	assert.Equal(t, want, got.Lines)
}

func TestBuildServiceConfigFull(t *testing.T) {
	props := Properties{
		KeyS3Endpoint:   "https://s3.eu-west-1.amazonaws.com",
		KeyS3Container:  "mail-blobs",
		KeyS3Identity:   "AKIAEXAMPLE",
		KeyS3Credential: "secret",
		"unrelated.key":  "ignored",
	}
	hosts := []string{"10.0.0.1", "10.0.0.2", "10.0.0.1"}

	got := DefaultSettings().BuildServiceConfig(hosts, props)

	want := append(append([]string{}, wantDefaults...),
		"cassandra_hosts:",
		"  - 10.0.0.1:9160",
		"  - 10.0.0.2:9160",
		"  - 10.0.0.1:9160",
		"",
		"blobstore_write_profile: aws-demo",
		"blobstore_profiles:",
		"  aws-demo:",
		"    provider: aws-s3",
		"    endpoint: https://s3.eu-west-1.amazonaws.com",
		"    container: mail-blobs",
		"    identity: AKIAEXAMPLE",
		"    credential: secret",
	)
	assert.Equal(t, want, got.Lines)
}

// TestBuildServiceConfigSparse checks that every object-store line is present
// exactly when its key is.
func TestBuildServiceConfigSparse(t *testing.T) {
	options := map[string]string{
		KeyS3Endpoint:   "    endpoint: ",
		KeyS3Container:  "    container: ",
		KeyS3Identity:   "    identity: ",
		KeyS3Credential: "    credential: ",
	}
	keys := []string{KeyS3Endpoint, KeyS3Container, KeyS3Identity, KeyS3Credential}

	for mask := 0; mask < 1<<len(keys); mask++ {
		props := Properties{}
		for i, k := range keys {
			if mask&(1<<i) != 0 {
				props[k] = "v" + k
			}
		}

		lines := DefaultSettings().BuildServiceConfig([]string{"10.0.0.9"}, props).Lines
		for _, k := range keys {
			_, present := props[k]
			assert.Equal(t, present, containsLine(lines, options[k]+"v"+k), "mask %04b key %s", mask, k)
		}
	}
}

// TestBuildServiceConfigEmptyValue keeps a present-but-empty key.
func TestBuildServiceConfigEmptyValue(t *testing.T) {
	lines := DefaultSettings().BuildServiceConfig(nil, Properties{KeyS3Endpoint: ""}).Lines
	assert.Equal(t, "    endpoint: ", lines[len(lines)-1])
}

func TestBuildServiceConfigIsYAML(t *testing.T) {
	props := Properties{KeyS3Container: "mail", KeyS3Identity: "id"}
	got := DefaultSettings().BuildServiceConfig([]string{"10.0.0.1", "10.0.0.2"}, props)

	var doc struct {
		LMTPPort     int                          `yaml:"lmtp_port"`
		Driver       string                       `yaml:"metadata_storage_driver"`
		Keyspace     string                       `yaml:"cassandra_keyspace"`
		Hosts        []string                     `yaml:"cassandra_hosts"`
		WriteProfile string                       `yaml:"blobstore_write_profile"`
		Profiles     map[string]map[string]string `yaml:"blobstore_profiles"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(strings.Join(got.Lines, "\n")), &doc))

	assert.Equal(t, LMTPPort, doc.LMTPPort)
	assert.Equal(t, "cassandra", doc.Driver)
	assert.Equal(t, "ElasticInbox", doc.Keyspace)
	assert.Equal(t, []string{"10.0.0.1:9160", "10.0.0.2:9160"}, doc.Hosts)
	assert.Equal(t, "aws-demo", doc.WriteProfile)
	assert.Equal(t, map[string]string{"provider": "aws-s3", "container": "mail", "identity": "id"}, doc.Profiles["aws-demo"])
}

func TestBuildServiceConfigIdempotent(t *testing.T) {
	s := DefaultSettings()
	props := Properties{KeyS3Endpoint: "e", KeyS3Credential: "c"}
	hosts := []string{"a", "b"}

	first := s.BuildServiceConfig(hosts, props)
	second := s.BuildServiceConfig(hosts, props)
	assert.Equal(t, first, second)

	first.Lines[0] = "mutated"
	assert.NotEqual(t, first.Lines[0], s.BuildServiceConfig(hosts, props).Lines[0])
}

func TestBuildSchemaWithoutReplicationFactor(t *testing.T) {
	got, err := DefaultSettings().BuildSchema(Properties{})
	require.NoError(t, err)

	assert.Equal(t, SchemaPath, got.Path)
	assert.Equal(t, []string{"create keyspace ElasticInbox", ";", "use ElasticInbox;"}, got.Lines[:3])
	assert.Equal(t, columnFamilies, got.Lines[3:])
	assert.False(t, containsLine(got.Lines, "with placement_strategy"))
}

func TestBuildSchemaWithReplicationFactor(t *testing.T) {
	got, err := DefaultSettings().BuildSchema(Properties{KeyReplicationFactor: "3"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"create keyspace ElasticInbox",
		"with placement_strategy = 'org.apache.cassandra.locator.SimpleStrategy'",
		"and strategy_options = [{replication_factor:3}]",
		";",
		"use ElasticInbox;",
	}, got.Lines[:5])
	assert.Equal(t, columnFamilies, got.Lines[5:])
}

// TestBuildSchemaStaticPart verifies the column families never depend on input.
func TestBuildSchemaStaticPart(t *testing.T) {
	bags := []Properties{
		{},
		{KeyReplicationFactor: "1"},
		{KeyReplicationFactor: " 5 ", KeyS3Endpoint: "x"},
		{KeyTarballURL: "http://example.com/ei.tar.gz"},
	}
	for _, props := range bags {
		got, err := DefaultSettings().BuildSchema(props)
		require.NoError(t, err)
		assert.Equal(t, columnFamilies, got.Lines[len(got.Lines)-len(columnFamilies):])
	}

	assert.Equal(t, "create column family Accounts with ", columnFamilies[0])
	assert.Equal(t, "subcomparator=AsciiType;", columnFamilies[len(columnFamilies)-1])
	assert.Len(t, columnFamilies, 19)
}

func TestBuildSchemaInvalidReplicationFactor(t *testing.T) {
	for _, raw := range []string{"", "0", "-2", "three", "2.5"} {
		t.Run(raw, func(t *testing.T) {
			_, err := DefaultSettings().BuildSchema(Properties{KeyReplicationFactor: raw})
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidProperty))
			assert.Contains(t, err.Error(), KeyReplicationFactor)
		})
	}
}

func TestBuildSchemaIdempotent(t *testing.T) {
	props := Properties{KeyReplicationFactor: "2"}
	first, err := DefaultSettings().BuildSchema(props)
	require.NoError(t, err)
	second, err := DefaultSettings().BuildSchema(props)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	first.Lines[len(first.Lines)-1] = "mutated"
	assert.Equal(t, "subcomparator=AsciiType;", columnFamilies[len(columnFamilies)-1])
}

func containsLine(lines []string, prefix string) bool {
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}
