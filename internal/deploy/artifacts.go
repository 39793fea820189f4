package deploy

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidProperty is returned when a configured value cannot be used as is.
var ErrInvalidProperty = errors.New("invalid property")

// blobOptions lists the object-store profile settings in render order.
// Each is written only when its key is present.
var blobOptions = []struct {
	name string
	key  string
}{
	{name: "endpoint", key: KeyS3Endpoint},
	{name: "container", key: KeyS3Container},
	{name: "identity", key: KeyS3Identity},
	{name: "credential", key: KeyS3Credential},
}

// BuildServiceConfig renders the ElasticInbox YAML configuration. hosts are
// the Cassandra contact addresses in resolver order.
func (s Settings) BuildServiceConfig(hosts []string, props Properties) Artifact {
	lines := make([]string, 0, 20+len(hosts)+len(blobOptions))
	lines = append(lines, s.serviceDefaults()...)

	lines = append(lines, "cassandra_hosts:")
	for _, host := range hosts {
		lines = append(lines, fmt.Sprintf("  - %s:%d", host, s.CassandraPort))
	}
	lines = append(lines, "")

	lines = append(lines,
		"blobstore_write_profile: "+s.BlobProfile,
		"blobstore_profiles:",
		"  "+s.BlobProfile+":",
		"    provider: "+s.BlobProvider,
	)
	for _, opt := range blobOptions {
		if v, ok := props.Lookup(opt.key); ok {
			lines = append(lines, "    "+opt.name+": "+v)
		}
	}

	return Artifact{Path: s.ConfigPath, Lines: lines}
}

func (s Settings) serviceDefaults() []string {
	return []string{
		"mailbox_quota_bytes: 1073741824",
		"mailbox_quota_count: 50000",
		"enable_performance_counters: false",
		"performance_counters_interval: 180",
		"lmtp_port: " + strconv.Itoa(s.LMTPPort),
		"lmtp_max_connections: 50",
		"metadata_storage_driver: " + s.DependencyRole,
		"store_html_message: true",
		"store_plain_message: false",
		"cassandra_autodiscovery: true",
		"cassandra_cluster_name: '" + s.ClusterName + "'",
		"cassandra_keyspace: '" + s.Keyspace + "'",
	}
}

// columnFamilies is the static ElasticInbox schema.
var columnFamilies = []string{
	"create column family Accounts with ",
	"key_validation_class=UTF8Type and",
	"rows_cached=100000;",
	"create column family MessageMetadata with ",
	"column_type=Super and ",
	"key_validation_class=UTF8Type and",
	"comparator=TimeUUIDType and ",
	"subcomparator=BytesType;",
	"create column family IndexLabels with",
	"key_validation_class=UTF8Type and",
	"comparator=TimeUUIDType and ",
	"rows_cached=100000;",
	"create column family Counters with",
	"column_type=Super and",
	"default_validation_class=CounterColumnType and ",
	"replicate_on_write=true and",
	"key_validation_class=UTF8Type and",
	"comparator=UTF8Type and",
	"subcomparator=AsciiType;",
}

// BuildSchema renders the cassandra-cli script creating the keyspace and
// column families. The placement strategy lines appear only when a
// replication factor is configured; it must be a positive integer.
func (s Settings) BuildSchema(props Properties) (Artifact, error) {
	lines := make([]string, 0, 5+len(columnFamilies))
	lines = append(lines, "create keyspace "+s.Keyspace)

	if raw, ok := props.Lookup(KeyReplicationFactor); ok {
		rf, err := parseReplicationFactor(raw)
		if err != nil {
			return Artifact{}, err
		}
		lines = append(lines,
			"with placement_strategy = 'org.apache.cassandra.locator.SimpleStrategy'",
			"and strategy_options = [{replication_factor:"+strconv.Itoa(rf)+"}]",
		)
	}

	lines = append(lines, ";", "use "+s.Keyspace+";")
	lines = append(lines, columnFamilies...)

	return Artifact{Path: s.SchemaPath, Lines: lines}, nil
}

func parseReplicationFactor(raw string) (int, error) {
	rf, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || rf < 1 {
		return 0, fmt.Errorf("%w: %s=%q must be a positive integer", ErrInvalidProperty, KeyReplicationFactor, raw)
	}
	return rf, nil
}
