package deploy

// Role identifiers understood by the orchestration runtime.
const (
	// Role is the role managed by this handler. The runtime only targets
	// instances carrying it.
	Role = "elasticinbox"
	// CassandraRole is the metadata store ElasticInbox depends on.
	CassandraRole = "cassandra"
)

// Fixed network ports.
const (
	LMTPPort            = 2400
	RESTPort            = 8181
	CassandraThriftPort = 9160
)

// Remote paths the generated artifacts are appended to.
const (
	ServiceConfigPath = "/tmp/elasticinbox.yaml"
	SchemaPath        = "/tmp/elasticinbox.cml"
)

// Settings gathers every constant the planners and builders depend on.
// It is passed by value; DefaultSettings returns the production values.
type Settings struct {
	Role           string
	DependencyRole string

	LMTPPort      int
	RESTPort      int
	CassandraPort int

	ConfigPath string
	SchemaPath string

	ClusterName  string
	Keyspace     string
	BlobProfile  string
	BlobProvider string
}

// DefaultSettings returns the ports, paths and names of a stock
// ElasticInbox installation backed by Cassandra.
func DefaultSettings() Settings {
	return Settings{
		Role:           Role,
		DependencyRole: CassandraRole,
		LMTPPort:       LMTPPort,
		RESTPort:       RESTPort,
		CassandraPort:  CassandraThriftPort,
		ConfigPath:     ServiceConfigPath,
		SchemaPath:     SchemaPath,
		ClusterName:    "Test Cluster",
		Keyspace:       "ElasticInbox",
		BlobProfile:    "aws-demo",
		BlobProvider:   "aws-s3",
	}
}
