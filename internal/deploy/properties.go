package deploy

import "sort"

// Property keys read from the deployment configuration.
const (
	KeyS3Endpoint        = "elasticinbox.aws.s3.endpoint"
	KeyS3Container       = "elasticinbox.aws.s3.container"
	KeyS3Identity        = "elasticinbox.aws.s3.identity"
	KeyS3Credential      = "elasticinbox.aws.s3.credential"
	KeyReplicationFactor = "elasticinbox.cassandra.replication_factor"
	KeyTarballURL        = "elasticinbox.tarball.url"

	KeyClusterName       = "whirr.cluster-name"
	KeyInstanceTemplates = "whirr.instance-templates"
)

// Properties is the deployment-time configuration bag. A missing key is a
// valid state and means "leave the setting out".
type Properties map[string]string

// Lookup returns the value for key and whether the key is present at all.
// A present key may hold the empty string.
func (p Properties) Lookup(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// Get returns the value for key, or "" when absent.
func (p Properties) Get(key string) string {
	return p[key]
}

// Keys returns the property names in sorted order.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
