package cluster

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadSnapshot decodes a YAML topology document:
//
//	name: demo
//	instances:
//	  - id: i-1
//	    roles: [elasticinbox, cassandra]
//	    private_ip: 10.0.0.1
func LoadSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&snap); err != nil {
		if err == io.EOF {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("decode topology: %w", err)
	}
	for i, inst := range snap.Instances {
		if inst.ID == "" {
			snap.Instances[i].ID = fmt.Sprintf("instance-%d", i)
		}
	}
	return snap, nil
}

// LoadSnapshotFile reads a topology document from path.
func LoadSnapshotFile(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, err
	}
	defer f.Close()
	return LoadSnapshot(f)
}
