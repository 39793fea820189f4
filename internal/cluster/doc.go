// Package cluster models the machines of an inbox deployment as the
// orchestration runtime sees them.
//
// # Overview
//
// An Instance is one machine with its roles and addresses. A Snapshot is the
// ordered set of instances at the time of a lifecycle event; its order is
// significant because generated host lists follow it. Snapshots come either
// from the coordinator's registry or from a YAML topology file:
//
//	name: mail
//	instances:
//	  - id: inbox-1
//	    roles: [elasticinbox, cassandra]
//	    private_ip: 10.0.0.1
//	  - id: cass-1
//	    roles: [cassandra]
//	    private_ip: 10.0.0.2
//
// # Instance templates
//
// Templates declare the expected shape of a cluster with the syntax of the
// whirr.instance-templates property:
//
//	1 elasticinbox+cassandra,2 cassandra
//
// Each group is a count and a '+' separated role set. Satisfied compares
// role sets exactly, ignoring order, so the instance above counts towards
// the first group only.
//
// # Transport
//
// Agents and the coordinator exchange JSON over HTTP. PostJSON and GetJSON
// use a client with a 5 second timeout and report non-2xx answers as
// *StatusError, which callers inspect with errors.As.
package cluster
