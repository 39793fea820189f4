// Package deploy turns a cluster snapshot and a deployment property bag into
// the statements that install, configure and start ElasticInbox on the
// instances of the "elasticinbox" role.
//
// # Lifecycle
//
// The orchestration runtime drives two independent events:
//
//	bootstrap  ──► Handler.BeforeBootstrap(ctx, props)
//	                 install_java, install_tarball, install_service,
//	                 remove_service, install_elasticinbox [url]
//
//	configure  ──► Handler.BeforeConfigure(ctx, snapshot, props)
//	                 firewall rule (elasticinbox instances × 2400, 8181)
//	                 append /tmp/elasticinbox.yaml
//	                 append /tmp/elasticinbox.cml
//	                 configure_elasticinbox, start_elasticinbox
//
// Nothing is shared between the two; every plan is rebuilt from the inputs.
//
// # Topology
//
// ResolveAddresses filters a snapshot by role and keeps each instance's
// private address in snapshot order. It is applied to the "cassandra" role
// to build the contact list of the service configuration, and the managed
// instances become the firewall rule destinations.
//
// # Artifacts
//
// Settings.BuildServiceConfig and Settings.BuildSchema are pure: identical
// inputs give identical line sequences. The service configuration renders
// object-store settings sparsely, writing endpoint, container, identity and
// credential only for keys present in the bag. The schema adds the
// SimpleStrategy placement lines only when a replication factor is set.
//
// # Errors
//
//   - Package URL resolution failures come from the URLNormalizer and abort
//     bootstrap.
//   - ErrInterrupted: the configure context ended before the plan was built.
//   - ErrInvalidProperty: the replication factor is not a positive integer.
package deploy
