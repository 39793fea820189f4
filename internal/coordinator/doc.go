// Package coordinator holds the runtime side of an inbox deployment: the
// registry of instances that have joined the cluster, the health monitor
// that probes their agents, and the metrics the coordinator exports.
//
// # Overview
//
// Agents register with the coordinator on start. The registry keeps them in
// registration order, which is the order every snapshot, and therefore every
// generated host list, follows. A configure event is only answered once the
// registered instances satisfy the cluster's instance templates:
//
//	templates, _ := cluster.ParseTemplates("1 elasticinbox+cassandra,2 cassandra")
//	snap, err := registry.WaitFor(ctx, templates)
//	if err != nil {
//	    // errors.Is(err, deploy.ErrInterrupted)
//	}
//	plan, err := handler.BeforeConfigure(ctx, snap, props)
//
// A template is matched by exact role set, so an instance tagged
// elasticinbox+cassandra does not count towards "2 cassandra".
//
// # Health
//
// HealthMonitor GETs <addr>/health on every registered agent each interval.
// Three consecutive failures mark an instance unhealthy; one success
// restores it. Transitions are reported through SetOnStatusChange, which the
// coordinator wires to Registry.SetStatus. Instances declared without an
// agent address are never probed and stay in the unknown state.
//
// Health does not affect snapshots. An unhealthy instance still appears in
// the host list and the firewall rule, as the runtime expects every
// templated instance to be present.
//
// # Metrics
//
// Metrics registers its collectors on a private Prometheus registry:
//
//	inboxdeploy_instances{status}
//	inboxdeploy_lifecycle_events_total{phase,outcome}
//	inboxdeploy_lifecycle_event_seconds{phase}
//
// plus the Go and process collectors.
package coordinator
