package deploy

import "github.com/dreamware/inboxdeploy/internal/cluster"

// BuildFirewallRule pairs destinations with TCP ports. An empty destination
// set still produces a rule; the runtime decides whether that is a no-op.
func BuildFirewallRule(destinations []cluster.Instance, ports ...int) FirewallRule {
	return FirewallRule{
		Destinations: append(make([]cluster.Instance, 0, len(destinations)), destinations...),
		Ports:        append(make([]int, 0, len(ports)), ports...),
		Protocol:     "tcp",
	}
}

// Addresses returns the private addresses of the rule's destinations.
func (r FirewallRule) Addresses() []string {
	return privateIPs(r.Destinations)
}
