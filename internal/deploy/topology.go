package deploy

import "github.com/dreamware/inboxdeploy/internal/cluster"

// ResolveAddresses returns the private address of every instance in snap
// that carries role, in snapshot order. Duplicates are kept and an empty
// match yields an empty, non-nil slice.
func ResolveAddresses(snap cluster.Snapshot, role string) []string {
	return privateIPs(snap.InstancesMatching(role))
}

func privateIPs(instances []cluster.Instance) []string {
	out := make([]string, 0, len(instances))
	for _, inst := range instances {
		out = append(out, inst.PrivateIP)
	}
	return out
}
