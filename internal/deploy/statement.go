package deploy

import "github.com/dreamware/inboxdeploy/internal/cluster"

// Statement kinds.
const (
	KindCall       = "call"
	KindAppendFile = "append_file"
)

// Installer functions invoked by the plans. Their bodies live in the
// runtime's script library.
const (
	FnInstallJava    = "install_java"
	FnInstallTarball = "install_tarball"
	FnInstallService = "install_service"
	FnRemoveService  = "remove_service"
	FnInstallInbox   = "install_elasticinbox"
	FnConfigureInbox = "configure_elasticinbox"
	FnStartInbox     = "start_elasticinbox"
)

// Phase names a lifecycle event.
type Phase string

const (
	PhaseBootstrap Phase = "bootstrap"
	PhaseConfigure Phase = "configure"
)

// Statement is one instruction for the runtime to execute on a target
// instance: either a named call with positional arguments or an append of
// lines to a remote file.
type Statement struct {
	Kind  string   `json:"kind" yaml:"kind"`
	Name  string   `json:"name,omitempty" yaml:"name,omitempty"`
	Args  []string `json:"args,omitempty" yaml:"args,omitempty"`
	Path  string   `json:"path,omitempty" yaml:"path,omitempty"`
	Lines []string `json:"lines,omitempty" yaml:"lines,omitempty"`
}

// Call builds a call statement. With no args the Args field stays nil.
func Call(name string, args ...string) Statement {
	st := Statement{Kind: KindCall, Name: name}
	if len(args) > 0 {
		st.Args = append([]string(nil), args...)
	}
	return st
}

// Artifact is a generated file: ordered lines destined for Path.
type Artifact struct {
	Path  string   `json:"path" yaml:"path"`
	Lines []string `json:"lines" yaml:"lines"`
}

// Statement converts the artifact into an append-file instruction.
func (a Artifact) Statement() Statement {
	return Statement{
		Kind:  KindAppendFile,
		Path:  a.Path,
		Lines: append([]string(nil), a.Lines...),
	}
}

// FirewallRule opens Ports to the Destinations instances.
type FirewallRule struct {
	Destinations []cluster.Instance `json:"destinations" yaml:"destinations"`
	Ports        []int              `json:"ports" yaml:"ports"`
	Protocol     string             `json:"protocol" yaml:"protocol"`
}

// Plan is what a lifecycle handler hands back to the runtime.
type Plan struct {
	Role          string         `json:"role" yaml:"role"`
	Phase         Phase          `json:"phase" yaml:"phase"`
	FirewallRules []FirewallRule `json:"firewall_rules,omitempty" yaml:"firewall_rules,omitempty"`
	Statements    []Statement    `json:"statements" yaml:"statements"`
}
