package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/dreamware/inboxdeploy/internal/cluster"
	"github.com/dreamware/inboxdeploy/internal/deploy"
)

const (
	outputText   = "text"
	outputJSON   = "json"
	outputYAML   = "yaml"
	outputScript = "script"
)

func validOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML, outputScript:
		return nil
	}
	return fmt.Errorf("unknown output format %q, want text|json|yaml|script", format)
}

func writePlan(w io.Writer, format string, plan deploy.Plan) error {
	switch format {
	case outputScript:
		_, err := io.WriteString(w, plan.Script())
		return err
	case outputText:
		return writePlanText(w, plan)
	}
	return writeStructured(w, format, plan)
}

func writeSnapshot(w io.Writer, format string, snap cluster.Snapshot) error {
	switch format {
	case outputScript:
		return fmt.Errorf("output %q only applies to plans", format)
	case outputText:
		return writeSnapshotText(w, snap)
	}
	return writeStructured(w, format, snap)
}

func writeStructured(w io.Writer, format string, v any) error {
	if format == outputYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writePlanText(w io.Writer, plan deploy.Plan) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s %s\n", plan.Role, plan.Phase)

	for _, rule := range plan.FirewallRules {
		ports := make([]string, 0, len(rule.Ports))
		for _, p := range rule.Ports {
			ports = append(ports, strconv.Itoa(p))
		}
		targets := strings.Join(rule.Addresses(), " ")
		if targets == "" {
			targets = "(none)"
		}
		fmt.Fprintf(tw, "  firewall\t%s %s\t-> %s\n", rule.Protocol, strings.Join(ports, ","), targets)
	}

	for _, st := range plan.Statements {
		switch st.Kind {
		case deploy.KindCall:
			fmt.Fprintf(tw, "  call\t%s\t%s\n", st.Name, strings.Join(st.Args, " "))
		case deploy.KindAppendFile:
			fmt.Fprintf(tw, "  append\t%s\t%d lines\n", st.Path, len(st.Lines))
		}
	}
	return tw.Flush()
}

func writeSnapshotText(w io.Writer, snap cluster.Snapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if snap.Name != "" {
		fmt.Fprintf(tw, "cluster %s\n", snap.Name)
	}
	fmt.Fprintln(tw, "ID\tROLES\tPRIVATE IP\tPUBLIC IP\tSTATUS")
	for _, inst := range snap.Instances {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			inst.ID, dash(strings.Join(inst.Roles, "+")), dash(inst.PrivateIP), dash(inst.PublicIP), dash(inst.Status))
	}
	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
