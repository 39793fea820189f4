package deploy

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

const heredocMarker = "END_OF_FILE"

// heredocDelimiter returns a delimiter that equals no physical line of the
// content, so property values can never close the heredoc early.
func heredocDelimiter(lines []string) string {
	physical := strings.Split(strings.Join(lines, "\n"), "\n")
	marker := heredocMarker
	for n := 1; slices.Contains(physical, marker); n++ {
		marker = heredocMarker + "_" + strconv.Itoa(n)
	}
	return marker
}

// Script renders the plan as a bash fragment. Calls expect the installer
// functions to be sourced already; firewall rules appear as comments since
// they are enforced by the runtime, not on the instance.
func (p Plan) Script() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s\n", p.Role, p.Phase)

	for _, rule := range p.FirewallRules {
		ports := make([]string, 0, len(rule.Ports))
		for _, port := range rule.Ports {
			ports = append(ports, strconv.Itoa(port))
		}
		fmt.Fprintf(&b, "# firewall: allow %s/%s to [%s]\n",
			rule.Protocol, strings.Join(ports, ","), strings.Join(rule.Addresses(), " "))
	}

	for _, st := range p.Statements {
		switch st.Kind {
		case KindCall:
			b.WriteString(st.Name)
			for _, arg := range st.Args {
				b.WriteByte(' ')
				b.WriteString(shellQuote(arg))
			}
			b.WriteByte('\n')
		case KindAppendFile:
			marker := heredocDelimiter(st.Lines)
			fmt.Fprintf(&b, "cat >> %s <<'%s'\n", shellQuote(st.Path), marker)
			for _, line := range st.Lines {
				b.WriteString(line)
				b.WriteByte('\n')
			}
			b.WriteString(marker + "\n")
		}
	}
	return b.String()
}

// shellQuote wraps s in single quotes, escaping embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
