package cluster

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// ErrInvalidTemplate is returned when an instance template string cannot be parsed.
var ErrInvalidTemplate = errors.New("invalid instance template")

// InstanceTemplate describes a group of identical instances: how many of them
// the cluster expects and which roles each of them carries.
type InstanceTemplate struct {
	Count int      `json:"count" yaml:"count"`
	Roles []string `json:"roles" yaml:"roles"`
}

func (t InstanceTemplate) String() string {
	return fmt.Sprintf("%d %s", t.Count, strings.Join(t.Roles, "+"))
}

// ParseTemplates parses a comma separated list of "<count> <role>[+<role>...]"
// groups, for example "1 elasticinbox+cassandra,2 cassandra".
// An empty string yields no templates.
func ParseTemplates(s string) ([]InstanceTemplate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var out []InstanceTemplate
	for _, group := range strings.Split(s, ",") {
		fields := strings.Fields(group)
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTemplate, group)
		}
		count, err := strconv.Atoi(fields[0])
		if err != nil || count < 0 {
			return nil, fmt.Errorf("%w: bad count in %q", ErrInvalidTemplate, group)
		}
		roles := strings.Split(fields[1], "+")
		for _, r := range roles {
			if r == "" {
				return nil, fmt.Errorf("%w: empty role in %q", ErrInvalidTemplate, group)
			}
		}
		out = append(out, InstanceTemplate{Count: count, Roles: roles})
	}
	return out, nil
}

// Satisfied reports whether snap holds at least Count instances whose role
// set is exactly the template's role set, for every template.
func Satisfied(snap Snapshot, templates []InstanceTemplate) bool {
	for _, t := range templates {
		want := sortedRoles(t.Roles)
		have := 0
		for _, inst := range snap.Instances {
			if slices.Equal(sortedRoles(inst.Roles), want) {
				have++
			}
		}
		if have < t.Count {
			return false
		}
	}
	return true
}

func sortedRoles(roles []string) []string {
	out := append([]string(nil), roles...)
	sort.Strings(out)
	return out
}
