package cluster

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/exp/slices"
)

// Instance health states reported by the coordinator.
const (
	StatusUnknown   = "unknown"
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
)

// Instance is one running machine of the cluster as seen by the orchestration
// runtime. An instance may carry any number of roles, including none.
type Instance struct {
	ID        string   `json:"id" yaml:"id"`
	Roles     []string `json:"roles" yaml:"roles"`
	PrivateIP string   `json:"private_ip" yaml:"private_ip"`
	PublicIP  string   `json:"public_ip,omitempty" yaml:"public_ip,omitempty"`
	// Addr is the agent base URL used for health checks. Empty for
	// instances that were declared in a topology file rather than registered.
	Addr   string `json:"addr,omitempty" yaml:"addr,omitempty"`
	Status string `json:"status,omitempty" yaml:"status,omitempty"`
}

// HasRole reports whether the instance is tagged with role.
func (i Instance) HasRole(role string) bool {
	return slices.Contains(i.Roles, role)
}

// Snapshot is the ordered instance set of a cluster at event time.
// Callers treat it as read-only; the coordinator builds a fresh one per event.
type Snapshot struct {
	Name      string     `json:"name,omitempty" yaml:"name,omitempty"`
	Instances []Instance `json:"instances" yaml:"instances"`
}

// InstancesMatching returns the instances tagged with role, preserving
// snapshot order. The result is never nil.
func (s Snapshot) InstancesMatching(role string) []Instance {
	out := make([]Instance, 0, len(s.Instances))
	for _, inst := range s.Instances {
		if inst.HasRole(role) {
			out = append(out, inst)
		}
	}
	return out
}

// RegisterRequest is the body an agent posts to the coordinator's /register.
type RegisterRequest struct {
	Instance Instance `json:"instance"`
}

var httpClient = &http.Client{Timeout: 5 * time.Second}

// StatusError is returned by PostJSON and GetJSON for non-2xx responses.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %s: %d", e.URL, e.Code)
}

// PostJSON posts body as JSON to url and decodes the response into out
// unless out is nil.
func PostJSON(ctx context.Context, url string, body any, out any) error {
	reqBody, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &StatusError{URL: url, Code: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// GetJSON fetches url and decodes the JSON response into out.
func GetJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &StatusError{URL: url, Code: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
