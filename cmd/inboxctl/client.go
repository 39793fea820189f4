package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dreamware/inboxdeploy/internal/cluster"
	"github.com/dreamware/inboxdeploy/internal/deploy"
)

// client talks to the coordinator. Configure calls block until the cluster
// is complete, so requests are bounded by the caller's context only.
type client struct {
	base string
	http *http.Client
}

func newClient(base string) *client {
	return &client{base: strings.TrimRight(base, "/"), http: &http.Client{}}
}

type instancesResponse struct {
	Cluster   string             `json:"cluster"`
	Instances []cluster.Instance `json:"instances"`
}

func (c *client) event(ctx context.Context, phase deploy.Phase, props map[string]string) (deploy.Plan, error) {
	body, err := json.Marshal(struct {
		Properties map[string]string `json:"properties,omitempty"`
	}{Properties: props})
	if err != nil {
		return deploy.Plan{}, err
	}

	var plan deploy.Plan
	err = c.do(ctx, http.MethodPost, "/events/"+string(phase), bytes.NewReader(body), &plan)
	return plan, err
}

func (c *client) instances(ctx context.Context) (cluster.Snapshot, error) {
	var resp instancesResponse
	if err := c.do(ctx, http.MethodGet, "/instances", http.NoBody, &resp); err != nil {
		return cluster.Snapshot{}, err
	}
	return cluster.Snapshot{Name: resp.Cluster, Instances: resp.Instances}, nil
}

func (c *client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("coordinator %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return fmt.Errorf("coordinator %s: %s: %w", path, e.Error, &cluster.StatusError{URL: req.URL.String(), Code: resp.StatusCode})
		}
		return &cluster.StatusError{URL: req.URL.String(), Code: resp.StatusCode}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
