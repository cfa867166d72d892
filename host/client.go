package host

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/kbukum/convoy/transport"
)

// defaultPollInterval paces AwaitUnit status checks.
const defaultPollInterval = 5 * time.Second

// Client exposes the pipeline host API over the resilient transport client.
type Client struct {
	tc           *transport.Client
	pollInterval time.Duration
}

// NewClient creates a host client on top of the given transport client.
func NewClient(tc *transport.Client) *Client {
	return &Client{tc: tc, pollInterval: defaultPollInterval}
}

// WithPollInterval overrides the AwaitUnit polling interval.
func (c *Client) WithPollInterval(d time.Duration) *Client {
	c.pollInterval = d
	return c
}

// Bridges lists all trigger relationships belonging to the given host run.
func (c *Client) Bridges(ctx context.Context, runID int64) ([]Bridge, error) {
	return transport.GetJSON[[]Bridge](c.tc, ctx, fmt.Sprintf("runs/%d/bridges", runID))
}

// ListJobs lists all executed jobs of a downstream run.
func (c *Client) ListJobs(ctx context.Context, unitID, runID int64) ([]Job, error) {
	return transport.GetJSON[[]Job](c.tc, ctx, fmt.Sprintf("units/%d/runs/%d/jobs", unitID, runID))
}

// StartUnit asks the host to execute a named unit of work against a pinned
// version reference.
func (c *Client) StartUnit(ctx context.Context, name, versionRef string, vars map[string]string) (UnitHandle, error) {
	req := startUnitRequest{Name: name, Ref: versionRef, Variables: vars}
	return transport.PutJSON[UnitHandle](c.tc, ctx, "units/start", req)
}

// AwaitUnit blocks until the unit's run reaches a terminal status or the
// context is canceled. The host performs the actual scheduling; this is a
// plain status poll, not a scheduler.
func (c *Client) AwaitUnit(ctx context.Context, handle UnitHandle) (UnitStatus, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		state, err := transport.GetJSON[unitState](c.tc, ctx,
			fmt.Sprintf("units/%d/runs/%d", handle.UnitID, handle.RunID))
		if err != nil {
			return "", err
		}
		if state.Status.Terminal() {
			return state.Status, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// DownloadArtifacts fetches the artifact archive a job produced.
func (c *Client) DownloadArtifacts(ctx context.Context, unitID, jobID int64) ([]byte, error) {
	return c.tc.Get(ctx, fmt.Sprintf("units/%d/jobs/%d/artifacts", unitID, jobID))
}

// Uploader is the single store-write capability in the system. Only the
// publisher is constructed with one; every other component sees read-only
// host APIs.
type Uploader struct {
	tc *transport.Client
}

// NewUploader creates the store-write client.
func NewUploader(tc *transport.Client) *Uploader {
	return &Uploader{tc: tc}
}

// UploadPackage uploads a named blob under (storeID, pkg, version, destPath).
func (u *Uploader) UploadPackage(ctx context.Context, storeID, pkg, version, destPath string, body []byte) error {
	path := fmt.Sprintf("stores/%s/packages/generic/%s/%s/%s",
		url.PathEscape(storeID), url.PathEscape(pkg), url.PathEscape(version), url.PathEscape(destPath))
	return u.tc.Put(ctx, path, body)
}
