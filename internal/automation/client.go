// Package automation talks to the external automation layer that owns the
// record collections and the generation steps.
//
// Client calls it as named remote procedures over HTTP. Local is an
// in-process stand-in over a record.Store for development and tests; it
// implements the approval and validation operations itself and reports the
// generation steps as not configured.
package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/mfperdi/parishliturgyplanner/internal/approval"
	"github.com/mfperdi/parishliturgyplanner/internal/record"
	"github.com/mfperdi/parishliturgyplanner/internal/remote"
	"github.com/mfperdi/parishliturgyplanner/internal/workflow"
)

// envelope is the response body of every remote procedure.
type envelope struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

// ClientOptions configures a Client.
type ClientOptions struct {
	Timeout time.Duration
	// RPS and Burst throttle outgoing calls. RPS <= 0 disables throttling.
	RPS   float64
	Burst int
}

// Client calls remote procedures as POST {base}/{procedure} with a JSON
// request body.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a Client for the automation endpoint at baseURL.
func NewClient(baseURL string, opts ClientOptions, log zerolog.Logger) *Client {
	c := &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: opts.Timeout},
		log:  log,
	}
	if opts.RPS > 0 {
		burst := opts.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RPS), burst)
	}
	return c
}

// call invokes procedure with req and decodes the result into out (which
// may be nil). Every failure comes back as a *remote.Failure.
func (c *Client) call(ctx context.Context, procedure string, req, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return remote.Wrap(procedure, err)
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return remote.Failf(procedure, "encoding request: %v", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/"+procedure, bytes.NewReader(body))
	if err != nil {
		return remote.Failf(procedure, "building request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Warn().Err(err).Str("procedure", procedure).Msg("automation: call failed")
		return remote.Wrap(procedure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return remote.Failf(procedure, "reading response: %v", err)
	}
	c.log.Debug().
		Str("procedure", procedure).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("automation: call")

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return remote.Failf(procedure, "%s: %s", resp.Status, strings.TrimSpace(string(raw)))
		}
		return remote.Failf(procedure, "decoding response: %v", err)
	}
	if !env.OK {
		msg := env.Error
		if msg == "" {
			msg = fmt.Sprintf("%s failed (%s)", procedure, resp.Status)
		}
		return &remote.Failure{Op: procedure, Message: msg}
	}
	if out != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, out); err != nil {
			return remote.Failf(procedure, "decoding result: %v", err)
		}
	}
	return nil
}

// ── record.Store ────────────────────────────────────────────────────────────

func (c *Client) Read(ctx context.Context, collection string) ([]record.Values, error) {
	var res struct {
		Rows []record.Values `json:"rows"`
	}
	if err := c.call(ctx, "readRecords", map[string]any{"collection": collection}, &res); err != nil {
		return nil, err
	}
	return res.Rows, nil
}

func (c *Client) Create(ctx context.Context, collection string, values record.Values) error {
	return c.call(ctx, "createRecord", map[string]any{"collection": collection, "values": values}, nil)
}

func (c *Client) Update(ctx context.Context, collection string, row int, values record.Values) error {
	return c.call(ctx, "updateRecord", map[string]any{"collection": collection, "rowIndex": row, "values": values}, nil)
}

func (c *Client) Delete(ctx context.Context, collection string, row int) error {
	return c.call(ctx, "deleteRecord", map[string]any{"collection": collection, "rowIndex": row}, nil)
}

// ── approval.Backend ────────────────────────────────────────────────────────

func (c *Client) ListPending(ctx context.Context, period workflow.Period) ([]approval.Item, error) {
	var res struct {
		Pending []approval.Item `json:"pending"`
	}
	if err := c.call(ctx, "listPendingApprovals", map[string]any{"period": period}, &res); err != nil {
		return nil, err
	}
	return res.Pending, nil
}

func (c *Client) Approve(ctx context.Context, dataIndex int, notes string) error {
	return c.call(ctx, "approveItem", map[string]any{"rowIndex": dataIndex, "notes": notes}, nil)
}

func (c *Client) Reject(ctx context.Context, dataIndex int, notes string) error {
	return c.call(ctx, "rejectItem", map[string]any{"rowIndex": dataIndex, "notes": notes}, nil)
}

func (c *Client) BulkApproveClean(ctx context.Context) (int, error) {
	var res struct {
		Approved int `json:"approved"`
	}
	if err := c.call(ctx, "bulkApproveClean", struct{}{}, &res); err != nil {
		return 0, err
	}
	return res.Approved, nil
}

// ── workflow.Actions ────────────────────────────────────────────────────────

func (c *Client) GenerateCalendar(ctx context.Context) error {
	return c.call(ctx, "generateCalendar", struct{}{}, nil)
}

func (c *Client) ValidateData(ctx context.Context) (workflow.ValidationReport, error) {
	var report workflow.ValidationReport
	err := c.call(ctx, "validateData", struct{}{}, &report)
	return report, err
}

func (c *Client) GenerateSchedule(ctx context.Context, period workflow.Period) error {
	return c.call(ctx, "generateSchedule", map[string]any{"period": period}, nil)
}

func (c *Client) SyncForm(ctx context.Context, period workflow.Period) error {
	return c.call(ctx, "syncForm", map[string]any{"period": period}, nil)
}

func (c *Client) AutoAssign(ctx context.Context, period workflow.Period) error {
	return c.call(ctx, "autoAssign", map[string]any{"period": period}, nil)
}

var (
	_ record.Store     = (*Client)(nil)
	_ approval.Backend = (*Client)(nil)
	_ workflow.Actions = (*Client)(nil)
)
