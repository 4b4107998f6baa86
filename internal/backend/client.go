package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/gymlog/internal/telemetry/tracing"
	"github.com/2beens/gymlog/internal/workout"
)

const (
	PathListTimestamps  = "/api/getDates"
	PathFetchLift       = "/api/getWeight"
	PathFetchRun        = "/api/getRun"
	PathEnterWorkout    = "/api/enterWorkout"
	PathDeleteTimestamp = "/api/delDate"

	defaultTimeout = 15 * time.Second
)

// StatusError is a non-2xx answer of the records store.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("records store status %d", e.StatusCode)
	}
	return fmt.Sprintf("records store status %d: %s", e.StatusCode, e.Message)
}

// liftResponse and runResponse use pointers so an empty object answer ({})
// can be told apart from a record with zero values.
type liftResponse struct {
	Exercise  *string  `json:"exercise"`
	WeightLbs *float64 `json:"weight_lbs"`
	TotalSets *int     `json:"total_sets"`
}

func (r liftResponse) empty() bool {
	return r.Exercise == nil && r.WeightLbs == nil && r.TotalSets == nil
}

type runResponse struct {
	DistanceMiles *float64 `json:"distance_miles"`
	ElapsedSecs   *float64 `json:"elapsed_secs"`
	InclineDeg    *float64 `json:"incline_deg"`
	SpeedMph      *float64 `json:"speed_mph"`
}

func (r runResponse) empty() bool {
	return r.DistanceMiles == nil && r.ElapsedSecs == nil && r.InclineDeg == nil && r.SpeedMph == nil
}

// Client talks to the records store over its JSON/POST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a records store client. With a nil httpClient, a traced
// client with a default timeout is used.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(respBytes)),
		}
	}

	return respBytes, nil
}

func timestampBody(timestamp int64) []byte {
	return []byte(strconv.FormatInt(timestamp, 10))
}

func (c *Client) ListTimestamps(ctx context.Context) (_ []int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.listTimestamps")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	respBytes, err := c.post(ctx, PathListTimestamps, nil)
	if err != nil {
		return nil, fmt.Errorf("list timestamps: %w", err)
	}

	var timestamps []int64
	if err := json.Unmarshal(respBytes, &timestamps); err != nil {
		return nil, fmt.Errorf("unmarshal timestamps: %w", err)
	}
	span.SetAttributes(attribute.Int("timestamps.count", len(timestamps)))
	log.Tracef("listed %d timestamps", len(timestamps))

	return timestamps, nil
}

// FetchLift returns the lift stored at timestamp, or nil when there is none.
func (c *Client) FetchLift(ctx context.Context, timestamp int64) (_ *workout.Lift, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.fetchLift")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("timestamp", timestamp))

	respBytes, err := c.post(ctx, PathFetchLift, timestampBody(timestamp))
	if err != nil {
		return nil, fmt.Errorf("fetch lift %d: %w", timestamp, err)
	}

	var resp liftResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal lift %d: %w", timestamp, err)
	}
	if resp.empty() {
		return nil, nil
	}

	lift := &workout.Lift{}
	if resp.Exercise != nil {
		lift.Exercise = *resp.Exercise
	}
	if resp.WeightLbs != nil {
		lift.WeightLbs = *resp.WeightLbs
	}
	if resp.TotalSets != nil {
		lift.TotalSets = *resp.TotalSets
	}
	return lift, nil
}

// FetchRun returns the run stored at timestamp, or nil when there is none.
// The speed is always derived from distance and elapsed time.
func (c *Client) FetchRun(ctx context.Context, timestamp int64) (_ *workout.Run, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.fetchRun")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("timestamp", timestamp))

	respBytes, err := c.post(ctx, PathFetchRun, timestampBody(timestamp))
	if err != nil {
		return nil, fmt.Errorf("fetch run %d: %w", timestamp, err)
	}

	var resp runResponse
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal run %d: %w", timestamp, err)
	}
	if resp.empty() {
		return nil, nil
	}

	run := &workout.Run{}
	if resp.DistanceMiles != nil {
		run.DistanceMiles = *resp.DistanceMiles
	}
	if resp.ElapsedSecs != nil {
		run.ElapsedSecs = *resp.ElapsedSecs
	}
	if resp.InclineDeg != nil {
		run.InclineDeg = *resp.InclineDeg
	}
	run.SpeedMph = workout.SpeedMph(run.DistanceMiles, run.ElapsedSecs)
	return run, nil
}

func (c *Client) EnterWorkout(ctx context.Context, payload workout.Payload) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.enterWorkout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("timestamp", payload.Timestamp))

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	if _, err := c.post(ctx, PathEnterWorkout, payloadBytes); err != nil {
		return err
	}
	log.Debugf("workout entered at %d", payload.Timestamp)
	return nil
}

func (c *Client) DeleteTimestamp(ctx context.Context, timestamp int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "backend.deleteTimestamp")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("timestamp", timestamp))

	if _, err := c.post(ctx, PathDeleteTimestamp, timestampBody(timestamp)); err != nil {
		return fmt.Errorf("delete timestamp %d: %w", timestamp, err)
	}
	log.Debugf("timestamp %d deleted", timestamp)
	return nil
}
