// Package client is a typed Go client for the grading API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/colegio-digital/grading-service/internal/models"
	"github.com/colegio-digital/grading-service/internal/services"
	"github.com/colegio-digital/grading-service/internal/validator"
)

const apiPrefix = "/api/v1"

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client with a 30s timeout
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithToken sets the bearer token sent on every request
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do performs the request and decodes the normalized data into out
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	raw, _, err := c.send(ctx, method, path, query, body)
	if err != nil {
		return err
	}

	env, err := decodeEnvelope(raw)
	if err != nil {
		return &Error{Kind: KindRemoteFailure, Message: err.Error(), cause: err}
	}
	if !env.Success {
		return responseError(http.StatusOK, env)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Kind: KindRemoteFailure, Message: fmt.Sprintf("failed to decode data: %v", err), cause: err}
	}
	return nil
}

// send returns the raw body of a 2xx response
func (c *Client) send(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, http.Header, error) {
	endpoint := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, remoteFailure(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, remoteFailure(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		env, _ := decodeEnvelope(raw)
		return nil, nil, responseError(resp.StatusCode, env)
	}
	return raw, resp.Header, nil
}

func idPath(format string, id uint) string {
	return fmt.Sprintf(format, id)
}

// ===== ASSIGNMENTS =====

func (c *Client) CreateAssignment(ctx context.Context, req *services.CreateAssignmentRequest) (*models.CourseAssignment, error) {
	var out models.CourseAssignment
	if err := c.do(ctx, http.MethodPost, "/assignments", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAssignment(ctx context.Context, id uint) (*models.CourseAssignment, error) {
	var out models.CourseAssignment
	if err := c.do(ctx, http.MethodGet, idPath("/assignments/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListUnits(ctx context.Context, assignmentID uint) ([]*models.Unit, error) {
	var out []*models.Unit
	if err := c.do(ctx, http.MethodGet, idPath("/assignments/%d/units", assignmentID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CloseAndOpenNext(ctx context.Context, assignmentID uint) (*services.UnitTransitionResult, error) {
	var out services.UnitTransitionResult
	if err := c.do(ctx, http.MethodPost, idPath("/assignments/%d/close-and-open-next", assignmentID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ===== UNITS =====

func (c *Client) GetUnit(ctx context.Context, id uint) (*models.Unit, error) {
	var out models.Unit
	if err := c.do(ctx, http.MethodGet, idPath("/units/%d", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ActivateUnit(ctx context.Context, id uint) (*models.Unit, error) {
	var out models.Unit
	if err := c.do(ctx, http.MethodPost, idPath("/units/%d/activate", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CloseUnit(ctx context.Context, id uint) (*services.UnitTransitionResult, error) {
	var out services.UnitTransitionResult
	if err := c.do(ctx, http.MethodPost, idPath("/units/%d/close", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateWeights(ctx context.Context, unitID uint, req *services.UpdateWeightsRequest) (*models.Unit, error) {
	var out models.Unit
	if err := c.do(ctx, http.MethodPut, idPath("/units/%d/weights", unitID), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckWeights asks whether candidate would fit under the unit ceiling
func (c *Client) CheckWeights(ctx context.Context, unitID uint, candidate validator.WeightCandidate) (*validator.WeightCheck, error) {
	query := url.Values{}
	query.Set("category", string(candidate.Category))
	query.Set("max_points", strconv.FormatFloat(candidate.MaxPoints, 'f', -1, 64))
	query.Set("enabled", strconv.FormatBool(candidate.Enabled))
	if candidate.ExcludeID != nil {
		query.Set("exclude_id", strconv.FormatUint(uint64(*candidate.ExcludeID), 10))
	}

	var out validator.WeightCheck
	if err := c.do(ctx, http.MethodGet, idPath("/units/%d/weights/check", unitID), query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ValidateClosure(ctx context.Context, unitID uint) (*services.ClosureValidation, error) {
	var out services.ClosureValidation
	if err := c.do(ctx, http.MethodGet, idPath("/units/%d/closure", unitID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportUnitGrades downloads the xlsx sheet of a unit
func (c *Client) ExportUnitGrades(ctx context.Context, unitID uint) (*services.GradeSheet, error) {
	raw, header, err := c.send(ctx, http.MethodGet, idPath("/units/%d/export", unitID), nil, nil)
	if err != nil {
		return nil, err
	}
	sheet := &services.GradeSheet{Content: raw}
	if disposition := header.Get("Content-Disposition"); disposition != "" {
		if _, after, ok := strings.Cut(disposition, "filename="); ok {
			sheet.FileName = strings.Trim(after, `"`)
		}
	}
	return sheet, nil
}

// ===== ACTIVITIES =====

func (c *Client) ListActivities(ctx context.Context, unitID uint) ([]*models.Activity, error) {
	var out []*models.Activity
	if err := c.do(ctx, http.MethodGet, idPath("/units/%d/activities", unitID), nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateActivity(ctx context.Context, unitID uint, req *services.CreateActivityRequest) (*services.ActivityResult, error) {
	var out services.ActivityResult
	if err := c.do(ctx, http.MethodPost, idPath("/units/%d/activities", unitID), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateActivity(ctx context.Context, id uint, req *services.UpdateActivityRequest) (*services.ActivityResult, error) {
	var out services.ActivityResult
	if err := c.do(ctx, http.MethodPut, idPath("/activities/%d", id), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteActivity(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, idPath("/activities/%d", id), nil, nil, nil)
}

// ===== GRADES =====

func (c *Client) ListActivityGrades(ctx context.Context, activityID uint) (*services.ActivityGradeList, error) {
	var out services.ActivityGradeList
	if err := c.do(ctx, http.MethodGet, idPath("/activities/%d/grades", activityID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) RecordGrades(ctx context.Context, activityID uint, req *services.RecordGradesRequest) (*services.RecordGradesResult, error) {
	var out services.RecordGradesResult
	if err := c.do(ctx, http.MethodPost, idPath("/activities/%d/grades", activityID), nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FinalGradingGate(ctx context.Context, activityID uint) (*services.FinalGradingGate, error) {
	var out services.FinalGradingGate
	if err := c.do(ctx, http.MethodGet, idPath("/activities/%d/grading-gate", activityID), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ===== REOPEN REQUESTS =====

func (c *Client) RequestReopen(ctx context.Context, unitID uint, reason string) (*models.ReopenRequest, error) {
	var out models.ReopenRequest
	input := services.ReopenRequestInput{Reason: reason}
	if err := c.do(ctx, http.MethodPost, idPath("/units/%d/reopen-requests", unitID), nil, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ResolveReopen(ctx context.Context, requestID uint, approve bool, note *string) (*models.ReopenRequest, error) {
	var out models.ReopenRequest
	input := services.ResolveReopenInput{Approve: &approve, Note: note}
	if err := c.do(ctx, http.MethodPost, idPath("/reopen-requests/%d/resolve", requestID), nil, input, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListMyReopenRequests(ctx context.Context, limit, offset int) (*services.ReopenRequestList, error) {
	return c.listReopen(ctx, "/reopen-requests/mine", limit, offset)
}

func (c *Client) ListPendingReopenRequests(ctx context.Context, limit, offset int) (*services.ReopenRequestList, error) {
	return c.listReopen(ctx, "/reopen-requests/pending", limit, offset)
}

func (c *Client) listReopen(ctx context.Context, path string, limit, offset int) (*services.ReopenRequestList, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	var out services.ReopenRequestList
	if err := c.do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
