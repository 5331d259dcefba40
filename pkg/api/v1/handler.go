// Package api_v1 binds the three agent-facing tools to HTTP. No raw
// error ever crosses this boundary; everything is rendered as the
// result envelope.
package api_v1

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/hostfleet/gangway/pkg/advisor"
	"github.com/hostfleet/gangway/pkg/dispatch"
	"github.com/hostfleet/gangway/pkg/gate"
	"github.com/hostfleet/gangway/pkg/health"
	"github.com/hostfleet/gangway/pkg/middleware"
	"github.com/hostfleet/gangway/pkg/pipeline"
	"github.com/hostfleet/gangway/pkg/result"
	log "github.com/sirupsen/logrus"
)

type Executor interface {
	Execute(ctx context.Context, req dispatch.Request) (*dispatch.Response, error)
}

type Deployer interface {
	Run(ctx context.Context, job pipeline.Job) (*pipeline.Result, error)
}

type Waiter interface {
	Wait(ctx context.Context, tenant string, timeout, interval time.Duration) *health.Result
}

type Augmenter interface {
	Advisories(ctx context.Context, tenant string) []advisor.Advisory
}

type Handler struct {
	Gate      *gate.Gate
	Executor  Executor
	Deployer  Deployer
	Waiter    Waiter
	Augmenter Augmenter
}

type DeployRequest struct {
	Tenant            string `json:"tenant,omitempty"`
	LocalPath         string `json:"localPath"`
	Build             bool   `json:"build,omitempty"`
	Install           bool   `json:"install,omitempty"`
	WaitHealthy       *bool  `json:"waitHealthy,omitempty"`
	Cleanup           *bool  `json:"cleanup,omitempty"`
	OverrideRatelimit bool   `json:"overrideRatelimit,omitempty"`
	AutoProvision     *bool  `json:"autoProvision,omitempty"`
	HealthTimeoutMs   int64  `json:"healthTimeoutMs,omitempty"`
	HealthIntervalMs  int64  `json:"healthIntervalMs,omitempty"`
}

type ExecuteRequest struct {
	Operation  string `json:"operation"`
	Tenant     string `json:"tenant,omitempty"`
	Structured *bool  `json:"structured,omitempty"`
}

type WaitRequest struct {
	Tenant     string `json:"tenant"`
	TimeoutMs  int64  `json:"timeoutMs,omitempty"`
	IntervalMs int64  `json:"intervalMs,omitempty"`
}

type ExecuteResponse struct {
	Result     json.RawMessage    `json:"result"`
	Advisories []advisor.Advisory `json:"advisories,omitempty"`
}

func (h *Handler) Deploy(w http.ResponseWriter, r *http.Request) {
	logger, correlationID := requestLogger(r)

	request := &DeployRequest{}
	if !decode(w, r, logger, correlationID, request) {
		return
	}

	tenant, err := h.Gate.ResolveTenant(request.Tenant)
	if err == nil && tenant == "" {
		err = result.Errorf(result.CodeExecuteError, "tenant required: no tenant specified and no scoped tenant configured")
	}
	if err != nil {
		render(w, logger, correlationID, nil, err)
		return
	}

	deployResult, err := h.Deployer.Run(r.Context(), pipeline.Job{
		Tenant:            tenant,
		LocalPath:         request.LocalPath,
		Install:           request.Install,
		Build:             request.Build,
		WaitHealthy:       boolDefault(request.WaitHealthy, true),
		Cleanup:           boolDefault(request.Cleanup, true),
		OverrideRateLimit: request.OverrideRatelimit,
		AutoProvision:     boolDefault(request.AutoProvision, true),
		HealthTimeout:     time.Duration(request.HealthTimeoutMs) * time.Millisecond,
		HealthInterval:    time.Duration(request.HealthIntervalMs) * time.Millisecond,
	})
	render(w, logger, correlationID, deployResult, err)
}

func (h *Handler) Execute(w http.ResponseWriter, r *http.Request) {
	logger, correlationID := requestLogger(r)

	request := &ExecuteRequest{}
	if !decode(w, r, logger, correlationID, request) {
		return
	}

	verdict, err := h.Gate.Check(request.Operation, request.Tenant)
	if err != nil {
		render(w, logger, correlationID, nil, err)
		return
	}

	dispatchRequest := dispatch.Request{
		Operation:  request.Operation,
		Structured: boolDefault(request.Structured, true),
	}
	// Only append the tenant when the operation text does not already
	// name one.
	if verdict.ExtractedTenant == "" {
		dispatchRequest.Tenant = verdict.EffectiveTenant
	}

	response, err := h.Executor.Execute(r.Context(), dispatchRequest)
	if err != nil {
		render(w, logger, correlationID, nil, err)
		return
	}

	executeResponse := &ExecuteResponse{}
	if dispatchRequest.Structured {
		executeResponse.Result = response.JSON
	} else {
		raw, _ := json.Marshal(string(response.Raw))
		executeResponse.Result = raw
	}
	if h.Augmenter != nil {
		executeResponse.Advisories = h.Augmenter.Advisories(r.Context(), verdict.EffectiveTenant)
	}

	render(w, logger, correlationID, executeResponse, nil)
}

func (h *Handler) Wait(w http.ResponseWriter, r *http.Request) {
	logger, correlationID := requestLogger(r)

	request := &WaitRequest{}
	if !decode(w, r, logger, correlationID, request) {
		return
	}

	tenant, err := h.Gate.ResolveTenant(request.Tenant)
	if err == nil && tenant == "" {
		err = result.Errorf(result.CodeExecuteError, "tenant required")
	}
	if err != nil {
		render(w, logger, correlationID, nil, err)
		return
	}

	timeout := time.Duration(request.TimeoutMs) * time.Millisecond
	interval := time.Duration(request.IntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = health.DefaultInterval
	}

	waitResult := h.Waiter.Wait(r.Context(), tenant, timeout, interval)
	render(w, logger, correlationID, waitResult, nil)
}

func requestLogger(r *http.Request) (*log.Entry, string) {
	correlationID := uuid.NewString()
	logger := log.WithFields(middleware.RequestLogFields(r)).WithField("correlationID", correlationID)
	return logger, correlationID
}

func decode(w http.ResponseWriter, r *http.Request, logger *log.Entry, correlationID string, into any) bool {
	if err := json.NewDecoder(r.Body).Decode(into); err != nil {
		logger.Errorf("unable to unmarshal request body: %s", err)
		envelope := result.Failure(result.Errorf(result.CodeExecuteError, "unable to unmarshal request body: %s", err))
		envelope.CorrelationID = correlationID
		writeJSON(w, http.StatusBadRequest, envelope)
		return false
	}
	return true
}

func render(w http.ResponseWriter, logger *log.Entry, correlationID string, data any, err error) {
	if err != nil {
		logger.Errorf("request failed: %s", err)
		envelope := result.Failure(err)
		envelope.CorrelationID = correlationID
		writeJSON(w, statusCode(result.ErrorCode(err)), envelope)
		return
	}

	envelope, marshalErr := result.Success(data)
	if marshalErr != nil {
		logger.Errorf("unable to marshal response: %s", marshalErr)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	envelope.CorrelationID = correlationID
	writeJSON(w, http.StatusOK, envelope)
}

func writeJSON(w http.ResponseWriter, status int, envelope *result.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(envelope)
}

// statusCode maps boundary error codes onto HTTP statuses: pre-flight
// rejections are the caller's fault, remote failures are gateway errors.
func statusCode(code result.Code) int {
	switch code {
	case result.CodeInvalidPath:
		return http.StatusBadRequest
	case result.CodeForbiddenCommand, result.CodeOperatorOnly, result.CodeCrossTenantBlocked, result.CodePermissionDenied:
		return http.StatusForbidden
	case result.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func boolDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
