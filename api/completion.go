package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/portalgpt/errors"
	"github.com/kbukum/portalgpt/llm"
	"github.com/kbukum/portalgpt/logger"
	"github.com/kbukum/portalgpt/resilience"
	"github.com/kbukum/portalgpt/server"
	"github.com/kbukum/portalgpt/validation"
)

// CompletionsPath is the route Register mounts.
const CompletionsPath = "/v1/completions"

// Completer is the orchestrator surface the handler needs.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (llm.Result, error)
	CompleteWith(ctx context.Context, backend string, req llm.CompletionRequest) (llm.Result, error)
}

type completionBody struct {
	Backend     string         `json:"backend"`
	Prompt      string         `json:"prompt" validate:"notblank"`
	Schema      map[string]any `json:"schema"`
	Model       string         `json:"model"`
	Temperature *float64       `json:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   int            `json:"max_tokens" validate:"gte=0"`
	TimeoutMS   int64          `json:"timeout_ms" validate:"gte=0"`
	Options     map[string]any `json:"options"`
}

func (b completionBody) request() llm.CompletionRequest {
	return llm.CompletionRequest{
		Prompt:      b.Prompt,
		Schema:      b.Schema,
		Model:       b.Model,
		Temperature: b.Temperature,
		MaxTokens:   b.MaxTokens,
		Timeout:     time.Duration(b.TimeoutMS) * time.Millisecond,
		Options:     b.Options,
	}
}

// CompletionHandler serves POST /v1/completions.
type CompletionHandler struct {
	completer Completer
	bulkhead  *resilience.Bulkhead
	log       *logger.Logger
}

// NewCompletionHandler bounds in-flight completions at maxConcurrent; excess
// requests are rejected with 503 rather than queued.
func NewCompletionHandler(completer Completer, maxConcurrent int, log *logger.Logger) *CompletionHandler {
	if log == nil {
		log = logger.Get("api")
	}
	return &CompletionHandler{
		completer: completer,
		bulkhead:  resilience.NewBulkhead(resilience.BulkheadConfig{Name: "completions", MaxConcurrent: maxConcurrent}),
		log:       log,
	}
}

// Register mounts the handler. Route-level middleware such as auth goes in
// mw.
func (h *CompletionHandler) Register(r gin.IRouter, mw ...gin.HandlerFunc) {
	r.POST(CompletionsPath, append(mw, h.Handle)...)
}

func (h *CompletionHandler) Handle(c *gin.Context) {
	var body completionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		server.RespondWithError(c, bindError(err))
		return
	}
	if err := validation.Validate(body); err != nil {
		server.RespondWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	start := time.Now()
	var result llm.Result
	err := h.bulkhead.Execute(ctx, func() error {
		var err error
		if body.Backend != "" {
			result, err = h.completer.CompleteWith(ctx, body.Backend, body.request())
		} else {
			result, err = h.completer.Complete(ctx, body.request())
		}
		return err
	})
	if err != nil {
		appErr := toAppError(err, body.Backend)
		h.log.WithContext(ctx).Warn("completion failed", logger.Fields(
			logger.FieldProvider, body.Backend,
			"code", string(appErr.Code),
			logger.FieldDuration, time.Since(start).Milliseconds(),
		))
		server.RespondWithError(c, appErr)
		return
	}

	h.log.WithContext(ctx).Debug("completion served", logger.Fields(
		logger.FieldProvider, body.Backend,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	server.RespondOK(c, result)
}

func bindError(err error) *errors.AppError {
	var maxErr *http.MaxBytesError
	if stderrors.As(err, &maxErr) {
		return errors.New(errors.ErrCodeInvalidInput, "Request body too large.", http.StatusRequestEntityTooLarge)
	}
	return errors.InvalidInput("body", "request body must be a JSON object").WithCause(err)
}

func toAppError(err error, backend string) *errors.AppError {
	if f, ok := llm.AsFailure(err); ok {
		return f.AppError()
	}
	switch {
	case stderrors.Is(err, resilience.ErrBulkheadFull):
		return errors.ServiceUnavailable("completion service").WithCause(err)
	case stderrors.Is(err, llm.ErrUnknownBackend):
		return errors.NotFound("backend", backend).WithCause(err)
	case stderrors.Is(err, llm.ErrNoBackends):
		return errors.ServiceUnavailable("completion service").WithCause(err)
	case stderrors.Is(err, context.Canceled):
		return errors.Canceled("completion")
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.Timeout("completion")
	}
	return errors.From(err)
}
