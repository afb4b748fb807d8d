package assistant

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-safe-assist/app/observability/metrics"
	"github.com/FACorreiaa/go-safe-assist/internal/api"
	"github.com/FACorreiaa/go-safe-assist/internal/api/ratelimit"
	"github.com/FACorreiaa/go-safe-assist/internal/types"
)

type AssistantHandler struct {
	assistantService Service
	validate         *validator.Validate
	logger           *slog.Logger
}

func NewAssistantHandler(assistantService Service, logger *slog.Logger) *AssistantHandler {
	return &AssistantHandler{
		assistantService: assistantService,
		validate:         validator.New(),
		logger:           logger,
	}
}

// Query handles POST /api/v1/assistant/query: the full classify → locate →
// route → synthesize pipeline behind a single request/reply shape.
func (h *AssistantHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("AssistantHandler").Start(r.Context(), "Query", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/assistant/query"),
	))
	defer span.End()

	start := time.Now()
	l := h.logger.With(slog.String("handler", "Query"))
	l.DebugContext(ctx, "Assistant query handler invoked")

	var req types.AssistRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.ErrorContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.validate.Struct(req); err != nil {
		l.ErrorContext(ctx, "Request validation failed", slog.Any("error", err))
		msg := "invalid request"
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				if fe.Field() == "Message" {
					msg = "message required"
					break
				}
			}
		}
		api.ErrorResponse(w, r, http.StatusBadRequest, msg)
		return
	}

	// Rate-limit records are keyed by caller identity: an explicit header when
	// the client sends one, otherwise the client IP (RealIP middleware has
	// already rewritten RemoteAddr).
	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		userID = r.RemoteAddr
	}
	ctx = ratelimit.WithUserID(ctx, userID)

	resp, err := h.assistantService.Answer(ctx, req)

	metrics.Get().AssistQueriesTotal.Add(ctx, 1)
	metrics.Get().AssistDurationSeconds.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		var validationErr *types.ValidationError
		var configErr *types.ConfigurationError
		var upstreamErr *types.UpstreamError

		switch {
		case errors.As(err, &validationErr):
			api.ErrorResponse(w, r, http.StatusBadRequest, validationErr.Message)
		case errors.As(err, &configErr):
			l.ErrorContext(ctx, "Configuration error", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "server configuration error")
		case errors.As(err, &upstreamErr):
			// The underlying cause stays in the logs, never in the reply.
			l.ErrorContext(ctx, "Upstream error", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "upstream service error")
		default:
			l.ErrorContext(ctx, "Unexpected error answering query", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	l.InfoContext(ctx, "Assistant query answered", slog.Duration("latency", time.Since(start)))
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}
