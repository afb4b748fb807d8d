package assistant

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-safe-assist/app/observability/metrics"
	"github.com/FACorreiaa/go-safe-assist/config"
	generativeAI "github.com/FACorreiaa/go-safe-assist/internal/api/generative_ai"
	"github.com/FACorreiaa/go-safe-assist/internal/api/intent"
	"github.com/FACorreiaa/go-safe-assist/internal/api/places"
	"github.com/FACorreiaa/go-safe-assist/internal/api/ratelimit"
	"github.com/FACorreiaa/go-safe-assist/internal/api/routing"
	"github.com/FACorreiaa/go-safe-assist/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service is the query orchestrator: it sequences classification, lookup,
// routing and synthesis, and maps every failure mode to the error taxonomy.
type Service interface {
	Answer(ctx context.Context, req types.AssistRequest) (*types.AssistResponse, error)
}

type ServiceImpl struct {
	logger    *slog.Logger
	places    places.Service
	routing   routing.Service
	generator generativeAI.Generator
	limiter   ratelimit.Store
	loadKeys  func() config.ProviderKeys
}

func NewServiceImpl(
	placesService places.Service,
	routingService routing.Service,
	generator generativeAI.Generator,
	limiter ratelimit.Store,
	loadKeys func() config.ProviderKeys,
	logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		logger:    logger,
		places:    placesService,
		routing:   routingService,
		generator: generator,
		limiter:   limiter,
		loadKeys:  loadKeys,
	}
}

func (s *ServiceImpl) Answer(ctx context.Context, req types.AssistRequest) (*types.AssistResponse, error) {
	ctx, span := otel.Tracer("AssistantService").Start(ctx, "Answer")
	defer span.End()

	l := s.logger.With(slog.String("service", "Answer"))

	if strings.TrimSpace(req.Message) == "" {
		return nil, types.NewValidationError("message required")
	}

	keys := s.loadKeys()
	if missing := keys.Missing(); len(missing) > 0 {
		l.ErrorContext(ctx, "provider credentials missing", slog.Any("missing", missing))
		span.SetStatus(codes.Error, "Missing configuration")
		return nil, &types.ConfigurationError{Missing: missing}
	}

	classified := intent.Classify(req.Message)
	span.SetAttributes(attribute.String("intent.kind", string(classified.Kind)))

	lang := req.Lang
	if lang == "" {
		lang = "en"
	}

	// Conversational branch: no lookup, no location needed.
	if classified.Kind != intent.KindCategory {
		reply := s.synthesize(ctx, conversationalPrompt(req.Message), fallbackConversational)
		return &types.AssistResponse{Reply: reply}, nil
	}

	if !req.HasLocation() {
		return nil, types.NewValidationError("location required")
	}
	origin := types.GeoPoint{Lon: *req.Longitude, Lat: *req.Latitude}

	s.checkQuota(ctx, l)

	lookupStart := time.Now()
	place, err := s.places.FindNearest(ctx, classified.Category, origin, lang)
	metrics.Get().UpstreamCallDurationSecs.Record(ctx, time.Since(lookupStart).Seconds(),
		metric.WithAttributes(attribute.String("provider", "places")))
	if err != nil {
		l.ErrorContext(ctx, "place lookup failed", slog.Any("error", err))
		metrics.Get().UpstreamCallErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Place lookup failed")
		return nil, &types.UpstreamError{Provider: "places", Err: err}
	}

	// Zero matches is a successful response with negative content, not an error.
	if place == nil {
		return &types.AssistResponse{Reply: noResultsReply}, nil
	}

	assistCtx := types.AssistContext{
		Message:  req.Message,
		Category: classified.Category,
		Place:    place,
	}

	// Routing is best effort: a failed or impossible route lookup degrades the
	// reply to place facts only, it never aborts the request.
	if place.Coordinates != nil {
		routeStart := time.Now()
		route, err := s.routing.PlanRoute(ctx, origin, *place.Coordinates)
		metrics.Get().UpstreamCallDurationSecs.Record(ctx, time.Since(routeStart).Seconds(),
			metric.WithAttributes(attribute.String("provider", "routing")))
		if err != nil {
			l.WarnContext(ctx, "route planning failed, replying without directions", slog.Any("error", err))
			metrics.Get().UpstreamCallErrorsTotal.Add(ctx, 1)
		} else {
			assistCtx.Route = route
		}
	}

	reply := s.synthesize(ctx, informationalPrompt(assistCtx), fallbackInformational)
	return &types.AssistResponse{Reply: reply}, nil
}

// synthesize calls the generation provider and degrades to the given fallback
// string on any failure or empty response. It never returns an error: absence
// of a usable message is not a failure of the request.
func (s *ServiceImpl) synthesize(ctx context.Context, prompt, fallback string) string {
	generateStart := time.Now()
	text, err := s.generator.GenerateContent(ctx, prompt)
	metrics.Get().UpstreamCallDurationSecs.Record(ctx, time.Since(generateStart).Seconds(),
		metric.WithAttributes(attribute.String("provider", "generation")))
	if err != nil {
		s.logger.ErrorContext(ctx, "generation failed, using fallback", slog.Any("error", err))
		metrics.Get().GenerationFallbacksTotal.Add(ctx, 1)
		return fallback
	}
	if strings.TrimSpace(text) == "" {
		s.logger.WarnContext(ctx, "generation returned empty text, using fallback")
		metrics.Get().GenerationFallbacksTotal.Add(ctx, 1)
		return fallback
	}
	return text
}

// checkQuota is bookkeeping only: the service mirrors upstream-reported quotas
// and warns when a tracked user is close to exhaustion. A missing record means
// the user is not yet tracked, never that the limit is spent.
func (s *ServiceImpl) checkQuota(ctx context.Context, l *slog.Logger) {
	userID, ok := ratelimit.UserIDFromContext(ctx)
	if !ok {
		return
	}
	rec, found := s.limiter.Get(userID)
	if !found {
		return
	}
	if rec.Limit > 0 && rec.Remaining*10 < rec.Limit {
		l.WarnContext(ctx, "user close to upstream rate limit",
			slog.String("user_id", userID),
			slog.Int("remaining", rec.Remaining),
			slog.Int("limit", rec.Limit),
		)
	}
}
