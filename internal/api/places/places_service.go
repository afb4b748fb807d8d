package places

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-safe-assist/internal/api/ratelimit"
	"github.com/FACorreiaa/go-safe-assist/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the place-lookup contract. A nil result with a nil error
// means the provider returned zero matches.
type Service interface {
	FindNearest(ctx context.Context, category types.Category, origin types.GeoPoint, lang string) (*types.PlaceResult, error)
}

// Options carries the provider knobs from config.
type Options struct {
	BaseURL     string
	RadiusM     int
	ResultLimit int
	Timeout     time.Duration
}

type ServiceImpl struct {
	logger  *slog.Logger
	client  *http.Client
	opts    Options
	apiKey  func() string
	limiter ratelimit.Store
}

func NewServiceImpl(opts Options, apiKey func() string, limiter ratelimit.Store, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:  logger,
		client:  &http.Client{},
		opts:    opts,
		apiKey:  apiKey,
		limiter: limiter,
	}
}

// Geoapify category identifiers for each assistant category.
var providerCategories = map[types.Category]string{
	types.CategoryHospital:      "healthcare.hospital",
	types.CategoryPharmacy:      "healthcare.pharmacy",
	types.CategoryPoliceStation: "service.police",
}

type featureCollection struct {
	Features []struct {
		Properties struct {
			Name      string   `json:"name"`
			Formatted string   `json:"formatted"`
			Lon       *float64 `json:"lon"`
			Lat       *float64 `json:"lat"`
		} `json:"properties"`
	} `json:"features"`
}

// FindNearest issues a proximity-biased category search and returns the
// provider's best match. HTTP failures propagate; they are not retried here.
func (s *ServiceImpl) FindNearest(ctx context.Context, category types.Category, origin types.GeoPoint, lang string) (*types.PlaceResult, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "FindNearest", trace.WithAttributes(
		attribute.String("category", string(category)),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	providerCategory, ok := providerCategories[category]
	if !ok {
		err := fmt.Errorf("no provider category for %q", category)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unknown category")
		return nil, err
	}

	q := url.Values{}
	q.Set("categories", providerCategory)
	q.Set("filter", fmt.Sprintf("circle:%f,%f,%d", origin.Lon, origin.Lat, s.opts.RadiusM))
	q.Set("bias", fmt.Sprintf("proximity:%f,%f", origin.Lon, origin.Lat))
	q.Set("limit", fmt.Sprintf("%d", s.opts.ResultLimit))
	q.Set("lang", lang)
	q.Set("apiKey", s.apiKey())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.opts.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build places request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Places request failed")
		return nil, fmt.Errorf("places request failed: %w", err)
	}
	defer resp.Body.Close()

	if userID, ok := ratelimit.UserIDFromContext(ctx); ok {
		ratelimit.ReportHeaders(s.limiter, userID, resp.Header)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("places provider returned status %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Places provider error status")
		return nil, err
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode places response")
		return nil, fmt.Errorf("failed to decode places response: %w", err)
	}

	if len(fc.Features) == 0 {
		s.logger.DebugContext(ctx, "no places found", slog.String("category", string(category)))
		span.SetStatus(codes.Ok, "No matches")
		return nil, nil
	}

	props := fc.Features[0].Properties
	place := &types.PlaceResult{
		Name:    props.Name,
		Address: props.Formatted,
	}
	if props.Lon != nil && props.Lat != nil {
		place.Coordinates = &types.GeoPoint{Lon: *props.Lon, Lat: *props.Lat}
	}

	span.SetAttributes(attribute.String("place.name", place.Name))
	span.SetStatus(codes.Ok, "Place found")
	return place, nil
}
