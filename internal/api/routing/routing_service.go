package routing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-safe-assist/internal/api/ratelimit"
	"github.com/FACorreiaa/go-safe-assist/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service defines the route-planning contract. A nil result with a nil error
// means the provider yielded no route.
type Service interface {
	PlanRoute(ctx context.Context, origin, destination types.GeoPoint) (*types.RouteResult, error)
}

type Options struct {
	BaseURL string
	Profile string
	Timeout time.Duration
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

type directionsRequest struct {
	Coordinates  [][2]float64 `json:"coordinates"`
	Instructions bool         `json:"instructions"`
}

type directionsResponse struct {
	Routes []struct {
		Summary struct {
			Duration float64 `json:"duration"`
		} `json:"summary"`
		Segments []struct {
			Steps []struct {
				Instruction string `json:"instruction"`
			} `json:"steps"`
		} `json:"segments"`
	} `json:"routes"`
}

// PlanRoute requests a driving route with step instructions and extracts the
// first route's first leg.
func (s *ServiceImpl) PlanRoute(ctx context.Context, origin, destination types.GeoPoint) (*types.RouteResult, error) {
	ctx, span := otel.Tracer("RoutingService").Start(ctx, "PlanRoute")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	body, err := json.Marshal(directionsRequest{
		Coordinates:  [][2]float64{{origin.Lon, origin.Lat}, {destination.Lon, destination.Lat}},
		Instructions: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal directions request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s", s.opts.BaseURL, s.opts.Profile)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build directions request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.apiKey())

	resp, err := s.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Directions request failed")
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	if userID, ok := ratelimit.UserIDFromContext(ctx); ok {
		ratelimit.ReportHeaders(s.limiter, userID, resp.Header)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("routing provider returned status %d", resp.StatusCode)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Routing provider error status")
		return nil, err
	}

	var dr directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to decode directions response")
		return nil, fmt.Errorf("failed to decode directions response: %w", err)
	}

	if len(dr.Routes) == 0 {
		s.logger.DebugContext(ctx, "no route found")
		span.SetStatus(codes.Ok, "No route")
		return nil, nil
	}

	route := dr.Routes[0]
	result := &types.RouteResult{
		DurationMinutes: minutesFromSeconds(route.Summary.Duration),
	}
	if len(route.Segments) > 0 {
		for _, step := range route.Segments[0].Steps {
			if step.Instruction == "" {
				continue
			}
			result.Steps = append(result.Steps, step.Instruction)
		}
	}

	span.SetStatus(codes.Ok, "Route planned")
	return result, nil
}

// minutesFromSeconds converts a provider duration to whole minutes, never
// reporting less than one minute so very short trips don't read as "0 minutes".
func minutesFromSeconds(seconds float64) int {
	minutes := int(math.Round(seconds / 60))
	if minutes < 1 {
		return 1
	}
	return minutes
}
