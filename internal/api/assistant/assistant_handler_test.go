package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-safe-assist/app/observability/metrics"
	"github.com/FACorreiaa/go-safe-assist/internal/api/ratelimit"
	"github.com/FACorreiaa/go-safe-assist/internal/types"
)

// MockAssistantService is a mock implementation of Service
type MockAssistantService struct {
	mock.Mock
}

func (m *MockAssistantService) Answer(ctx context.Context, req types.AssistRequest) (*types.AssistResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AssistResponse), args.Error(1)
}

func setupAssistantHandlerTest() (*AssistantHandler, *MockAssistantService) {
	metrics.InitAppMetrics()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	mockService := new(MockAssistantService)
	return NewAssistantHandler(mockService, logger), mockService
}

func postQuery(t *testing.T, handler *AssistantHandler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/query", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	handler.Query(rr, req)
	return rr
}

func TestQueryHandler(t *testing.T) {
	t.Run("successful reply", func(t *testing.T) {
		handler, mockService := setupAssistantHandlerTest()
		mockService.On("Answer", mock.Anything, mock.Anything).Return(&types.AssistResponse{Reply: "Hello!"}, nil).Once()

		rr := postQuery(t, handler, `{"message": "hi there"}`, nil)

		assert.Equal(t, http.StatusOK, rr.Code)
		var resp types.AssistResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
		assert.Equal(t, "Hello!", resp.Reply)
	})

	t.Run("missing message is 400", func(t *testing.T) {
		handler, mockService := setupAssistantHandlerTest()

		rr := postQuery(t, handler, `{"message": ""}`, nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "message required")
		mockService.AssertNotCalled(t, "Answer")
	})

	t.Run("empty body is 400", func(t *testing.T) {
		handler, mockService := setupAssistantHandlerTest()

		rr := postQuery(t, handler, ``, nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "Answer")
	})

	t.Run("location validation error is 400", func(t *testing.T) {
		handler, mockService := setupAssistantHandlerTest()
		mockService.On("Answer", mock.Anything, mock.Anything).Return(nil, types.NewValidationError("location required")).Once()

		rr := postQuery(t, handler, `{"message": "find nearest hospital"}`, nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "location required")
	})

	t.Run("configuration error is 500", func(t *testing.T) {
		handler, mockService := setupAssistantHandlerTest()
		mockService.On("Answer", mock.Anything, mock.Anything).Return(nil, &types.ConfigurationError{Missing: []string{"GEOAPIFY_API_KEY"}}).Once()

		rr := postQuery(t, handler, `{"message": "find nearest hospital", "latitude": 12.9, "longitude": 77.6}`, nil)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		// The missing variable name is logged, not echoed.
		assert.NotContains(t, rr.Body.String(), "GEOAPIFY_API_KEY")
	})

	t.Run("upstream error is 500 without cause detail", func(t *testing.T) {
		handler, mockService := setupAssistantHandlerTest()
		mockService.On("Answer", mock.Anything, mock.Anything).Return(nil, &types.UpstreamError{Provider: "places", Err: assert.AnError}).Once()

		rr := postQuery(t, handler, `{"message": "find nearest hospital", "latitude": 12.9, "longitude": 77.6}`, nil)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		assert.Contains(t, rr.Body.String(), "upstream service error")
		assert.NotContains(t, rr.Body.String(), assert.AnError.Error())
	})

	t.Run("user identity reaches the service context", func(t *testing.T) {
		handler, mockService := setupAssistantHandlerTest()
		var gotUserID string
		mockService.On("Answer", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			gotUserID, _ = ratelimit.UserIDFromContext(args.Get(0).(context.Context))
		}).Return(&types.AssistResponse{Reply: "ok"}, nil).Once()

		postQuery(t, handler, `{"message": "hi"}`, map[string]string{"X-User-ID": "user-42"})

		assert.Equal(t, "user-42", gotUserID)
	})

	t.Run("out-of-range coordinates are 400", func(t *testing.T) {
		handler, mockService := setupAssistantHandlerTest()

		rr := postQuery(t, handler, `{"message": "find nearest hospital", "latitude": 950, "longitude": 77.6}`, nil)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertNotCalled(t, "Answer")
	})
}
