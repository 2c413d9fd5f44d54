package testutil

import (
	"authsession/internal/config"
	"authsession/internal/middlewares"
	"authsession/internal/mocks"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/mock/gomock"
)

// TestContext holds everything needed for testing
type TestContext struct {
	AppContext     *middlewares.AppContext
	Request        *http.Request
	Response       *httptest.ResponseRecorder
	MockController *gomock.Controller
	MockSession    *mocks.MockSessionController
	MockFrame      *mocks.MockRenewalFrame
	MockNavigator  *mocks.MockNavigationProvider
	LogHandler     *TestLogHandler
}

// NewTestContext creates a test context for a request without a body.
func NewTestContext(t *testing.T, method, url string) *TestContext {
	return NewTestContextWithBody(t, method, url, nil)
}

// NewTestContextWithBody creates a complete test setup with sensible defaults
func NewTestContextWithBody(t *testing.T, method, url string, body io.Reader) *TestContext {
	cfg := &config.Config{
		Server:  config.DefaultServerConfig,
		Session: config.DefaultSessionConfig,
	}
	cfg.Server.ExternalURL = "https://app.example.com"

	logHandler := NewTestLogHandler()
	logger := slog.New(logHandler)

	ctrl := gomock.NewController(t)

	mockSession := mocks.NewMockSessionController(ctrl)
	mockFrame := mocks.NewMockRenewalFrame(ctrl)
	mockNavigator := mocks.NewMockNavigationProvider(ctrl)

	req := httptest.NewRequest(method, url, body)
	rr := httptest.NewRecorder()

	appCtx := &middlewares.AppContext{
		Context:   req.Context(),
		Config:    cfg,
		Logger:    logger,
		Session:   mockSession,
		Frame:     mockFrame,
		Navigator: mockNavigator,
		Request:   req,
		Response:  rr,
	}

	return &TestContext{
		AppContext:     appCtx,
		Request:        req,
		Response:       rr,
		MockController: ctrl,
		MockSession:    mockSession,
		MockFrame:      mockFrame,
		MockNavigator:  mockNavigator,
		LogHandler:     logHandler,
	}
}

// NewTestContextWithJSON creates a test context whose request body is payload encoded as JSON.
func NewTestContextWithJSON(t *testing.T, method, url string, payload any) *TestContext {
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Could not encode request body: %v", err)
	}

	tc := NewTestContextWithBody(t, method, url, strings.NewReader(string(body)))
	tc.Request.Header.Set("Content-Type", "application/json")
	return tc
}

// Finish should be called at the end of tests to clean up mocks
func (tc *TestContext) Finish() {
	if tc.MockController != nil {
		tc.MockController.Finish()
	}
}

func (tc *TestContext) AssertLogContains(t *testing.T, level slog.Level, message string) {
	if !tc.LogHandler.ContainsMessage(level, message) {
		t.Errorf("Expected to find log entry with level %v containing message: %s", level, message)
	}
}

func (tc *TestContext) AssertLogCount(t *testing.T, level slog.Level, expectedCount int) {
	count := tc.LogHandler.CountByLevel(level)
	if count != expectedCount {
		t.Errorf("Expected %d log entries at level %v, got %d", expectedCount, level, count)
	}
}

func (tc *TestContext) GetLogRecords() []TestLogRecord {
	return tc.LogHandler.GetRecords()
}

// CallHandler executes a handler with the test context
func (tc *TestContext) CallHandler(handler middlewares.AppHandler) {
	handler(tc.AppContext)
}

// ServeWithAppContext runs h behind the AppContext middleware, as the router would.
func (tc *TestContext) ServeWithAppContext(h http.Handler) {
	middlewares.AppContextMiddleware(tc.AppContext)(h).ServeHTTP(tc.Response, tc.Request)
}

// AssertStatus checks the HTTP status code
func (tc *TestContext) AssertStatus(t *testing.T, expectedStatus int) {
	if tc.Response.Code != expectedStatus {
		t.Errorf("Expected status %d, got %d", expectedStatus, tc.Response.Code)
	}
}

// AssertContentType checks the content type header
func (tc *TestContext) AssertContentType(t *testing.T, expectedType string) {
	if ct := tc.Response.Header().Get("Content-Type"); ct != expectedType {
		t.Errorf("Expected content type %s, got %s", expectedType, ct)
	}
}

// AssertLocationHeader checks the redirect target
func (tc *TestContext) AssertLocationHeader(t *testing.T, expected string) {
	if location := tc.Response.Header().Get("Location"); location != expected {
		t.Errorf("Expected Location %q, got %q", expected, location)
	}
}

// GetJSONResponse parses the response body as JSON
func (tc *TestContext) GetJSONResponse(t *testing.T) map[string]interface{} {
	var response map[string]interface{}
	if err := json.Unmarshal(tc.Response.Body.Bytes(), &response); err != nil {
		t.Fatalf("Could not parse JSON response: %v", err)
	}
	return response
}

func (tc *TestContext) AssertJSONBool(t *testing.T, field string, expected bool) {
	response := tc.GetJSONResponse(t)
	actual, exists := response[field]

	if !exists {
		t.Errorf("Field %s not found in response", field)
		return
	}

	actualBool, ok := actual.(bool)
	if !ok {
		t.Errorf("Expected %s to be a boolean, got %T", field, actual)
		return
	}

	if actualBool != expected {
		t.Errorf("Expected %s to be %v, got %v", field, expected, actualBool)
	}
}

// AssertJSONString checks a specific string field in a JSON response
func (tc *TestContext) AssertJSONString(t *testing.T, field string, expected string) {
	response := tc.GetJSONResponse(t)
	actual, exists := response[field]

	if !exists {
		t.Errorf("Field %s not found in response", field)
		return
	}

	actualString, ok := actual.(string)
	if !ok {
		t.Errorf("Expected %s to be a string, got %T", field, actual)
		return
	}

	if actualString != expected {
		t.Errorf("Expected %s to be %q, got %q", field, expected, actualString)
	}
}

// AssertJSONMissing checks that field is absent from the JSON response
func (tc *TestContext) AssertJSONMissing(t *testing.T, field string) {
	response := tc.GetJSONResponse(t)
	if value, exists := response[field]; exists {
		t.Errorf("Expected %s to be absent, got %v", field, value)
	}
}

// WithConfig allows you to override the default config for specific tests
func (tc *TestContext) WithConfig(cfg *config.Config) *TestContext {
	tc.AppContext.Config = cfg
	return tc
}

// Helper to add query parameters to the request
func (tc *TestContext) WithQueryParam(key, value string) *TestContext {
	q := tc.Request.URL.Query()
	q.Add(key, value)
	tc.Request.URL.RawQuery = q.Encode()
	return tc
}

// Helper to add headers
func (tc *TestContext) WithHeader(key, value string) *TestContext {
	tc.Request.Header.Set(key, value)
	return tc
}

// WithContext replaces the request context, e.g. to cancel it.
func (tc *TestContext) WithContext(ctx context.Context) *TestContext {
	tc.Request = tc.Request.WithContext(ctx)
	tc.AppContext.Request = tc.Request
	tc.AppContext.Context = ctx
	return tc
}

// ExpectNoPendingNavigation sets up an expectation for Navigator.TakePending() with nothing queued
func (tc *TestContext) ExpectNoPendingNavigation() *gomock.Call {
	return tc.MockNavigator.EXPECT().TakePending().Return("", false)
}
