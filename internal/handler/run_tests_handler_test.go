package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-checker-api/internal/config"
	"github.com/noah-isme/gema-checker-api/internal/dto"
	"github.com/noah-isme/gema-checker-api/internal/handler"
	"github.com/noah-isme/gema-checker-api/internal/middleware"
	"github.com/noah-isme/gema-checker-api/internal/router"
	"github.com/noah-isme/gema-checker-api/internal/service"
)

func setupRunTestsApp(t *testing.T, cfg config.Config) *fiber.App {
	t.Helper()

	logger := zerolog.New(io.Discard)
	svc := service.NewRunTestsService(service.NewValidator(), logger)

	app := fiber.New(cfg.FiberConfig())
	router.Register(app, cfg, router.Dependencies{
		RunTestsHandler: handler.NewRunTestsHandler(svc, logger),
	})
	return app
}

func setupObservedApp(t *testing.T, cfg config.Config) *fiber.App {
	t.Helper()

	logger := zerolog.New(io.Discard)
	svc := service.NewRunTestsService(service.NewValidator(), logger)

	app := fiber.New(cfg.FiberConfig())
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		RunTestsHandler: handler.NewRunTestsHandler(svc, logger),
		EnableMetrics:   true,
	})
	return app
}

func postRunTests(t *testing.T, app *fiber.App, body string) *http.Response {
	t.Helper()
	return postRunTestsWithHeaders(t, app, body, nil)
}

func postRunTestsWithHeaders(t *testing.T, app *fiber.App, body string, headers map[string]string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/run-tests", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// scrapeMetrics returns every sample on /metrics keyed by `name{labels}`.
func scrapeMetrics(t *testing.T, app *fiber.App) map[string]float64 {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	samples := make(map[string]float64)
	for _, line := range strings.Split(string(raw), "\n") {
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.LastIndex(line, " ")
		require.Positive(t, idx, line)
		value, err := strconv.ParseFloat(line[idx+1:], 64)
		require.NoError(t, err, line)
		samples[line[:idx]] = value
	}
	return samples
}

func decodeBody(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func TestRunTestsHandler_StaticChecksFallback(t *testing.T) {
	app := setupRunTestsApp(t, config.Config{AppName: "Test"})

	resp := postRunTests(t, app, `{"user_code":"fn main() {}","tests":"#[test] fn t() {}","exercise_id":"ex-1"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload dto.RunTestsResponse
	decodeBody(t, resp, &payload)
	require.True(t, payload.Success)
	require.Equal(t, []dto.TestResult{{Name: "static_checks", Pass: true, Message: "Static checks passed."}}, payload.Results)
}

func TestRunTestsHandler_ChecksInOrder(t *testing.T) {
	app := setupRunTestsApp(t, config.Config{AppName: "Test"})

	body := `{
		"user_code": "fn add(a,b){a+b}",
		"tests": "t",
		"exercise_id": "ex-add",
		"lesson_id": "l1",
		"lesson_title": "Functions",
		"checks": {"must_include": ["fn add", "return"], "must_not_include": ["todo!"]}
	}`
	resp := postRunTests(t, app, body)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload dto.RunTestsResponse
	decodeBody(t, resp, &payload)
	require.False(t, payload.Success)
	require.Equal(t, []dto.TestResult{
		{Name: "must include: fn add", Pass: true, Message: "ok"},
		{Name: "must include: return", Pass: false, Message: "Missing required snippet: return"},
		{Name: "must not include: todo!", Pass: true, Message: "ok"},
	}, payload.Results)
}

func TestRunTestsHandler_PlaceholderOmitsReservedFields(t *testing.T) {
	app := setupRunTestsApp(t, config.Config{AppName: "Test"})

	resp := postRunTests(t, app, `{"user_code":"todo!()","tests":"t","exercise_id":"ex"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var payload map[string]interface{}
	decodeBody(t, resp, &payload)
	require.Equal(t, false, payload["success"])
	require.NotContains(t, payload, "raw_output")
	require.NotContains(t, payload, "notes")

	results := payload["results"].([]interface{})
	require.Len(t, results, 1)
	first := results[0].(map[string]interface{})
	require.Equal(t, "no_todo", first["name"])
	require.Equal(t, false, first["pass"])
	require.Equal(t, "Replace todo! with working Rust code.", first["message"])
}

func TestRunTestsHandler_MissingFields(t *testing.T) {
	app := setupRunTestsApp(t, config.Config{AppName: "Test"})

	cases := []struct {
		name     string
		body     string
		expected string
	}{
		{name: "absent user code", body: `{"tests":"t","exercise_id":"ex"}`, expected: "missing field: userCode"},
		{name: "blank user code wins", body: `{"user_code":"   ","tests":"","exercise_id":""}`, expected: "missing field: userCode"},
		{name: "blank tests", body: `{"user_code":"x","tests":"\n\t","exercise_id":""}`, expected: "missing field: tests"},
		{name: "blank exercise", body: `{"user_code":"x","tests":"t","exercise_id":" "}`, expected: "missing field: exerciseId"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postRunTests(t, app, tc.body)
			require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

			var payload map[string]interface{}
			decodeBody(t, resp, &payload)
			require.Equal(t, false, payload["success"])
			require.Equal(t, tc.expected, payload["error"])
		})
	}
}

func TestRunTestsHandler_InvalidBody(t *testing.T) {
	app := setupRunTestsApp(t, config.Config{AppName: "Test"})

	resp := postRunTests(t, app, `{"user_code":`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var payload map[string]interface{}
	decodeBody(t, resp, &payload)
	require.Equal(t, "invalid request body", payload["error"])
}

func TestRunTestsHandler_RateLimited(t *testing.T) {
	app := setupRunTestsApp(t, config.Config{AppName: "Test", RateLimitMax: 1, RateLimitWindow: time.Minute})

	body := `{"user_code":"x","tests":"t","exercise_id":"ex"}`
	first := postRunTests(t, app, body)
	require.Equal(t, fiber.StatusOK, first.StatusCode)

	second := postRunTests(t, app, body)
	require.Equal(t, fiber.StatusTooManyRequests, second.StatusCode)
}

func TestRunTestsRouteRejectsGet(t *testing.T) {
	app := setupRunTestsApp(t, config.Config{AppName: "Test"})

	req := httptest.NewRequest(http.MethodGet, "/api/run-tests", strings.NewReader(""))
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusMethodNotAllowed, resp.StatusCode)
}

func TestRunTestsHandler_NullSnippetRejected(t *testing.T) {
	app := setupRunTestsApp(t, config.Config{AppName: "Test"})

	resp := postRunTests(t, app, `{"user_code":"x","tests":"t","exercise_id":"ex","checks":{"must_include":[null]}}`)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	var payload map[string]interface{}
	decodeBody(t, resp, &payload)
	require.Equal(t, "invalid request body", payload["error"])
}

func TestRunTestsHandler_DefaultConfigDoesNotLimit(t *testing.T) {
	app := setupRunTestsApp(t, config.Config{AppName: "Test"})

	body := `{"user_code":"x","tests":"t","exercise_id":"ex"}`
	for i := 0; i < 130; i++ {
		resp := postRunTests(t, app, body)
		require.Equal(t, fiber.StatusOK, resp.StatusCode, "request %d", i+1)
	}
}

func TestRunTestsHandler_RateLimitKeyedByProxyHeader(t *testing.T) {
	app := setupRunTestsApp(t, config.Config{
		AppName:         "Test",
		RateLimitMax:    1,
		RateLimitWindow: time.Minute,
		ProxyHeader:     fiber.HeaderXForwardedFor,
	})

	body := `{"user_code":"x","tests":"t","exercise_id":"ex"}`
	for _, learner := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		resp := postRunTestsWithHeaders(t, app, body, map[string]string{fiber.HeaderXForwardedFor: learner})
		require.Equal(t, fiber.StatusOK, resp.StatusCode, learner)
	}

	resp := postRunTestsWithHeaders(t, app, body, map[string]string{fiber.HeaderXForwardedFor: "203.0.113.1"})
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestRunTestsHandler_Metrics(t *testing.T) {
	app := setupObservedApp(t, config.Config{AppName: "Test"})

	const (
		postOK       = `http_requests_total{method="POST",route="/api/run-tests",status="200"}`
		postRejected = `http_requests_total{method="POST",route="/api/run-tests",status="400"}`
		errRejected  = `http_errors_total{method="POST",route="/api/run-tests",status="400"}`
		passed       = `run_tests_total{outcome="passed"}`
		failed       = `run_tests_total{outcome="failed"}`
		rejected     = `run_tests_total{outcome="rejected"}`
		staticPassed = `check_results_total{kind="static_checks",outcome="passed"}`
		noTodoFailed = `check_results_total{kind="no_todo",outcome="failed"}`
		includeOK    = `check_results_total{kind="must_include",outcome="passed"}`
		excludeFail  = `check_results_total{kind="must_not_include",outcome="failed"}`
	)

	before := scrapeMetrics(t, app)

	require.Equal(t, fiber.StatusOK, postRunTests(t, app, `{"user_code":"fn main() {}","tests":"t","exercise_id":"ex"}`).StatusCode)
	require.Equal(t, fiber.StatusOK, postRunTests(t, app, `{"user_code":"todo!()","tests":"t","exercise_id":"ex","checks":{"must_include":["todo"],"must_not_include":["todo!"]}}`).StatusCode)
	require.Equal(t, fiber.StatusBadRequest, postRunTests(t, app, `{"user_code":" ","tests":"t","exercise_id":"ex"}`).StatusCode)

	// Later requests with other methods must not rewrite earlier label values.
	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/run-tests", nil), -1)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusMethodNotAllowed, resp.StatusCode)
	}

	after := scrapeMetrics(t, app)
	delta := func(key string) float64 { return after[key] - before[key] }

	require.Equal(t, float64(2), delta(postOK))
	require.Equal(t, float64(1), delta(postRejected))
	require.Equal(t, float64(1), delta(errRejected))
	require.Equal(t, float64(1), delta(passed))
	require.Equal(t, float64(1), delta(failed))
	require.Equal(t, float64(1), delta(rejected))
	require.Equal(t, float64(1), delta(staticPassed))
	require.Equal(t, float64(1), delta(noTodoFailed))
	require.Equal(t, float64(1), delta(includeOK))
	require.Equal(t, float64(1), delta(excludeFail))

	methods := map[string]bool{`method="GET"`: true, `method="POST"`: true}
	for key := range after {
		if !strings.HasPrefix(key, "http_requests_total{") {
			continue
		}
		label := strings.SplitN(strings.TrimPrefix(key, "http_requests_total{"), ",", 2)[0]
		require.True(t, methods[label], "unexpected method label in %s", key)
	}
}
