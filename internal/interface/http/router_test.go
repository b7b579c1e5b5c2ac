package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/cyclegpt/internal/domain/chat"
	"github.com/yanqian/cyclegpt/internal/domain/cycle"
	"github.com/yanqian/cyclegpt/internal/domain/dashboard"
	"github.com/yanqian/cyclegpt/internal/infra/chart"
	"github.com/yanqian/cyclegpt/internal/infra/config"
	apperrors "github.com/yanqian/cyclegpt/pkg/errors"
)

func TestRouter_PredictSuccess(t *testing.T) {
	svc := &stubCycleService{
		predictFn: func(ctx context.Context, userID int64) (cycle.Prediction, error) {
			require.Equal(t, int64(7), userID)
			return samplePrediction(), nil
		},
	}

	rec := performGet("/predict?user_id=7", "", newRouterUnderTest(t, routerDeps{cycle: svc}))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "2024-03-01", body["predicted_next_cycle"])
	require.Equal(t, "2024-02-10", body["fertile_window_start"])
	require.Equal(t, "2024-02-15", body["fertile_window_end"])
	require.InDelta(t, 28.0, body["predicted_cycle_length"], 1e-9)
}

func TestRouter_PredictInvalidUserID(t *testing.T) {
	server := newRouterUnderTest(t, routerDeps{})
	for _, raw := range []string{"", "abc", "0", "-3", "1.5"} {
		rec := performGet("/predict?user_id="+url.QueryEscape(raw), "", server)
		require.Equal(t, http.StatusBadRequest, rec.Code, raw)
		errBody := decodeErrorBody(t, rec.Body.Bytes())
		require.Equal(t, "invalid_request", errBody["error"]["code"])
	}
}

func TestRouter_PredictUserNotFound(t *testing.T) {
	svc := &stubCycleService{
		predictFn: func(ctx context.Context, userID int64) (cycle.Prediction, error) {
			return cycle.Prediction{}, apperrors.Wrap(apperrors.CodeUserNotFound, "User not found", nil)
		},
	}

	rec := performGet("/predict?user_id=999", "", newRouterUnderTest(t, routerDeps{cycle: svc}))
	require.Equal(t, http.StatusNotFound, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "user_not_found", errBody["error"]["code"])
	require.Equal(t, "User not found", errBody["error"]["message"])
}

func TestRouter_PredictDatasetFailureHidesCause(t *testing.T) {
	svc := &stubCycleService{
		predictFn: func(ctx context.Context, userID int64) (cycle.Prediction, error) {
			return cycle.Prediction{}, apperrors.Wrap(apperrors.CodeDatasetError, "failed to load cycle records", errors.New("password=hunter2"))
		},
	}

	rec := performGet("/predict?user_id=1", "", newRouterUnderTest(t, routerDeps{cycle: svc}))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.NotContains(t, rec.Body.String(), "hunter2")
}

func TestRouter_TimelineSuccess(t *testing.T) {
	svc := &stubCycleService{
		predictFn: func(ctx context.Context, userID int64) (cycle.Prediction, error) {
			return samplePrediction(), nil
		},
	}

	rec := performGet("/api/v1/timeline?user_id=1", "", newRouterUnderTest(t, routerDeps{cycle: svc}))
	require.Equal(t, http.StatusOK, rec.Code)

	var got cycle.Timeline
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Segments, 4)
	require.Equal(t, 28, got.CycleLength)
	require.Equal(t, "2024-02-02", got.Segments[0].Start.String())
}

func TestRouter_ChatSuccess(t *testing.T) {
	svc := &stubChatService{
		askFn: func(ctx context.Context, req chat.Request) (chat.Response, error) {
			require.Equal(t, "What is ovulation?", req.Question)
			return chat.Response{Response: "The release of an egg."}, nil
		},
	}

	rec := performPost("/chat", `{"question":"What is ovulation?"}`, newRouterUnderTest(t, routerDeps{chat: svc}))
	require.Equal(t, http.StatusOK, rec.Code)

	var got chat.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "The release of an egg.", got.Response)
}

func TestRouter_ChatEmptyQuestion(t *testing.T) {
	svc := &stubChatService{
		askFn: func(ctx context.Context, req chat.Request) (chat.Response, error) {
			return chat.Response{}, apperrors.Wrap(apperrors.CodeInvalidInput, "Please provide a question.", nil)
		},
	}

	rec := performPost("/chat", `{"question":"  "}`, newRouterUnderTest(t, routerDeps{chat: svc}))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
	require.Equal(t, "Please provide a question.", errBody["error"]["message"])
}

func TestRouter_ChatInvalidJSON(t *testing.T) {
	rec := performPost("/chat", `{"question":42}`, newRouterUnderTest(t, routerDeps{}))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "invalid_request", errBody["error"]["code"])
}

func TestRouter_ChatUpstreamFailureIsRetried(t *testing.T) {
	calls := 0
	svc := &stubChatService{
		askFn: func(ctx context.Context, req chat.Request) (chat.Response, error) {
			calls++
			if calls == 1 {
				return chat.Response{}, apperrors.Wrap(apperrors.CodeLLMError, "chatgpt request failed", errors.New("timeout"))
			}
			return chat.Response{Response: "second try"}, nil
		},
	}
	deps := routerDeps{chat: svc, retry: config.RetryConfig{Enabled: true, MaxAttempts: 2, Paths: []string{"/chat"}}}

	rec := performPost("/chat", `{"question":"hi"}`, newRouterUnderTest(t, deps))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 2, calls)
	require.Contains(t, rec.Body.String(), "second try")
}

func TestRouter_ChatRejectedByLLMIsNotRetried(t *testing.T) {
	calls := 0
	svc := &stubChatService{
		askFn: func(ctx context.Context, req chat.Request) (chat.Response, error) {
			calls++
			return chat.Response{}, apperrors.Wrap(apperrors.CodeLLMRejected, "chatgpt request failed", errors.New("status=401"))
		},
	}
	deps := routerDeps{chat: svc, retry: config.RetryConfig{Enabled: true, MaxAttempts: 3, Paths: []string{"/chat"}}}

	rec := performPost("/chat", `{"question":"hi"}`, newRouterUnderTest(t, deps))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, calls)
	require.Equal(t, "llm_error", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_ChatUpstreamFailure(t *testing.T) {
	svc := &stubChatService{
		askFn: func(ctx context.Context, req chat.Request) (chat.Response, error) {
			return chat.Response{}, apperrors.Wrap(apperrors.CodeLLMError, "chatgpt request failed", errors.New("timeout"))
		},
	}

	rec := performPost("/chat", `{"question":"hi"}`, newRouterUnderTest(t, routerDeps{chat: svc}))
	require.Equal(t, http.StatusBadGateway, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "llm_error", errBody["error"]["code"])
}

func TestRouter_Healthz(t *testing.T) {
	rec := performGet("/healthz", "", newRouterUnderTest(t, routerDeps{}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRouter_CORSPreflight(t *testing.T) {
	server := newRouterUnderTest(t, routerDeps{})
	req := httptest.NewRequest(http.MethodOptions, "/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)

	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_RateLimit(t *testing.T) {
	deps := routerDeps{rateLimit: config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1, Burst: 1}}
	server := newRouterUnderTest(t, deps)

	require.Equal(t, http.StatusNotFound, performGet("/predict?user_id=1", "", server).Code)
	rec := performGet("/predict?user_id=1", "", server)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
	require.Equal(t, "rate_limit_exceeded", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])

	require.Equal(t, http.StatusOK, performGet("/healthz", "", server).Code)
}

func TestDashboard_IndexStartsSession(t *testing.T) {
	rec := performGet("/", "", newRouterUnderTest(t, routerDeps{}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "CycleGPT Dashboard")
	require.NotContains(t, rec.Body.String(), "Prediction Results")
	require.NotEmpty(t, sessionCookie(t, rec))
}

func TestDashboard_PredictFlow(t *testing.T) {
	fetcher := &stubFetcher{prediction: samplePrediction()}
	server := newRouterUnderTest(t, routerDeps{fetcher: fetcher})
	cookie := sessionCookie(t, performGet("/", "", server))

	rec := performForm("/dashboard/predict", url.Values{"user_id": {"4"}}, cookie, server)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
	require.Equal(t, []int64{4}, fetcher.calls)

	page := performGet("/", cookie, server)
	require.Equal(t, http.StatusOK, page.Code)
	body := page.Body.String()
	require.Contains(t, body, "Next Cycle:</strong> 2024-03-01")
	require.Contains(t, body, "2024-02-10 to 2024-02-15")
	require.Contains(t, body, "28 days")
	require.Contains(t, body, `value="4"`)
	require.Contains(t, body, "Cycle of 28 days")
	require.Contains(t, body, "<td>2024-02-02</td><td>2024-02-07</td><td>6</td>")

	img := performGet("/dashboard/chart.png", cookie, server)
	require.Equal(t, http.StatusOK, img.Code)
	require.Equal(t, "image/png", img.Header().Get("Content-Type"))
	require.True(t, bytes.HasPrefix(img.Body.Bytes(), []byte("\x89PNG")))

	tl := performGet("/dashboard/timeline", cookie, server)
	require.Equal(t, http.StatusOK, tl.Code)
	var timeline cycle.Timeline
	require.NoError(t, json.Unmarshal(tl.Body.Bytes(), &timeline))
	require.Len(t, timeline.Segments, 4)
}

func TestDashboard_PredictFailureKeepsPage(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("connection refused")}
	server := newRouterUnderTest(t, routerDeps{fetcher: fetcher})
	cookie := sessionCookie(t, performGet("/", "", server))

	rec := performForm("/dashboard/predict", url.Values{"user_id": {"2"}}, cookie, server)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	page := performGet("/", cookie, server)
	require.NotContains(t, page.Body.String(), "Prediction Results")
	require.Equal(t, http.StatusNotFound, performGet("/dashboard/chart.png", cookie, server).Code)
}

func TestDashboard_InvalidUserIDIsIgnored(t *testing.T) {
	fetcher := &stubFetcher{prediction: samplePrediction()}
	server := newRouterUnderTest(t, routerDeps{fetcher: fetcher})
	cookie := sessionCookie(t, performGet("/", "", server))

	rec := performForm("/dashboard/predict", url.Values{"user_id": {"zero"}}, cookie, server)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Empty(t, fetcher.calls)
}

func TestDashboard_AskShowsResponse(t *testing.T) {
	cases := []struct {
		name  string
		asker stubAsker
		want  string
	}{
		{name: "answer", asker: stubAsker{reply: dashboard.ChatReply{Response: "Ovulation releases an egg."}}, want: "Ovulation releases an egg."},
		{name: "missing response", asker: stubAsker{}, want: dashboard.NoResponseMessage},
		{name: "network failure", asker: stubAsker{err: errors.New("dial tcp")}, want: dashboard.ErrorMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := newRouterUnderTest(t, routerDeps{asker: tc.asker})
			cookie := sessionCookie(t, performGet("/", "", server))

			rec := performForm("/dashboard/ask", url.Values{"question": {"Why is ovulation important?"}}, cookie, server)
			require.Equal(t, http.StatusSeeOther, rec.Code)

			body := performGet("/", cookie, server).Body.String()
			require.Contains(t, body, "CycleGPT says:")
			require.Contains(t, body, tc.want)
			require.Contains(t, body, "Why is ovulation important?")
		})
	}
}

func TestDashboard_ActiveSessionOutlivesTokenTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	fetcher := &stubFetcher{prediction: samplePrediction()}
	server := newRouterUnderTest(t, routerDeps{fetcher: fetcher, now: func() time.Time { return now }})
	cookie := sessionCookie(t, performGet("/", "", server))
	require.Equal(t, http.StatusSeeOther, performForm("/dashboard/predict", url.Values{"user_id": {"4"}}, cookie, server).Code)

	for i := 0; i < 12; i++ {
		now = now.Add(10 * time.Minute)
		rec := performGet("/", cookie, server)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "Prediction Results", "visit %d", i)
		cookie = sessionCookie(t, rec)
	}

	require.Equal(t, http.StatusOK, performGet("/dashboard/timeline", cookie, server).Code)
	require.Equal(t, []int64{4}, fetcher.calls)
}

func TestDashboard_IdleSessionStartsOver(t *testing.T) {
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	fetcher := &stubFetcher{prediction: samplePrediction()}
	server := newRouterUnderTest(t, routerDeps{fetcher: fetcher, now: func() time.Time { return now }})
	cookie := sessionCookie(t, performGet("/", "", server))
	performForm("/dashboard/predict", url.Values{"user_id": {"4"}}, cookie, server)

	now = now.Add(61 * time.Minute)
	rec := performGet("/", cookie, server)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "Prediction Results")
}

func TestDashboard_ForgedCookieStartsNewSession(t *testing.T) {
	server := newRouterUnderTest(t, routerDeps{})
	rec := performGet("/", SessionCookie+"=forged", server)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, sessionCookie(t, rec))
}

func TestDashboard_ChartWithoutPrediction(t *testing.T) {
	server := newRouterUnderTest(t, routerDeps{})
	rec := performGet("/dashboard/chart.png", "", server)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "prediction_missing", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

type routerDeps struct {
	cycle     cycle.Service
	chat      chat.Service
	fetcher   dashboard.PredictionFetcher
	asker     dashboard.ChatAsker
	retry     config.RetryConfig
	rateLimit config.RateLimitConfig
	now       func() time.Time
}

func newRouterUnderTest(t *testing.T, deps routerDeps) *http.Server {
	t.Helper()
	if deps.cycle == nil {
		deps.cycle = &stubCycleService{}
	}
	if deps.chat == nil {
		deps.chat = &stubChatService{}
	}
	if deps.fetcher == nil {
		deps.fetcher = &stubFetcher{}
	}
	if deps.asker == nil {
		deps.asker = stubAsker{}
	}
	logger := newTestLogger()
	clock := dashboard.WithClock(deps.now)
	signer, err := dashboard.NewTokenSigner("test-secret-0123456789", time.Hour, clock)
	require.NoError(t, err)

	handler := NewHandler(deps.cycle, deps.chat, logger)
	dash := NewDashboardHandler(
		dashboard.NewService(deps.fetcher, deps.asker, logger),
		dashboard.NewSessionStore(time.Hour, clock),
		signer,
		chart.NewRenderer(640, 320),
		logger,
	)
	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			RateLimit:    deps.rateLimit,
			Retry:        deps.retry,
		},
	}
	return NewRouter(cfg, handler, dash)
}

func performGet(path, cookie string, server *http.Server) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func performPost(path, body string, server *http.Server) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

func performForm(path string, form url.Values, cookie string, server *http.Server) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	rec := httptest.NewRecorder()
	server.Handler.ServeHTTP(rec, req)
	return rec
}

// sessionCookie returns the session cookie set by rec as a Cookie header value.
func sessionCookie(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookie {
			require.True(t, c.HttpOnly)
			return c.Name + "=" + c.Value
		}
	}
	t.Fatalf("response did not set %s", SessionCookie)
	return ""
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

func samplePrediction() cycle.Prediction {
	return cycle.Prediction{
		UserID:               1,
		PredictedNextCycle:   cycle.NewDate(2024, time.March, 1),
		FertileWindowStart:   cycle.NewDate(2024, time.February, 10),
		FertileWindowEnd:     cycle.NewDate(2024, time.February, 15),
		PredictedCycleLength: 28,
		FertileWindowDays:    4,
	}
}

type stubCycleService struct {
	predictFn func(ctx context.Context, userID int64) (cycle.Prediction, error)
}

func (s *stubCycleService) Predict(ctx context.Context, userID int64) (cycle.Prediction, error) {
	if s.predictFn != nil {
		return s.predictFn(ctx, userID)
	}
	return cycle.Prediction{}, apperrors.Wrap(apperrors.CodeUserNotFound, "User not found", nil)
}

func (s *stubCycleService) Timeline(ctx context.Context, userID int64) (cycle.Timeline, error) {
	p, err := s.Predict(ctx, userID)
	if err != nil {
		return cycle.Timeline{}, err
	}
	return cycle.LayoutPhases(p), nil
}

type stubChatService struct {
	askFn func(ctx context.Context, req chat.Request) (chat.Response, error)
}

func (s *stubChatService) Ask(ctx context.Context, req chat.Request) (chat.Response, error) {
	if s.askFn != nil {
		return s.askFn(ctx, req)
	}
	return chat.Response{}, nil
}

type stubFetcher struct {
	prediction cycle.Prediction
	err        error
	calls      []int64
}

func (s *stubFetcher) FetchPrediction(_ context.Context, userID int64) (cycle.Prediction, error) {
	s.calls = append(s.calls, userID)
	return s.prediction, s.err
}

type stubAsker struct {
	reply dashboard.ChatReply
	err   error
}

func (s stubAsker) Ask(context.Context, string) (dashboard.ChatReply, error) {
	return s.reply, s.err
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}
