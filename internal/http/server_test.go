package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmehdipour/washcorner-notify/internal/config"
	"github.com/jmehdipour/washcorner-notify/internal/dispatcher"
	"github.com/jmehdipour/washcorner-notify/internal/model"
	"github.com/jmehdipour/washcorner-notify/internal/repository"
	"github.com/jmehdipour/washcorner-notify/internal/service/notify"
	"github.com/jmehdipour/washcorner-notify/internal/service/statuschange"
	"github.com/jmehdipour/washcorner-notify/internal/settings"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "secret-key"

type fakeRouter struct {
	testPhone string
	last      *model.LastNotification
	recent    bool
	window    time.Duration
	health    dispatcher.Health
}

func (f *fakeRouter) SendTestNotification(_ context.Context, phone string) model.Result {
	f.testPhone = phone
	return model.Result{Success: true, Message: "ok", Reason: model.ReasonSent, Channel: "simulated"}
}

func (f *fakeRouter) HasRecentNotification(_ context.Context, _ string, _ model.StatusKind, window time.Duration) (bool, error) {
	f.window = window
	return f.recent, nil
}

func (f *fakeRouter) Health() dispatcher.Health { return f.health }

func (f *fakeRouter) LastNotification(context.Context, string) (*model.LastNotification, error) {
	return f.last, nil
}

type fakeNotifier struct {
	status model.StatusKind
	err    error
}

func (f *fakeNotifier) Notify(_ context.Context, id int64, status model.StatusKind) (model.Result, model.NotificationLog, error) {
	f.status = status
	if f.err != nil {
		return model.Result{}, model.NotificationLog{}, f.err
	}
	res := model.Result{Success: true, Message: "sent", Reason: model.ReasonSent, TrackingCode: "WC-ABC123"}
	return res, model.NotificationLog{ID: "row-1", TransactionID: id, Status: status}, nil
}

type fakeStatus struct{ err error }

func (f fakeStatus) ChangeStatus(context.Context, int64, model.StatusKind) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "01HEVENT", nil
}

type memLogs struct {
	mu   sync.Mutex
	rows []model.NotificationLog
}

func (m *memLogs) InsertBatch(_ context.Context, rows []model.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
	return nil
}

type fakeReports struct{ got repository.NotificationFilter }

func (f *fakeReports) List(_ context.Context, filter repository.NotificationFilter) ([]model.NotificationLog, error) {
	f.got = filter
	return []model.NotificationLog{{ID: "a"}, {ID: "b"}}, nil
}

type fixture struct {
	e        *echo.Echo
	router   *fakeRouter
	notifier *fakeNotifier
	status   *fakeStatus
	logs     *memLogs
	reports  *fakeReports
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Config{}
	cfg.HTTP.APIKeys = []string{testKey}

	f := &fixture{
		router:   &fakeRouter{},
		notifier: &fakeNotifier{},
		status:   &fakeStatus{},
		logs:     &memLogs{},
		reports:  &fakeReports{},
	}
	f.e = newEcho(cfg, Deps{
		Router:          f.router,
		Settings:        settings.NewFileStore(filepath.Join(t.TempDir(), "settings.json")),
		Notifier:        f.notifier,
		Status:          f.status,
		Logs:            f.logs,
		Reports:         f.reports,
		NewTrackingCode: func() string { return "WC-FIXED1" },
	}, nil)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("X-API-Key", testKey)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthzNeedsNoKey(t *testing.T) {
	f := newFixture(t)
	f.router.health = dispatcher.Health{Channel: "business_api"}

	get := func() map[string]any {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		rec := httptest.NewRecorder()
		f.e.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		return decode[map[string]any](t, rec)
	}

	body := get()
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "business_api", body["channel"])

	f.router.health.BreakerOpen = true
	body = get()
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, true, body["breaker_open"])
}

func TestV1RequiresAPIKey(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/tracking-code", nil)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSettingsRoundTrip(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/v1/notifications/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[model.NotificationSettings](t, rec)
	assert.True(t, got.EnableWhatsapp)
	assert.NotEmpty(t, got.Templates.Completed)

	got.EnableWhatsapp = false
	got.DefaultPhone = "081234567890"
	got.Templates.Completed = "Selesai {customerName}"
	body, err := json.Marshal(got)
	require.NoError(t, err)

	rec = f.do(http.MethodPut, "/v1/notifications/settings", string(body))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = f.do(http.MethodGet, "/v1/notifications/settings", "")
	again := decode[model.NotificationSettings](t, rec)
	assert.False(t, again.EnableWhatsapp)
	assert.Equal(t, "Selesai {customerName}", again.Templates.Completed)
}

func TestPutSettingsRejectsEmptyTemplate(t *testing.T) {
	f := newFixture(t)
	body := `{"defaultPhone":"","enableWhatsapp":true,"templates":{"pending":"a","in_progress":"b","completed":"","cancelled":"d"}}`
	rec := f.do(http.MethodPut, "/v1/notifications/settings", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTestNotification(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/v1/notifications/test", `{"phone":"0812"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0812", f.router.testPhone)
	assert.True(t, decode[model.Result](t, rec).Success)

	rec = f.do(http.MethodPost, "/v1/notifications/test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", f.router.testPhone)
}

func TestLastNotification(t *testing.T) {
	f := newFixture(t)
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	f.router.last = &model.LastNotification{Status: model.StatusCompleted, Timestamp: ts, TrackingCode: "WC-AAAAAA"}
	f.router.recent = true

	rec := f.do(http.MethodGet, "/v1/notifications/last?phone=0812-3456&status=completed&window_ms=1000", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[lastNotificationResponse](t, rec)
	assert.Equal(t, "628123456", resp.Phone)
	require.NotNil(t, resp.Last)
	assert.Equal(t, "WC-AAAAAA", resp.Last.TrackingCode)
	require.NotNil(t, resp.Recent)
	assert.True(t, *resp.Recent)
	assert.Equal(t, time.Second, f.router.window)

	rec = f.do(http.MethodGet, "/v1/notifications/last?phone=0812", "")
	assert.Nil(t, decode[lastNotificationResponse](t, rec).Recent)
}

func TestLastNotificationValidation(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/notifications/last", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/notifications/last?phone=1&status=done", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/v1/notifications/last?phone=1&status=pending&window_ms=-3", "").Code)
}

func TestTrackingCode(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/v1/tracking-code", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "WC-FIXED1", decode[map[string]string](t, rec)["tracking_code"])
}

func TestNotifyTransaction(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodPost, "/v1/transactions/42/notify", `{"status":"Completed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.StatusCompleted, f.notifier.status)
	assert.Equal(t, "WC-ABC123", decode[model.Result](t, rec).TrackingCode)

	require.Len(t, f.logs.rows, 1)
	assert.Equal(t, int64(42), f.logs.rows[0].TransactionID)

	rec = f.do(http.MethodPost, "/v1/transactions/42/notify", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusKind(""), f.notifier.status)
}

func TestNotifyTransactionErrors(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/transactions/abc/notify", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/v1/transactions/1/notify", `{"status":"washing"}`).Code)

	f.notifier.err = notify.ErrTransactionNotFound
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/v1/transactions/1/notify", "").Code)

	f.notifier.err = errors.New("db down")
	assert.Equal(t, http.StatusInternalServerError, f.do(http.MethodPost, "/v1/transactions/1/notify", "").Code)
	assert.Empty(t, f.logs.rows)
}

func TestChangeStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		body string
		want int
	}{
		{"accepted", nil, `{"status":"in_progress"}`, http.StatusAccepted},
		{"invalid body status", nil, `{"status":"nope"}`, http.StatusBadRequest},
		{"not found", statuschange.ErrTransactionNotFound, `{"status":"completed"}`, http.StatusNotFound},
		{"unchanged", statuschange.ErrStatusUnchanged, `{"status":"completed"}`, http.StatusConflict},
		{"internal", errors.New("boom"), `{"status":"completed"}`, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.status.err = tc.err
			rec := f.do(http.MethodPatch, "/v1/transactions/7/status", tc.body)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
		})
	}
}

func TestListNotificationsReport(t *testing.T) {
	f := newFixture(t)

	rec := f.do(http.MethodGet, "/v1/reports/notifications?phone=%2B6281&status=CANCELLED&success=false&limit=5000&offset=10", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "6281", f.reports.got.Phone)
	assert.Equal(t, model.StatusCancelled, f.reports.got.Status)
	require.NotNil(t, f.reports.got.Success)
	assert.False(t, *f.reports.got.Success)
	assert.Equal(t, 50, f.reports.got.Limit, "out-of-range limit keeps the default")
	assert.Equal(t, 10, f.reports.got.Offset)

	body := decode[map[string]any](t, rec)
	assert.EqualValues(t, 2, body["count"])
}
