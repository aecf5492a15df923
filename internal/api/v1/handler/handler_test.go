package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"macrotrack/internal/api/v1/dto"
	"macrotrack/internal/daykey"
	"macrotrack/internal/middleware"
	"macrotrack/internal/model"
	"macrotrack/internal/repository"
	"macrotrack/internal/service"

	"github.com/coder/quartz"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const upgradeURL = "https://example.com/upgrade"

type fakeAnalyzer struct{ err error }

func (f fakeAnalyzer) Analyze(context.Context, service.AnalysisRequest) ([]model.AnalysisItem, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []model.AnalysisItem{{Name: "Oatmeal", Notes: "1 bowl", Macros: model.Macros{Calories: 300, Protein: 10, Carbs: 54, Fat: 5}, Confidence: 0.7}}, nil
}

// testAuth trusts the X-User header; token handling is covered in middleware.
func testAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-User")
		if id == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), id)))
	})
}

type testServer struct {
	mux   *http.ServeMux
	store *repository.MemoryStore
	users service.UserService
}

func newTestServer(t *testing.T, analyzer service.Analyzer) *testServer {
	t.Helper()
	store := repository.NewMemoryStore()
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2030, 6, 14, 9, 0, 0, 0, time.UTC))
	days := daykey.New(time.UTC)
	log := zerolog.Nop()
	v := validator.New(validator.WithRequiredStructEnabled())

	users := service.NewUserService(store, log)
	quota := service.NewQuotaService(store, clock, days, 3, nil, log)
	analysis := service.NewAnalysisService(analyzer, users, quota, nil, log)
	entries := service.NewEntryService(store, users, nil, nil, "", clock, log)
	hist := service.NewHistoryService(users, store, quota, clock, days, nil, log)

	mux := http.NewServeMux()
	NewUserHandler(users, quota, v, upgradeURL, log).RegisterRoutes(mux, testAuth)
	NewAnalysisHandler(analysis, v, upgradeURL, log).RegisterRoutes(mux, testAuth)
	NewEntryHandler(entries, nil, v, log).RegisterRoutes(mux, testAuth)
	NewHistoryHandler(hist, nil, upgradeURL, log).RegisterRoutes(mux, testAuth)
	return &testServer{mux: mux, store: store, users: users}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-User", "u1")
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestGetUserCreatesDefaults(t *testing.T) {
	s := newTestServer(t, fakeAnalyzer{})
	rr := s.do(t, http.MethodGet, "/users/me", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	u := decodeBody[dto.UserResponseDTO](t, rr)
	assert.Equal(t, "u1", u.UserID)
	assert.Equal(t, "free", u.Plan)
	assert.Equal(t, 2200.0, u.Goals.Calories)
	assert.Equal(t, dto.QuotaStatusDTO{Used: 0, Limit: 3}, u.Quota)
}

func TestUpdateGoalsValidates(t *testing.T) {
	s := newTestServer(t, fakeAnalyzer{})
	rr := s.do(t, http.MethodPut, "/users/me/goals", dto.MacrosDTO{Calories: -1})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(t, http.MethodPut, "/users/me/goals", dto.MacrosDTO{Calories: 1800, Protein: 120, Carbs: 200, Fat: 60})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1800.0, decodeBody[dto.UserResponseDTO](t, rr).Goals.Calories)
}

func TestAnalyzeUntilQuotaExceeded(t *testing.T) {
	s := newTestServer(t, fakeAnalyzer{})
	req := dto.AnalysisRequestDTO{Mode: "text", Text: "a bowl of oatmeal"}

	for i := 1; i <= 3; i++ {
		rr := s.do(t, http.MethodPost, "/analyses", req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		res := decodeBody[dto.AnalysisResponseDTO](t, rr)
		require.Len(t, res.Items, 1)
		assert.Equal(t, i, res.Quota.Used)
	}

	rr := s.do(t, http.MethodPost, "/analyses", req)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	e := decodeBody[dto.ErrorResponseDTO](t, rr)
	assert.Equal(t, "quota_exceeded", e.Error)
	assert.False(t, e.Retryable)
	assert.Equal(t, upgradeURL, e.UpgradeURL)
	require.NotNil(t, e.Quota)
	assert.True(t, e.Quota.Exceeded)
}

func TestAnalyzeRejectsBadRequests(t *testing.T) {
	s := newTestServer(t, fakeAnalyzer{})
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/analyses", dto.AnalysisRequestDTO{Mode: "video"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/analyses", dto.AnalysisRequestDTO{Mode: "photo"}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/analyses", dto.AnalysisRequestDTO{Mode: "photo", Image: "%%%"}).Code)
}

func TestAnalyzeFailureIsRetryable(t *testing.T) {
	s := newTestServer(t, fakeAnalyzer{err: assert.AnError})
	rr := s.do(t, http.MethodPost, "/analyses", dto.AnalysisRequestDTO{Mode: "text", Text: "soup"})
	require.Equal(t, http.StatusBadGateway, rr.Code)
	e := decodeBody[dto.ErrorResponseDTO](t, rr)
	assert.Equal(t, "analysis_failed", e.Error)
	assert.True(t, e.Retryable)
}

func TestConfirmThenDashboard(t *testing.T) {
	s := newTestServer(t, fakeAnalyzer{})
	rr := s.do(t, http.MethodPost, "/entries", dto.EntryConfirmDTO{Items: []dto.AnalysisItemDTO{
		{Name: "eggs", Notes: "two", Macros: dto.MacrosDTO{Calories: 140, Protein: 12, Carbs: 1, Fat: 10}},
		{Name: "Toast", Macros: dto.MacrosDTO{Calories: 2200, Protein: 6, Carbs: 30, Fat: 2}},
	}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	saved := decodeBody[[]dto.EntryResponseDTO](t, rr)
	require.Len(t, saved, 2)
	assert.Equal(t, "Eggs", saved[0].Name)

	rr = s.do(t, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	d := decodeBody[dto.DashboardResponseDTO](t, rr)
	assert.Equal(t, "2030-06-14", d.DayKey)
	assert.Equal(t, 1, d.Streak)
	assert.Len(t, d.Today.Entries, 2)
	assert.Equal(t, 2340.0, d.Today.Totals.Calories)
	assert.Equal(t, "exceeded", d.GoalStatus.Calories)
	assert.Equal(t, "within_goal", d.GoalStatus.Protein)
	require.Len(t, d.Chart, 7)
	assert.Equal(t, 2340.0, d.Chart[6].Value)
	assert.Equal(t, "Fri", d.Chart[6].Label)
}

func TestConfirmAnalysisProposalTwiceKeepsOneEntry(t *testing.T) {
	s := newTestServer(t, fakeAnalyzer{})
	rr := s.do(t, http.MethodPost, "/analyses", dto.AnalysisRequestDTO{Mode: "text", Text: "oatmeal"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	items := decodeBody[dto.AnalysisResponseDTO](t, rr).Items
	require.Len(t, items, 1)
	require.NotEmpty(t, items[0].ID)

	for i := 0; i < 2; i++ {
		rr = s.do(t, http.MethodPost, "/entries", dto.EntryConfirmDTO{Items: items})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		assert.Equal(t, items[0].ID, decodeBody[[]dto.EntryResponseDTO](t, rr)[0].ID)
	}

	rr = s.do(t, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeBody[dto.DashboardResponseDTO](t, rr).Today.Entries, 1)

	rr = s.do(t, http.MethodPost, "/entries", dto.EntryConfirmDTO{Items: []dto.AnalysisItemDTO{{ID: "not-a-uuid", Name: "Rice"}}})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestUpdateAndDeleteEntry(t *testing.T) {
	s := newTestServer(t, fakeAnalyzer{})
	rr := s.do(t, http.MethodPost, "/entries", dto.EntryConfirmDTO{Items: []dto.AnalysisItemDTO{
		{Name: "Rice", Macros: dto.MacrosDTO{Calories: 200, Protein: 4, Carbs: 45, Fat: 1}},
	}})
	require.Equal(t, http.StatusCreated, rr.Code)
	id := decodeBody[[]dto.EntryResponseDTO](t, rr)[0].ID

	bad := 0.7
	rr = s.do(t, http.MethodPatch, "/entries/"+id, dto.EntryUpdateDTO{Multiplier: &bad})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	double := 2.0
	rr = s.do(t, http.MethodPatch, "/entries/"+id, dto.EntryUpdateDTO{Multiplier: &double})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, dto.MacrosDTO{Calories: 400, Protein: 8, Carbs: 90, Fat: 2}, decodeBody[dto.EntryResponseDTO](t, rr).Macros)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/entries/"+id, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/entries/"+id, nil).Code)
}

func TestHistoryRequiresPaidPlan(t *testing.T) {
	s := newTestServer(t, fakeAnalyzer{})
	rr := s.do(t, http.MethodGet, "/history", nil)
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, upgradeURL, decodeBody[dto.ErrorResponseDTO](t, rr).UpgradeURL)

	require.NoError(t, s.users.SetPlan(context.Background(), "u1", model.PlanPaid))
	rr = s.do(t, http.MethodGet, "/history", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeBody[dto.HistoryResponseDTO](t, rr).Days)
}

func TestStorageOfflineIsRetryable(t *testing.T) {
	s := newTestServer(t, fakeAnalyzer{})
	s.store.SetOffline(true)
	rr := s.do(t, http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	e := decodeBody[dto.ErrorResponseDTO](t, rr)
	assert.Equal(t, "storage_unavailable", e.Error)
	assert.True(t, e.Retryable)
}

func TestUnauthenticated(t *testing.T) {
	s := newTestServer(t, fakeAnalyzer{})
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rr := httptest.NewRecorder()
	s.mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
