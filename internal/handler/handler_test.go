package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Lllllllleong/aethercare/internal/auth"
	"github.com/Lllllllleong/aethercare/internal/middleware"
	"github.com/Lllllllleong/aethercare/internal/models"
	"github.com/Lllllllleong/aethercare/internal/report"
	"github.com/Lllllllleong/aethercare/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, token string) (string, error) {
	if token == "valid" {
		return "uid-1", nil
	}
	return "", fmt.Errorf("%w: bad", auth.ErrInvalidToken)
}

type fakeGenerator struct {
	calls   int
	subject string
	req     models.GenerateReportRequest
	resp    *models.GenerateReportResponse
	err     error
}

func (f *fakeGenerator) Generate(_ context.Context, subject string, req models.GenerateReportRequest) (*models.GenerateReportResponse, error) {
	f.calls++
	f.subject = subject
	f.req = req
	return f.resp, f.err
}

type fakeStore struct {
	profile    *models.Profile
	saved      *models.Profile
	reports    []models.ReportMetadata
	lastLimit  int
	wallet     *models.WalletLink
	linkedAddr string
	unlinked   bool
	account    *models.Account
	err        error
}

func (f *fakeStore) GetProfile(context.Context, string) (*models.Profile, error) {
	return f.profile, f.err
}

func (f *fakeStore) SaveProfile(_ context.Context, _ string, p *models.Profile) error {
	f.saved = p
	return f.err
}

func (f *fakeStore) ListReports(_ context.Context, _ string, limit int) ([]models.ReportMetadata, error) {
	f.lastLimit = limit
	return f.reports, f.err
}

func (f *fakeStore) GetReport(_ context.Context, _ string, id string) (*models.ReportMetadata, error) {
	for _, r := range f.reports {
		if r.ReportID == id {
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) GetWallet(context.Context, string) (*models.WalletLink, error) {
	if f.wallet == nil {
		return &models.WalletLink{}, f.err
	}
	return f.wallet, f.err
}

func (f *fakeStore) LinkWallet(_ context.Context, _ string, address string) (*models.WalletLink, error) {
	f.linkedAddr = address
	return &models.WalletLink{WalletAddress: &address, WalletConnectedAt: "2025-01-01T00:00:00Z"}, f.err
}

func (f *fakeStore) UnlinkWallet(context.Context, string) (*models.WalletLink, error) {
	f.unlinked = true
	return &models.WalletLink{WalletDisconnectedAt: "2025-01-01T00:00:00Z"}, f.err
}

func (f *fakeStore) GetAccount(context.Context, string) (*models.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.account == nil {
		return nil, store.ErrNotFound
	}
	return f.account, nil
}

func newTestRouter(gen *fakeGenerator, st *fakeStore) *gin.Engine {
	return NewRouter(RouterDeps{
		Verifier:    stubVerifier{},
		Generator:   gen,
		History:     st,
		Profiles:    st,
		Wallets:     st,
		Accounts:    st,
		RateLimiter: middleware.NewRateLimiter(60, 2),
	})
}

func do(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestGenerateReportSuccess(t *testing.T) {
	gen := &fakeGenerator{resp: &models.GenerateReportResponse{Success: true, ReportID: "1700000000000", MetadataSaved: true}}
	r := newTestRouter(gen, &fakeStore{})

	for _, path := range []string{"/", "/reports"} {
		w := do(r, "POST", path, "valid", models.GenerateReportRequest{ImageStoragePath: "patients/uid-1/a.png"})

		assert.Equal(t, http.StatusOK, w.Code, path)
		resp := decode[models.GenerateReportResponse](t, w)
		assert.Equal(t, "1700000000000", resp.ReportID)
	}
	assert.Equal(t, "uid-1", gen.subject)
	assert.Equal(t, "patients/uid-1/a.png", gen.req.ImageStoragePath)
}

func TestGenerateReportRequiresAuth(t *testing.T) {
	gen := &fakeGenerator{}
	r := newTestRouter(gen, &fakeStore{})

	w := do(r, "POST", "/reports", "", models.GenerateReportRequest{ImageStoragePath: "a.png"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Missing or invalid Authorization header", decode[models.ErrorResponse](t, w).Error)

	w = do(r, "POST", "/reports", "expired", models.GenerateReportRequest{ImageStoragePath: "a.png"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid authentication token", decode[models.ErrorResponse](t, w).Error)

	assert.Equal(t, 0, gen.calls)
}

func TestGenerateReportMapsStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"bad request", &report.StatusError{Code: 400, Message: "At least one file (image or PDF) must be provided"}, 400},
		{"not found", &report.StatusError{Code: 404, Message: "Image file not found at path: x", Details: "Checked 3 times."}, 404},
		{"unexpected", errors.New("boom"), 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeGenerator{err: tt.err}, &fakeStore{})
			w := do(r, "POST", "/reports", "valid", map[string]string{})

			assert.Equal(t, tt.status, w.Code)
			assert.NotEmpty(t, decode[models.ErrorResponse](t, w).Error)
		})
	}
}

func TestGenerateReportEmptyAndInvalidBody(t *testing.T) {
	gen := &fakeGenerator{err: &report.StatusError{Code: 400, Message: "At least one file (image or PDF) must be provided"}}
	r := newTestRouter(gen, &fakeStore{})

	w := do(r, "POST", "/reports", "valid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, gen.calls)

	w = do(r, "POST", "/reports", "valid", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid request body", decode[models.ErrorResponse](t, w).Error)
}

func TestGenerateReportRateLimited(t *testing.T) {
	gen := &fakeGenerator{resp: &models.GenerateReportResponse{Success: true}}
	r := newTestRouter(gen, &fakeStore{})
	body := models.GenerateReportRequest{ImageStoragePath: "a.png"}

	assert.Equal(t, http.StatusOK, do(r, "POST", "/reports", "valid", body).Code)
	assert.Equal(t, http.StatusOK, do(r, "POST", "/reports", "valid", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "POST", "/reports", "valid", body).Code)
	assert.Equal(t, 2, gen.calls)
}

func TestPreflight(t *testing.T) {
	r := newTestRouter(&fakeGenerator{}, &fakeStore{})

	w := do(r, "OPTIONS", "/", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestListReports(t *testing.T) {
	st := &fakeStore{reports: []models.ReportMetadata{{ReportID: "2"}, {ReportID: "1"}}}
	r := newTestRouter(&fakeGenerator{}, st)

	w := do(r, "GET", "/reports", "valid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[models.ReportListResponse](t, w).Reports, 2)
	assert.Equal(t, 20, st.lastLimit)

	do(r, "GET", "/reports?limit=500", "valid", nil)
	assert.Equal(t, 100, st.lastLimit)

	w = do(r, "GET", "/reports?limit=abc", "valid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetReport(t *testing.T) {
	st := &fakeStore{reports: []models.ReportMetadata{{ReportID: "1700000000000", DownloadURL: "https://x"}}}
	r := newTestRouter(&fakeGenerator{}, st)

	w := do(r, "GET", "/reports/1700000000000", "valid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://x", decode[models.ReportMetadata](t, w).DownloadURL)

	w = do(r, "GET", "/reports/missing", "valid", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProfile(t *testing.T) {
	st := &fakeStore{}
	r := newTestRouter(&fakeGenerator{}, st)

	w := do(r, "GET", "/profile", "valid", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, "PUT", "/profile", "valid", map[string]string{"name": "Ada", "height": "175", "weight": "70", "habits": "Smoker"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[models.ProfileResponse](t, w)
	assert.Equal(t, 22.9, resp.Profile.BMI)
	assert.Equal(t, "Normal", resp.BMICategory)
	assert.Equal(t, "smoker", st.saved.Habits)

	w = do(r, "PUT", "/profile", "valid", map[string]string{"habits": "sometimes"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	st.profile = &models.Profile{Name: "Ada", BMI: 31}
	w = do(r, "GET", "/profile", "valid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Obese", decode[models.ProfileResponse](t, w).BMICategory)
}

func TestWallet(t *testing.T) {
	st := &fakeStore{}
	r := newTestRouter(&fakeGenerator{}, st)

	w := do(r, "GET", "/wallet", "valid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[models.WalletLink](t, w).WalletAddress)

	addr := "0x52908400098527886E0F7030069857D2E4169EE7"
	w = do(r, "PUT", "/wallet", "valid", models.LinkWalletRequest{Address: addr})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, addr, st.linkedAddr)

	for _, bad := range []string{"", "0x123", "52908400098527886E0F7030069857D2E4169EE7", "0xZZ908400098527886E0F7030069857D2E4169EE7"} {
		w = do(r, "PUT", "/wallet", "valid", models.LinkWalletRequest{Address: bad})
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}

	w = do(r, "DELETE", "/wallet", "valid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, st.unlinked)
}

func TestAccount(t *testing.T) {
	st := &fakeStore{}
	r := newTestRouter(&fakeGenerator{}, st)

	w := do(r, "GET", "/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "GET", "/me", "valid", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	addr := "0x52908400098527886E0F7030069857D2E4169EE7"
	st.account = &models.Account{
		FullName:    "Ada Lovelace",
		Email:       "ada@example.com",
		AccountType: "doctor",
		CreatedAt:   "2025-01-01T00:00:00.000Z",
		WalletLink:  models.WalletLink{WalletAddress: &addr},
	}
	w = do(r, "GET", "/me", "valid", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "Ada Lovelace", body["fullName"])
	assert.Equal(t, "ada@example.com", body["email"])
	assert.Equal(t, "doctor", body["accountType"])
	assert.Equal(t, "2025-01-01T00:00:00.000Z", body["createdAt"])
	assert.Equal(t, addr, body["walletAddress"])

	st.err = errors.New("firestore down")
	w = do(r, "GET", "/me", "valid", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	r := newTestRouter(&fakeGenerator{}, &fakeStore{})

	w := do(r, "GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, "GET", "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "aethercare_http_requests_total")
}
