package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dcastellanos/contenthub/internal/common"
	"github.com/dcastellanos/contenthub/internal/logging"
	"github.com/dcastellanos/contenthub/internal/server/models"
	"github.com/dcastellanos/contenthub/internal/server/services"
	"github.com/dcastellanos/contenthub/internal/server/token"
)

// ---- fakes ----

type fakeSessions struct {
	registerOut *models.User
	registerErr error

	loginPair *services.TokenPair
	loginUser *models.User
	loginErr  error

	refreshPair *services.TokenPair
	refreshErr  error

	logoutErr    error
	logoutUserID int64
}

func (f *fakeSessions) Register(ctx context.Context, email, password string, roleID int64) (*models.User, error) {
	return f.registerOut, f.registerErr
}

func (f *fakeSessions) Login(ctx context.Context, email, password string) (*services.TokenPair, *models.User, error) {
	return f.loginPair, f.loginUser, f.loginErr
}

func (f *fakeSessions) Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error) {
	return f.refreshPair, f.refreshErr
}

func (f *fakeSessions) Logout(ctx context.Context, userID int64) error {
	f.logoutUserID = userID
	return f.logoutErr
}

// ---- helpers ----

func testIssuer() *token.Issuer {
	return token.NewIssuer([]byte("access-k"), []byte("refresh-k"), time.Hour, time.Hour)
}

func nopLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestServer(sessions SessionService) *Server {
	return NewServer(":0", nopLogger(), sessions, testIssuer())
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

// ---- register ----

func TestHandleRegister_Created(t *testing.T) {
	f := &fakeSessions{registerOut: &models.User{ID: 42, Email: "a@b.com", PasswordHash: "secret-hash", RoleID: 1}}
	h := newTestServer(f).Handler()

	rec := doJSON(t, h, http.MethodPost, "/register", `{"email":"a@b.com","password":"pw123456","rolId":1}`, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeBody(t, rec)
	require.EqualValues(t, 42, body["id"])
	require.Equal(t, "a@b.com", body["email"])
	// The password hash must never leave the boundary.
	require.NotContains(t, rec.Body.String(), "secret-hash")
}

func TestHandleRegister_Conflict(t *testing.T) {
	f := &fakeSessions{registerErr: common.ErrorConflict}
	h := newTestServer(f).Handler()

	rec := doJSON(t, h, http.MethodPost, "/register", `{"email":"a@b.com","password":"pw123456"}`, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestHandleRegister_Validation(t *testing.T) {
	f := &fakeSessions{registerErr: common.ErrorValidation}
	h := newTestServer(f).Handler()

	rec := doJSON(t, h, http.MethodPost, "/register", `{"email":"","password":""}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRegister_BadBody(t *testing.T) {
	h := newTestServer(&fakeSessions{}).Handler()

	rec := doJSON(t, h, http.MethodPost, "/register", `{not json`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleRegister_InternalErrorIsGeneric(t *testing.T) {
	f := &fakeSessions{registerErr: common.ErrorInternal}
	h := newTestServer(f).Handler()

	rec := doJSON(t, h, http.MethodPost, "/register", `{"email":"a@b.com","password":"pw123456"}`, nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "internal error", decodeBody(t, rec)["message"])
}

// ---- login ----

func TestHandleLogin_OK(t *testing.T) {
	f := &fakeSessions{
		loginPair: &services.TokenPair{AccessToken: "acc", RefreshToken: "ref"},
		loginUser: &models.User{ID: 7, Email: "a@b.com", PasswordHash: "secret-hash", RoleID: 3},
	}
	h := newTestServer(f).Handler()

	rec := doJSON(t, h, http.MethodPost, "/login", `{"email":"a@b.com","password":"pw123456"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "acc", body["accessToken"])
	require.Equal(t, "ref", body["refreshToken"])
	user := body["user"].(map[string]any)
	require.EqualValues(t, 7, user["id"])
	require.EqualValues(t, 3, user["rolId"])
	require.NotContains(t, rec.Body.String(), "secret-hash")
	require.NotContains(t, rec.Body.String(), "pw123456")
}

func TestHandleLogin_Unauthorized(t *testing.T) {
	f := &fakeSessions{loginErr: common.ErrorUnauthorized}
	h := newTestServer(f).Handler()

	rec := doJSON(t, h, http.MethodPost, "/login", `{"email":"a@b.com","password":"wrong"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "invalid credentials", decodeBody(t, rec)["message"])
}

func TestHandleLogin_MissingFields(t *testing.T) {
	h := newTestServer(&fakeSessions{}).Handler()

	rec := doJSON(t, h, http.MethodPost, "/login", `{"email":"a@b.com"}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---- refresh ----

func TestHandleRefresh_OK(t *testing.T) {
	f := &fakeSessions{refreshPair: &services.TokenPair{AccessToken: "acc2", RefreshToken: "ref2"}}
	h := newTestServer(f).Handler()

	rec := doJSON(t, h, http.MethodPost, "/refresh", `{"refreshToken":"ref1"}`, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, "acc2", body["accessToken"])
	require.Equal(t, "ref2", body["refreshToken"])
}

func TestHandleRefresh_Unauthorized(t *testing.T) {
	f := &fakeSessions{refreshErr: common.ErrorUnauthorized}
	h := newTestServer(f).Handler()

	rec := doJSON(t, h, http.MethodPost, "/refresh", `{"refreshToken":"stale"}`, nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleRefresh_EmptyToken(t *testing.T) {
	h := newTestServer(&fakeSessions{}).Handler()

	rec := doJSON(t, h, http.MethodPost, "/refresh", `{"refreshToken":""}`, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

// ---- logout ----

func TestHandleLogout_RequiresBearer(t *testing.T) {
	h := newTestServer(&fakeSessions{}).Handler()

	rec := doJSON(t, h, http.MethodPost, "/logout", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleLogout_OK(t *testing.T) {
	f := &fakeSessions{}
	srv := newTestServer(f)
	h := srv.Handler()

	access, err := testIssuer().IssueAccess(&models.User{ID: 42, Email: "a@b.com", RoleID: 1})
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+access)
	rec := doJSON(t, h, http.MethodPost, "/logout", "", header)

	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 42, f.logoutUserID)
}

// ---- ping ----

func TestHandlePing(t *testing.T) {
	h := newTestServer(&fakeSessions{}).Handler()

	rec := doJSON(t, h, http.MethodGet, "/ping", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
