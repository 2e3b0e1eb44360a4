package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/muxi-Infra/certportal/api/middleware"
	"github.com/muxi-Infra/certportal/config"
	"github.com/muxi-Infra/certportal/dao"
	"github.com/muxi-Infra/certportal/pkg/auth"
	"github.com/muxi-Infra/certportal/pkg/metrics"
	"github.com/muxi-Infra/certportal/pkg/pdf"
	"github.com/muxi-Infra/certportal/service"
)

const testPassword = "correct horse battery"

type testEnv struct {
	router *Router
	dao    *dao.CertificateDao
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	d, err := dao.NewCertificateDao(filepath.Join(t.TempDir(), "certs.db"), "ALX", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	seeded, err := d.Seed(context.Background())
	require.NoError(t, err)
	require.True(t, seeded)

	gate, err := auth.NewGate(testPassword, "0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)

	m := metrics.New()
	svc := service.NewCertificateService(d, pdf.NewRenderer(pdf.WithCompression(false)), nil, m, zap.NewNop())
	conf := &config.Conf{Session: config.SessionConf{TTL: time.Hour}}

	return &testEnv{
		router: NewRouter(conf, zap.NewNop(), m, svc, gate, d),
		dao:    d,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.Engine().ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return e.do(req)
}

func (e *testEnv) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return e.do(req)
}

func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := e.postForm("/admin/login", url.Values{"password": {testPassword}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func TestPublic_SeededCertificate(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ALX-2025-001")
	assert.Contains(t, rec.Body.String(), "Lucky KN")

	rec = e.get("/cert/ALX-2025-001")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "CartoonBot Automation")
	assert.Contains(t, rec.Body.String(), "Authorized Signatory")

	rec = e.get("/cert/ALX-2025-001/pdf")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="ALX-2025-001.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rec.Body.String(), "%PDF-"))
	assert.Contains(t, rec.Body.String(), "This certifies that Lucky KN")
	assert.Contains(t, rec.Body.String(), "/Count 1")
}

func TestPublic_UnknownCertificate(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get("/cert/UNKNOWN-ID")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Certificate not found")

	rec = e.get("/cert/UNKNOWN-ID/pdf")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Certificate not found")

	rec = e.get("/cert/" + url.PathEscape("x' OR '1'='1"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerify_LowDisclosure(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get("/verify")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Valid certificate")
	assert.NotContains(t, rec.Body.String(), "No certificate matches")

	rec = e.get("/verify?cert=ALX-2025-001")
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Valid certificate")
	assert.Contains(t, body, "Lucky KN")
	assert.Contains(t, body, "CartoonBot Automation")
	assert.Contains(t, body, "31 Oct 2025")
	assert.NotContains(t, body, "Authorized Signatory")
	assert.NotContains(t, body, "Seeded entry")

	rec = e.get("/verify?cert=NOPE-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No certificate matches")
}

func TestVerifyJSON(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get("/api/verify?cert=ALX-2025-001")
	require.Equal(t, http.StatusOK, rec.Code)
	var ok struct {
		Valid       bool                   `json:"valid"`
		Certificate map[string]interface{} `json:"certificate"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	assert.True(t, ok.Valid)
	assert.Equal(t, "Lucky KN", ok.Certificate["name"])
	assert.NotContains(t, ok.Certificate, "signature")
	assert.NotContains(t, ok.Certificate, "notes")

	rec = e.get("/api/verify?cert=NOPE")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.get("/api/verify")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdmin_RequiresLogin(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	rec := e.get("/admin")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))

	rec = e.postForm("/admin/create", url.Values{"cert_id": {"SNEAKY-1"}, "name": {"Mallory"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/login", rec.Header().Get("Location"))
	_, err := e.dao.GetByCertID(ctx, "SNEAKY-1")
	assert.ErrorIs(t, err, dao.ErrNotFound)

	seed, err := e.dao.GetByCertID(ctx, "ALX-2025-001")
	require.NoError(t, err)
	rec = e.postForm("/admin/delete", url.Values{"id": {"1"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	_, err = e.dao.GetByCertID(ctx, seed.CertID)
	assert.NoError(t, err)

	forged := &http.Cookie{Name: middleware.SessionCookie, Value: "not-a-token"}
	rec = e.get("/admin", forged)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestAdmin_LoginLogout(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get("/admin/login")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = e.postForm("/admin/login", url.Values{"password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid password")
	assert.Empty(t, rec.Result().Cookies())

	cookie := e.login(t)
	assert.True(t, cookie.HttpOnly)

	rec = e.get("/admin", cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ALX-2025-001")
	assert.Contains(t, rec.Body.String(), "Seeded entry")

	rec = e.get("/admin/logout", cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookie && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared)
}

func TestAdmin_CreateAndDelete(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login(t)
	ctx := context.Background()

	form := url.Values{
		"cert_id":    {"NEW-1"},
		"name":       {"Grace Hopper"},
		"project":    {"Compiler"},
		"start_date": {"01 Jan 1952"},
		"end_date":   {"31 Dec 1952"},
		"issue_date": {"01 Jan 1953"},
	}
	rec := e.postForm("/admin/create", form, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))

	rec = e.get("/cert/NEW-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Grace Hopper")

	rec = e.postForm("/admin/create", url.Values{"cert_id": {"NEW-1"}, "name": {"Someone Else"}}, cookie)
	assert.Equal(t, http.StatusConflict, rec.Code)
	got, err := e.dao.GetByCertID(ctx, "NEW-1")
	require.NoError(t, err)
	assert.Equal(t, "Grace Hopper", got.Name)

	rec = e.postForm("/admin/create", url.Values{"name": {"Generated Id"}}, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = e.postForm("/admin/delete", url.Values{"id": {"abc"}}, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin", rec.Header().Get("Location"))
	_, err = e.dao.GetByCertID(ctx, "NEW-1")
	require.NoError(t, err)

	rec = e.postForm("/admin/delete", url.Values{"id": {"9999"}}, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = e.postForm("/admin/delete", url.Values{"id": {strconv.FormatUint(uint64(got.ID), 10)}}, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	rec = e.get("/cert/NEW-1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListJSON_NewestFirst(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login(t)

	rec := e.postForm("/admin/create", url.Values{"cert_id": {"ALX-2025-002"}, "name": {"Second"}}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = e.get("/api/certificates.json")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "ALX-2025-002", list[0]["cert_id"])
	assert.Equal(t, "ALX-2025-001", list[1]["cert_id"])
	assert.NotContains(t, list[0], "id")
	assert.NotContains(t, list[0], "signature")
}

func TestHealthMetricsAndHeaders(t *testing.T) {
	e := newTestEnv(t)

	rec := e.get("/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"up"`)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-referrer", rec.Header().Get("Referrer-Policy"))

	_ = e.get("/cert/ALX-2025-001")
	rec = e.get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `certportal_http_requests_total{endpoint="/cert/:certId",method="GET",status="200"} 1`)

	rec = e.get("/no/such/page")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS_JSONAPI(t *testing.T) {
	e := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/api/certificates.json", nil)
	req.Header.Set("Origin", "https://example.org")
	rec := e.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestDownloadPDF_UnencodableName(t *testing.T) {
	e := newTestEnv(t)
	cookie := e.login(t)

	rec := e.postForm("/admin/create", url.Values{"cert_id": {"CJK-1"}, "name": {"张三"}}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = e.get("/cert/CJK-1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "张三")

	rec = e.get("/cert/CJK-1/pdf")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEqual(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Internal server error")
}
