package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"telecom-chat/internal/agent"
	"telecom-chat/internal/auth"
	"telecom-chat/internal/domain"
	"telecom-chat/internal/inference"
	"telecom-chat/internal/repository/memory"
	"telecom-chat/internal/repository/sqlstore"
	"telecom-chat/internal/service"
)

type fakeAgent struct {
	result  agent.Result
	queries []string
}

func (a *fakeAgent) Answer(_ context.Context, query string) agent.Result {
	a.queries = append(a.queries, query)
	return a.result
}

type fakeModel struct{}

func (fakeModel) Info() inference.Info {
	return inference.Info{Name: "Qwen1.5-7B", Path: "models/Qwen1.5-7B", Device: "cpu", DType: "float32"}
}

type brokenRecords struct{}

func (brokenRecords) Init(context.Context) error { return nil }
func (brokenRecords) Counts(context.Context) (domain.RecordCounts, error) {
	return domain.RecordCounts{}, errors.New("database is locked")
}

type testEnv struct {
	router  *gin.Engine
	agent   *fakeAgent
	records service.RecordService
	now     time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	users, err := memory.NewUserRepository([]domain.User{
		{Username: "johndoe", FullName: "John Doe", Email: "johndoe@example.com", HashedPassword: string(hash)},
		{Username: "alice", FullName: "Alice", Email: "alice@example.com", HashedPassword: string(hash), Disabled: true},
	})
	require.NoError(t, err)

	db, err := sqlstore.Open("sqlite://:memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	records := service.NewRecordService(sqlstore.NewFileRepository(db), sqlstore.NewCDRRepository(db), sqlstore.NewRevenueRepository(db))
	require.NoError(t, records.Init(context.Background()))

	env := &testEnv{
		agent:   &fakeAgent{result: agent.Result{Response: "There were 42 calls.", Status: agent.StatusSuccess}},
		records: records,
		now:     time.Now(),
	}
	issuer, err := auth.NewIssuer([]byte("test-secret"), 30*time.Minute, auth.WithClock(func() time.Time { return env.now }))
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env.router = gin.New()
	NewHandler(service.NewUserService(users), issuer, env.agent, records, fakeModel{}, logger).
		RegisterRoutes(env.router, []string{"http://localhost:3000"})
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) login(t *testing.T, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return e.do(req)
}

func (e *testEnv) token(t *testing.T, username string) string {
	t.Helper()
	rec := e.login(t, username, "secret")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func authed(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func uploadRequest(t *testing.T, names ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("caller,receiver,duration\n"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestLogin_IssuesUsableToken(t *testing.T) {
	env := newTestEnv(t)

	rec := env.login(t, "johndoe", "secret")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "bearer", body["token_type"])
	require.NotEmpty(t, body["access_token"])

	rec = env.do(authed(httptest.NewRequest(http.MethodGet, "/users/me", nil), body["access_token"].(string)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"johndoe","email":"johndoe@example.com","full_name":"John Doe","disabled":false}`, rec.Body.String())
}

func TestLogin_Rejected(t *testing.T) {
	env := newTestEnv(t)

	for _, tc := range []struct{ name, username, password string }{
		{"wrong password", "johndoe", "wrong"},
		{"unknown user", "mallory", "secret"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.login(t, tc.username, tc.password)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			assert.Equal(t, "Incorrect username or password", decode(t, rec)["detail"])
		})
	}
}

func TestLogin_MissingFields(t *testing.T) {
	env := newTestEnv(t)
	rec := env.login(t, "johndoe", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestProtectedRoutes_RejectBadTokens(t *testing.T) {
	env := newTestEnv(t)
	valid := env.token(t, "johndoe")
	env.now = env.now.Add(31 * time.Minute)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/users/me"},
		{http.MethodPost, "/query?query=hi"},
		{http.MethodPost, "/upload"},
		{http.MethodGet, "/files"},
	}
	headers := map[string]string{
		"expired":   "Bearer " + valid,
		"missing":   "",
		"malformed": "Bearer not-a-jwt",
		"scheme":    "Basic am9obmRvZTpzZWNyZXQ=",
	}

	for _, route := range routes {
		for name, header := range headers {
			t.Run(route.path+"/"+name, func(t *testing.T) {
				req := httptest.NewRequest(route.method, route.path, nil)
				if header != "" {
					req.Header.Set("Authorization", header)
				}
				rec := env.do(req)
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			})
		}
	}
	assert.Empty(t, env.agent.queries)
}

func TestProtectedRoutes_InactiveUser(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "alice")

	rec := env.do(authed(httptest.NewRequest(http.MethodGet, "/users/me", nil), token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Inactive user", decode(t, rec)["detail"])

	rec = env.do(authed(httptest.NewRequest(http.MethodPost, "/query?query=hi", nil), token))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, env.agent.queries)
}

func TestQuery_Sources(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "johndoe")

	fromURL := httptest.NewRequest(http.MethodPost, "/query?query="+url.QueryEscape("How many calls last month?"), nil)

	fromForm := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("query=Revenue+by+region"))
	fromForm.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	fromJSON := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":"Top callers"}`))
	fromJSON.Header.Set("Content-Type", "application/json")

	for _, req := range []*http.Request{fromURL, fromForm, fromJSON} {
		rec := env.do(authed(req, token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"response":"There were 42 calls.","status":"success"}`, rec.Body.String())
	}
	assert.Equal(t, []string{"How many calls last month?", "Revenue by region", "Top callers"}, env.agent.queries)
}

func TestQuery_AgentErrorIsSoft(t *testing.T) {
	env := newTestEnv(t)
	env.agent.result = agent.Result{Response: "inference server unavailable", Status: agent.StatusError}
	token := env.token(t, "johndoe")

	rec := env.do(authed(httptest.NewRequest(http.MethodPost, "/query?query=hi", nil), token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":"inference server unavailable","status":"error"}`, rec.Body.String())
}

func TestQuery_Missing(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "johndoe")

	emptyJSON := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{}`))
	emptyJSON.Header.Set("Content-Type", "application/json")

	for _, req := range []*http.Request{httptest.NewRequest(http.MethodPost, "/query", nil), emptyJSON} {
		rec := env.do(authed(req, token))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, "query is required", decode(t, rec)["detail"])
	}
	assert.Empty(t, env.agent.queries)
}

func TestQuery_BlankIsPassedThrough(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "johndoe")

	blankJSON := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"query":""}`))
	blankJSON.Header.Set("Content-Type", "application/json")

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodPost, "/query?query=", nil),
		httptest.NewRequest(http.MethodPost, "/query?query=%20%20", nil),
		blankJSON,
	} {
		rec := env.do(authed(req, token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "success", decode(t, rec)["status"])
	}
	assert.Equal(t, []string{"", "  ", ""}, env.agent.queries)
}

func TestUpload_EchoesFilenamesWithoutStoring(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "johndoe")
	ctx := context.Background()

	before, err := env.records.Counts(ctx)
	require.NoError(t, err)

	rec := env.do(authed(uploadRequest(t, "cdr_2024_01.csv", "revenue_q1.xlsx", "notes.txt"), token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"cdr_2024_01.csv", "revenue_q1.xlsx", "notes.txt"}, resp.Filenames)
	assert.Equal(t, "Files received", resp.Status)

	after, err := env.records.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	rec = env.do(authed(httptest.NewRequest(http.MethodGet, "/files", nil), token))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"files":[]}`, rec.Body.String())
}

func TestUpload_NoFiles(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "johndoe")

	rec := env.do(authed(uploadRequest(t), token))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.do(authed(httptest.NewRequest(http.MethodPost, "/upload", nil), token))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "Qwen1.5-7B", body["model"].(map[string]any)["name"])
	assert.Equal(t, map[string]any{"files": 0.0, "cdr_records": 0.0, "revenue_records": 0.0}, body["records"])
}

func TestHealth_Degraded(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	router := gin.New()
	NewHandler(nil, nil, &fakeAgent{}, brokenRecords{}, nil, logger).RegisterRoutes(router, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"degraded"}`, rec.Body.String())
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,content-type")
	rec := env.do(req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "authorization,content-type", rec.Header().Get("Access-Control-Allow-Headers"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/query", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = env.do(req)
	assert.NotEqual(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/query", nil)
	rec = env.do(req)
	assert.NotEqual(t, http.StatusNoContent, rec.Code)
}

func TestRequestID(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	assert.Equal(t, "req-123", env.do(req).Header().Get(requestIDHeader))

	generated := env.do(httptest.NewRequest(http.MethodGet, "/health", nil)).Header().Get(requestIDHeader)
	assert.Len(t, generated, 36)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer   abc", "abc", true},
		{"Bearer ", "", false},
		{"Token abc", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := bearerToken(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}
