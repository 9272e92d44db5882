package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-session-auth/auth"
	"github.com/jrsteele09/go-session-auth/internal/config"
	"github.com/jrsteele09/go-session-auth/pii"
	"github.com/jrsteele09/go-session-auth/server"
	"github.com/jrsteele09/go-session-auth/sessions"
	"github.com/jrsteele09/go-session-auth/token"
	"github.com/jrsteele09/go-session-auth/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-session-auth/token/refresh/repofake"
	"github.com/jrsteele09/go-session-auth/users"
	fakeuserrepo "github.com/jrsteele09/go-session-auth/users/repofake"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	signingKey    = "server-test-signing-key"
	issuer        = "com.testissuer"
	audience      = "api"
	encryptionKey = "server-test-encryption-key"
	encryptionIV  = "0123456789abcdef"
	cookieName    = "session_id"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type serverFixture struct {
	now         time.Time
	userRepo    *fakeuserrepo.FakeUserRepo
	refreshRepo *refreshrepofake.FakeRefreshTokenRepo
	store       *sessions.InMemoryStore
	service     *auth.Service
	tokens      *token.Manager
	bridge      *sessions.Bridge
	health      server.Pinger
	httpServer  *httptest.Server
	client      *http.Client
}

func setEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("APP_NAME", "Session Auth")
	t.Setenv("JWT_KEY", signingKey)
	t.Setenv("JWT_ISSUER", issuer)
	t.Setenv("JWT_AUDIENCE", audience)
	t.Setenv("JWT_ACCESS_TOKEN_EXPIRATION_MINUTES", "15")
	t.Setenv("JWT_REFRESH_TOKEN_EXPIRATION_DAYS", "7")
	t.Setenv("JWT_REFRESH_TOKEN_EXPIRATION_MINUTES", "")
	t.Setenv("ENCRYPTION_KEY", encryptionKey)
	t.Setenv("ENCRYPTION_IV", encryptionIV)
	t.Setenv("PII_MODE", "")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SESSION_STORE", "")
	t.Setenv("SESSION_COOKIE_NAME", cookieName)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example")
	t.Setenv("ADMIN_USERNAME", "")
	t.Setenv("ADMIN_PASSWORD", "")
	t.Setenv("ADMIN_EMAIL", "")
}

func newFixture(t *testing.T) *serverFixture {
	t.Helper()

	f := &serverFixture{
		now:         time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
		userRepo:    fakeuserrepo.NewFakeUserRepo(),
		refreshRepo: refreshrepofake.NewFakeRefreshTokenRepo(),
		store:       sessions.NewInMemoryStore(30 * time.Minute),
	}

	protector, err := pii.NewDeterministicCipher(encryptionKey, encryptionIV)
	require.NoError(t, err)
	ledger, err := refresh.NewManager(f.refreshRepo, 7*24*time.Hour)
	require.NoError(t, err)
	signer, err := token.NewHMACSigner(signingKey)
	require.NoError(t, err)
	f.tokens, err = token.NewManager(signer, ledger, f.userRepo,
		token.WithIssuer(issuer),
		token.WithAudience(audience),
		token.WithAccessTokenExpiry(15*time.Minute),
		token.WithNowFunc(func() time.Time { return f.now }),
	)
	require.NoError(t, err)
	hasher, err := users.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)

	f.service, err = auth.NewService(auth.Repos{Users: f.userRepo, Sessions: f.store}, protector, hasher, f.tokens)
	require.NoError(t, err)
	f.bridge = sessions.NewBridge(f.store, f.tokens)
	return f
}

// start builds the server from the current environment and a client that
// keeps cookies but does not follow redirects.
func (f *serverFixture) start(t *testing.T) {
	t.Helper()

	cfg, err := config.FromEnvironment()
	require.NoError(t, err)

	s, err := server.New(cfg, server.Dependencies{
		Auth:   f.service,
		Tokens: f.tokens,
		Bridge: f.bridge,
		Health: f.health,
	})
	require.NoError(t, err)

	f.httpServer = httptest.NewServer(s)
	t.Cleanup(f.httpServer.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	f.client = &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (f *serverFixture) url(path string) string {
	return f.httpServer.URL + path
}

func (f *serverFixture) postForm(t *testing.T, path string, values url.Values) *http.Response {
	t.Helper()
	resp, err := f.client.PostForm(f.url(path), values)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *serverFixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := f.client.Get(f.url(path))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *serverFixture) register(t *testing.T, username, password, roleID string) {
	t.Helper()
	resp := f.postForm(t, server.RouteAuthRegister, url.Values{
		"username":  {username},
		"email":     {username + "@example.com"},
		"firstName": {"First"},
		"lastName":  {"Last"},
		"password":  {password},
		"roleId":    {roleID},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteAuthLogin, resp.Header.Get("Location"))
}

func (f *serverFixture) login(t *testing.T, username, password string) *http.Response {
	t.Helper()
	return f.postForm(t, server.RouteAuthLogin, url.Values{
		"username": {username},
		"password": {password},
	})
}

func (f *serverFixture) sessionCookie(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(f.httpServer.URL)
	require.NoError(t, err)
	for _, c := range f.client.Jar.Cookies(u) {
		if c.Name == cookieName {
			return c.Value
		}
	}
	return ""
}

type tokenTest struct {
	Message      string
	UserId       string
	Role         string
	ExpiresAt    string
	AccessToken  string
	RefreshToken string
}

func (f *serverFixture) tokenTest(t *testing.T) tokenTest {
	t.Helper()
	resp := f.get(t, server.RouteTokenTest)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	var body tokenTest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestNewRequiresDependencies(t *testing.T) {
	setEnv(t)
	cfg, err := config.FromEnvironment()
	require.NoError(t, err)

	_, err = server.New(cfg, server.Dependencies{})
	require.Error(t, err)
}

func TestRegisterAndLoginLandByRole(t *testing.T) {
	setEnv(t)
	f := newFixture(t)
	f.start(t)

	f.register(t, "alice", "pw1", "2")
	f.register(t, "root", "pw2", "1")

	resp := f.login(t, "alice", "pw1")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteUserIndex, resp.Header.Get("Location"))

	var sessionCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == cookieName {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)
	require.True(t, sessionCookie.HttpOnly)
	require.Equal(t, http.SameSiteLaxMode, sessionCookie.SameSite)
	require.False(t, sessionCookie.Secure)

	page := f.get(t, server.RouteUserIndex)
	require.Equal(t, http.StatusOK, page.StatusCode)
	require.Contains(t, readBody(t, page), "alice@example.com")

	forbidden := f.get(t, server.RouteAdminIndex)
	require.Equal(t, http.StatusFound, forbidden.StatusCode)
	require.Equal(t, server.RouteErrorForbidden, forbidden.Header.Get("Location"))

	admin := f.login(t, "root", "pw2")
	require.Equal(t, http.StatusSeeOther, admin.StatusCode)
	require.Equal(t, server.RouteAdminIndex, admin.Header.Get("Location"))
	require.Equal(t, http.StatusOK, f.get(t, server.RouteAdminIndex).StatusCode)
}

func TestLoginFailuresLookTheSame(t *testing.T) {
	setEnv(t)
	f := newFixture(t)
	f.start(t)
	f.register(t, "alice", "pw1", "2")

	wrongPassword := f.login(t, "alice", "nope")
	unknownUser := f.login(t, "bob", "pw1")

	for _, resp := range []*http.Response{wrongPassword, unknownUser} {
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Empty(t, resp.Cookies())
		require.Contains(t, readBody(t, resp), auth.MsgInvalidCredentials)
	}
}

func TestRegisterRejectionsRerenderForm(t *testing.T) {
	setEnv(t)
	f := newFixture(t)
	f.start(t)
	f.register(t, "alice", "pw1", "2")

	duplicate := f.postForm(t, server.RouteAuthRegister, url.Values{
		"username": {"alice"},
		"email":    {"other@example.com"},
		"password": {"pw9"},
		"roleId":   {"2"},
	})
	require.Equal(t, http.StatusOK, duplicate.StatusCode)
	body := readBody(t, duplicate)
	require.Contains(t, body, auth.MsgUsernameExists)
	require.Contains(t, body, `value="other@example.com"`)
	require.NotContains(t, body, "pw9")

	badRole := f.postForm(t, server.RouteAuthRegister, url.Values{
		"username": {"carol"},
		"email":    {"carol@example.com"},
		"password": {"pw"},
		"roleId":   {"99"},
	})
	require.Equal(t, http.StatusOK, badRole.StatusCode)
	require.Contains(t, readBody(t, badRole), auth.MsgInvalidRole)
	require.Equal(t, 1, f.userRepo.Count())
}

func TestProtectedRoutesRedirectAnonymousVisitors(t *testing.T) {
	setEnv(t)
	f := newFixture(t)
	f.start(t)

	for _, path := range []string{server.RouteTokenTest, server.RouteUserIndex, server.RouteAdminIndex} {
		resp := f.get(t, path)
		require.Equal(t, http.StatusFound, resp.StatusCode, path)
		require.Equal(t, server.RouteErrorUnauthorized, resp.Header.Get("Location"), path)
	}

	page := f.get(t, server.RouteErrorUnauthorized)
	require.Equal(t, http.StatusOK, page.StatusCode)
}

func TestBearerHeaderWithoutSession(t *testing.T) {
	setEnv(t)
	f := newFixture(t)
	f.start(t)
	f.register(t, "alice", "pw1", "2")

	result, err := f.service.Login(context.Background(), auth.LoginRequest{Username: "alice", Password: "pw1"})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, f.url(server.RouteTokenTest), nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+result.Session.AccessToken)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body tokenTest
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, result.Session.AccessToken, body.AccessToken)
	require.Empty(t, body.RefreshToken)
}

func TestTokenTestReportsClaims(t *testing.T) {
	setEnv(t)
	f := newFixture(t)
	f.start(t)
	f.register(t, "alice", "pw1", "2")
	f.login(t, "alice", "pw1")

	session, err := f.store.Get(context.Background(), f.sessionCookie(t))
	require.NoError(t, err)

	body := f.tokenTest(t)
	require.Equal(t, "Token is valid!", body.Message)
	require.Equal(t, "1", body.UserId)
	require.Equal(t, "User", body.Role)
	require.Equal(t, f.now.Add(15*time.Minute).Format("2006-01-02 15:04:05Z"), body.ExpiresAt)
	require.Equal(t, session.AccessToken, body.AccessToken)
	require.Equal(t, session.RefreshToken, body.RefreshToken)
}

func TestSilentRefreshRenewsExpiredAccessToken(t *testing.T) {
	setEnv(t)
	f := newFixture(t)
	f.start(t)
	f.register(t, "alice", "pw1", "2")
	f.login(t, "alice", "pw1")

	before := f.tokenTest(t)

	f.now = f.now.Add(16 * time.Minute)
	after := f.tokenTest(t)

	require.NotEqual(t, before.AccessToken, after.AccessToken)
	require.Equal(t, before.RefreshToken, after.RefreshToken)

	// The refresh token is still valid, the bridge never rotates it
	_, err := f.refreshRepo.GetValid(context.Background(), after.RefreshToken, time.Now())
	require.NoError(t, err)

	metrics := readBody(t, f.get(t, server.RouteMetrics))
	require.Contains(t, metrics, `session_bridge_total{outcome="renewed"} 1`)
	require.Contains(t, metrics, `session_bridge_total{outcome="unchanged"} 1`)
	require.Contains(t, metrics, `auth_logins_total{result="success"} 1`)
}

func TestSilentRefreshFailureClearsSession(t *testing.T) {
	setEnv(t)
	f := newFixture(t)
	f.start(t)
	f.register(t, "alice", "pw1", "2")
	f.login(t, "alice", "pw1")

	sessionID := f.sessionCookie(t)
	session, err := f.store.Get(context.Background(), sessionID)
	require.NoError(t, err)
	revoked, err := f.refreshRepo.Revoke(context.Background(), session.RefreshToken)
	require.NoError(t, err)
	require.True(t, revoked)

	f.now = f.now.Add(16 * time.Minute)
	resp := f.get(t, server.RouteTokenTest)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, server.RouteErrorUnauthorized, resp.Header.Get("Location"))

	_, err = f.store.Get(context.Background(), sessionID)
	require.Error(t, err)
	require.Empty(t, f.sessionCookie(t))

	metrics := readBody(t, f.get(t, server.RouteMetrics))
	require.Contains(t, metrics, `session_bridge_total{outcome="cleared"} 1`)
}

func TestLogoutDropsSession(t *testing.T) {
	setEnv(t)
	f := newFixture(t)
	f.start(t)
	f.register(t, "alice", "pw1", "2")
	f.login(t, "alice", "pw1")
	sessionID := f.sessionCookie(t)
	require.NotEmpty(t, sessionID)

	resp := f.postForm(t, server.RouteAuthLogout, url.Values{})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteHome, resp.Header.Get("Location"))

	_, err := f.store.Get(context.Background(), sessionID)
	require.Error(t, err)

	after := f.get(t, server.RouteUserIndex)
	require.Equal(t, http.StatusFound, after.StatusCode)
	require.Equal(t, server.RouteErrorUnauthorized, after.Header.Get("Location"))
}

func postRefresh(t *testing.T, f *serverFixture, body string) (*http.Response, map[string]string) {
	t.Helper()
	resp, err := http.Post(f.url(server.RouteAuthRefresh), "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Contains(t, resp.Header.Get("Content-Type"), "application/json")

	decoded := map[string]string{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestRefreshEndpointRotatesOnce(t *testing.T) {
	setEnv(t)
	f := newFixture(t)
	f.start(t)
	f.register(t, "alice", "pw1", "2")

	result, err := f.service.Login(context.Background(), auth.LoginRequest{Username: "alice", Password: "pw1"})
	require.NoError(t, err)
	original := result.Session.RefreshToken

	resp, pair := postRefresh(t, f, `"`+original+`"`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, pair["AccessToken"])
	require.NotEmpty(t, pair["RefreshToken"])
	require.NotEqual(t, original, pair["RefreshToken"])

	replay, body := postRefresh(t, f, `"`+original+`"`)
	require.Equal(t, http.StatusUnauthorized, replay.StatusCode)
	require.Equal(t, auth.MsgInvalidRefreshToken, body["message"])

	// Plain text bodies are accepted too
	plain, next := postRefresh(t, f, pair["RefreshToken"])
	require.Equal(t, http.StatusOK, plain.StatusCode)
	require.NotEqual(t, pair["RefreshToken"], next["RefreshToken"])
}

func TestRefreshEndpointRejectsGarbage(t *testing.T) {
	setEnv(t)
	f := newFixture(t)
	f.start(t)

	for _, body := range []string{"", `""`, `"unterminated`, "not-a-token"} {
		resp, decoded := postRefresh(t, f, body)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, body)
		require.Equal(t, auth.MsgInvalidRefreshToken, decoded["message"], body)
	}

	metrics := readBody(t, f.get(t, server.RouteMetrics))
	require.Contains(t, metrics, `auth_refresh_total{result="rejected"} 4`)
}

func TestRefreshCors(t *testing.T) {
	setEnv(t)
	f := newFixture(t)
	f.start(t)

	preflight := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodOptions, f.url(server.RouteAuthRefresh), nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	allowed := preflight("https://app.example")
	require.Equal(t, http.StatusNoContent, allowed.StatusCode)
	require.Equal(t, "https://app.example", allowed.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", allowed.Header.Get("Access-Control-Allow-Credentials"))
	require.Contains(t, allowed.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)

	denied := preflight("https://evil.example")
	require.Empty(t, denied.Header.Get("Access-Control-Allow-Origin"))
}

func TestHealthz(t *testing.T) {
	setEnv(t)
	f := newFixture(t)
	healthy := true
	f.health = pingerFunc(func(context.Context) error {
		if healthy {
			return nil
		}
		return context.DeadlineExceeded
	})
	f.start(t)

	require.Equal(t, http.StatusOK, f.get(t, server.RouteHealthz).StatusCode)

	healthy = false
	require.Equal(t, http.StatusServiceUnavailable, f.get(t, server.RouteHealthz).StatusCode)
}

func TestRequestIDIsEchoed(t *testing.T) {
	setEnv(t)
	f := newFixture(t)
	f.start(t)

	generated := f.get(t, server.RouteAuthLogin)
	require.Len(t, generated.Header.Get("X-Request-ID"), 26)

	req, err := http.NewRequest(http.MethodGet, f.url(server.RouteAuthLogin), nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "trace-me")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "trace-me", resp.Header.Get("X-Request-ID"))
	require.Equal(t, "SAMEORIGIN", resp.Header.Get("X-Frame-Options"))
}

func TestInitialiseSystemCreatesAdminOnce(t *testing.T) {
	setEnv(t)
	t.Setenv("ADMIN_USERNAME", "root")
	t.Setenv("ADMIN_PASSWORD", "s3cret")
	f := newFixture(t)
	f.start(t)
	require.Equal(t, 1, f.userRepo.Count())

	// A second start finds the account and leaves it alone
	f.start(t)
	require.Equal(t, 1, f.userRepo.Count())

	resp := f.login(t, "root", "s3cret")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteAdminIndex, resp.Header.Get("Location"))
}

func TestUnknownPathIsNotFound(t *testing.T) {
	setEnv(t)
	f := newFixture(t)
	f.start(t)

	require.Equal(t, http.StatusNotFound, f.get(t, "/nope").StatusCode)
	require.Equal(t, http.StatusOK, f.get(t, server.RouteHome).StatusCode)
}
