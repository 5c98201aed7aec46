package api

import (
	"context"
	"crypto/sha256"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"feedback_system/internal/auth"
	"feedback_system/internal/config"
	"feedback_system/internal/db"
	"feedback_system/internal/domain"
	"feedback_system/internal/middleware"
	"feedback_system/internal/service"
	"feedback_system/internal/session"
	"feedback_system/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testApp struct {
	server *httptest.Server
	db     *gorm.DB
}

// browser is one client with its own cookie jar; redirects are not followed
type browser struct {
	t      *testing.T
	app    *testApp
	client *http.Client
	token  string // Masked CSRF token taken from a rendered form
}

var csrfInput = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWith(t, session.NewCookieStore("test-secret", session.CookieOptions{TTL: time.Hour}))
}

func newTestAppWith(t *testing.T, sessions session.Store) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	conn, err := db.Open(&config.Config{DBDriver: config.DriverSQLite, DatabaseURL: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(conn))

	hasher, err := auth.NewHasher(bcrypt.MinCost)
	require.NoError(t, err)
	users := store.NewUserStore(conn)
	feedback := store.NewFeedbackStore(conn)

	router, err := NewRouter(Deps{
		DB:       conn,
		Accounts: service.NewAccountService(users, feedback, hasher),
		Feedback: service.NewFeedbackService(feedback),
		Sessions: sessions,
		CSRFKey:  testCSRFKey(),
	})
	require.NoError(t, err)

	app := &testApp{server: httptest.NewServer(router), db: conn}
	t.Cleanup(func() {
		app.server.Close()
		_ = db.Close(conn)
	})
	return app
}

func (a *testApp) browser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &browser{t: t, app: a, client: client}
}

type page struct {
	status   int
	location string
	body     string
}

func (b *browser) do(req *http.Request) page {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return page{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body)}
}

func (b *browser) get(path string) page {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.app.server.URL+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

// csrfToken reads the hidden field from the login form once per browser
func (b *browser) csrfToken() string {
	b.t.Helper()
	if b.token == "" {
		p := b.get("/login")
		m := csrfInput.FindStringSubmatch(p.body)
		require.Len(b.t, m, 2, "login form carries a CSRF field")
		b.token = html.UnescapeString(m[1])
	}
	return b.token
}

// post submits a form the way the rendered pages do, token included
func (b *browser) post(path string, values url.Values) page {
	b.t.Helper()
	form := url.Values{}
	for k, v := range values {
		form[k] = v
	}
	form.Set("csrf_token", b.csrfToken())
	return b.postRaw(path, form)
}

// postRaw submits values exactly as given
func (b *browser) postRaw(path string, values url.Values) page {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.app.server.URL+path, strings.NewReader(values.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) register(username string) page {
	b.t.Helper()
	return b.post("/register", url.Values{
		"username":   {username},
		"password":   {"pw-" + username},
		"email":      {username + "@example.com"},
		"first_name": {"First"},
		"last_name":  {"Last"},
	})
}

func (b *browser) addFeedback(username, title, content string) uint {
	b.t.Helper()
	p := b.post("/users/"+username+"/feedback/add", url.Values{"title": {title}, "content": {content}})
	require.Equal(b.t, http.StatusSeeOther, p.status, p.body)
	var fb domain.Feedback
	require.NoError(b.t, b.app.db.Where("username = ? AND title = ?", username, title).Last(&fb).Error)
	return fb.ID
}

func (b *browser) cookie(name string) string {
	u, err := url.Parse(b.app.server.URL)
	require.NoError(b.t, err)
	for _, c := range b.client.Jar.Cookies(u) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}

func testCSRFKey() []byte {
	sum := sha256.Sum256([]byte("test-csrf"))
	return sum[:]
}

func (a *testApp) count(model any, where ...any) int64 {
	var n int64
	q := a.db.Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	q.Count(&n)
	return n
}

func TestHomeRedirectsToRegister(t *testing.T) {
	b := newTestApp(t).browser(t)

	p := b.get("/")

	assert.Equal(t, http.StatusSeeOther, p.status)
	assert.Equal(t, "/register", p.location)
}

func TestRegisterAuthenticatesSession(t *testing.T) {
	b := newTestApp(t).browser(t)

	p := b.register("alice")
	require.Equal(t, http.StatusSeeOther, p.status, p.body)
	assert.Equal(t, "/users/alice", p.location)

	profile := b.get("/users/alice")
	assert.Equal(t, http.StatusOK, profile.status)
	assert.Contains(t, profile.body, "Registration successful!")
	assert.Contains(t, profile.body, "alice@example.com")
	assert.NotContains(t, profile.body, "pw-alice")

	// Flashes are shown once
	assert.NotContains(t, b.get("/users/alice").body, "Registration successful!")
}

func TestRegisterValidationErrors(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	p := b.post("/register", url.Values{
		"username":   {strings.Repeat("a", 21)},
		"password":   {""},
		"email":      {"not-an-email"},
		"first_name": {"First"},
		"last_name":  {""},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, p.status)
	assert.Contains(t, p.body, "Field cannot be longer than 20 characters.")
	assert.Contains(t, p.body, "Invalid email address.")
	assert.Contains(t, p.body, "This field is required.")
	assert.Contains(t, p.body, `value="First"`, "valid input is kept")
	assert.Zero(t, app.count(&domain.User{}))
}

func TestRegisterDuplicateIsRecoverable(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusSeeOther, app.browser(t).register("alice").status)

	b := app.browser(t)
	p := b.register("alice")
	assert.Equal(t, http.StatusUnprocessableEntity, p.status)
	assert.Contains(t, p.body, "Username is already taken.")

	p = b.post("/register", url.Values{
		"username":   {"bob"},
		"password":   {"pw"},
		"email":      {"alice@example.com"},
		"first_name": {"Bob"},
		"last_name":  {"B"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, p.status)
	assert.Contains(t, p.body, "Email is already registered.")

	assert.Equal(t, int64(1), app.count(&domain.User{}))
	// The failed attempts did not log this browser in
	assert.Equal(t, "/login", b.get("/users/alice").location)
}

func TestLoginSuccessAndGenericFailure(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusSeeOther, app.browser(t).register("alice").status)
	b := app.browser(t)

	wrongPassword := b.post("/login", url.Values{"username": {"alice"}, "password": {"nope"}})
	unknownUser := b.post("/login", url.Values{"username": {"mallory"}, "password": {"pw-alice"}})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.status)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.status)
	assert.Contains(t, wrongPassword.body, "Invalid username or password.")
	assert.Contains(t, unknownUser.body, "Invalid username or password.")
	assert.Equal(t, "/login", b.get("/users/alice").location)

	ok := b.post("/login", url.Values{"username": {"alice"}, "password": {"pw-alice"}})
	require.Equal(t, http.StatusSeeOther, ok.status)
	assert.Equal(t, "/users/alice", ok.location)
	profile := b.get("/users/alice")
	assert.Equal(t, http.StatusOK, profile.status)
	assert.Contains(t, profile.body, "Login successful!")
}

func TestLoginRequiresFields(t *testing.T) {
	b := newTestApp(t).browser(t)

	p := b.post("/login", url.Values{"username": {""}, "password": {""}})

	assert.Equal(t, http.StatusUnprocessableEntity, p.status)
	assert.Contains(t, p.body, "This field is required.")
}

func TestGuardRejectsOtherUser(t *testing.T) {
	app := newTestApp(t)
	require.Equal(t, http.StatusSeeOther, app.browser(t).register("bob").status)
	alice := app.browser(t)
	require.Equal(t, http.StatusSeeOther, alice.register("alice").status)

	tests := []struct {
		name string
		call func() page
	}{
		{"profile", func() page { return alice.get("/users/bob") }},
		{"delete", func() page { return alice.post("/users/bob/delete", nil) }},
		{"add form", func() page { return alice.get("/users/bob/feedback/add") }},
		{"add", func() page {
			return alice.post("/users/bob/feedback/add", url.Values{"title": {"t"}, "content": {"c"}})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.call()
			assert.Equal(t, http.StatusSeeOther, p.status)
			assert.Equal(t, "/login", p.location)
		})
	}

	assert.Equal(t, int64(1), app.count(&domain.User{}, "username = ?", "bob"))
	assert.Zero(t, app.count(&domain.Feedback{}))
	assert.Contains(t, alice.get("/login").body, middleware.NotAuthorizedMessage)
}

func TestDeleteAccountCascades(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	require.Equal(t, http.StatusSeeOther, b.register("alice").status)
	first := b.addFeedback("alice", "one", "first")
	second := b.addFeedback("alice", "two", "second")

	p := b.post("/users/alice/delete", nil)
	assert.Equal(t, http.StatusSeeOther, p.status)
	assert.Equal(t, "/", p.location)

	assert.Zero(t, app.count(&domain.User{}))
	assert.Zero(t, app.count(&domain.Feedback{}, "username = ?", "alice"))
	assert.Contains(t, b.get("/register").body, "Your account has been deleted.")

	// The rows are gone, which is reported before any ownership check
	assert.Equal(t, http.StatusNotFound, b.get("/feedback/"+itoa(first)+"/update").status)
	assert.Equal(t, http.StatusNotFound, b.post("/feedback/"+itoa(second)+"/delete", nil).status)
	assert.Equal(t, "/login", b.get("/users/alice").location)
}

func TestUpdateFeedbackOwnership(t *testing.T) {
	app := newTestApp(t)
	alice := app.browser(t)
	require.Equal(t, http.StatusSeeOther, alice.register("alice").status)
	id := alice.addFeedback("alice", "Original", "original body")
	bob := app.browser(t)
	require.Equal(t, http.StatusSeeOther, bob.register("bob").status)

	path := "/feedback/" + itoa(id) + "/update"
	assert.Equal(t, "/login", bob.get(path).location)
	p := bob.post(path, url.Values{"title": {"Hacked"}, "content": {"pwned"}})
	assert.Equal(t, http.StatusSeeOther, p.status)
	assert.Equal(t, "/login", p.location)

	form := alice.get(path)
	assert.Equal(t, http.StatusOK, form.status)
	assert.Contains(t, form.body, `value="Original"`)
	assert.Contains(t, form.body, "original body")

	invalid := alice.post(path, url.Values{"title": {strings.Repeat("t", 101)}, "content": {"x"}})
	assert.Equal(t, http.StatusUnprocessableEntity, invalid.status)
	assert.Contains(t, invalid.body, "Field cannot be longer than 100 characters.")

	p = alice.post(path, url.Values{"title": {"Edited"}, "content": {"edited body"}})
	assert.Equal(t, http.StatusSeeOther, p.status)
	assert.Equal(t, "/users/alice", p.location)

	profile := alice.get("/users/alice")
	assert.Contains(t, profile.body, "Edited")
	assert.Contains(t, profile.body, "edited body")
	assert.Contains(t, profile.body, "Feedback updated successfully.")
	assert.NotContains(t, profile.body, "Hacked")
}

func TestDeleteFeedbackOwnership(t *testing.T) {
	app := newTestApp(t)
	alice := app.browser(t)
	require.Equal(t, http.StatusSeeOther, alice.register("alice").status)
	id := alice.addFeedback("alice", "Mine", "body")
	bob := app.browser(t)
	require.Equal(t, http.StatusSeeOther, bob.register("bob").status)

	path := "/feedback/" + itoa(id) + "/delete"
	assert.Equal(t, "/login", bob.post(path, nil).location)
	assert.Equal(t, int64(1), app.count(&domain.Feedback{}))

	p := alice.post(path, nil)
	assert.Equal(t, "/users/alice", p.location)
	assert.Zero(t, app.count(&domain.Feedback{}))
	assert.Equal(t, http.StatusNotFound, alice.post(path, nil).status)
}

func TestMissingFeedbackIsNotFoundBeforeOwnership(t *testing.T) {
	b := newTestApp(t).browser(t)

	assert.Equal(t, http.StatusNotFound, b.get("/feedback/999/update").status)
	assert.Equal(t, http.StatusNotFound, b.post("/feedback/999/delete", nil).status)
	assert.Equal(t, http.StatusNotFound, b.get("/feedback/abc/update").status)
}

func TestAddFeedbackValidation(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	require.Equal(t, http.StatusSeeOther, b.register("alice").status)

	form := b.get("/users/alice/feedback/add")
	assert.Equal(t, http.StatusOK, form.status)
	assert.Contains(t, form.body, "Add Feedback")

	p := b.post("/users/alice/feedback/add", url.Values{"title": {"Only title"}, "content": {""}})
	assert.Equal(t, http.StatusUnprocessableEntity, p.status)
	assert.Contains(t, p.body, `value="Only title"`)
	assert.Zero(t, app.count(&domain.Feedback{}))
}

func TestLogoutClearsAuthentication(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	require.Equal(t, http.StatusSeeOther, b.register("alice").status)
	id := b.addFeedback("alice", "t", "c")

	p := b.get("/logout")
	assert.Equal(t, http.StatusSeeOther, p.status)
	assert.Equal(t, "/", p.location)
	assert.Contains(t, b.get("/register").body, "You have been logged out successfully.")

	assert.Equal(t, "/login", b.get("/users/alice").location)
	assert.Equal(t, "/login", b.post("/users/alice/delete", nil).location)
	assert.Equal(t, "/login", b.get("/users/alice/feedback/add").location)
	assert.Equal(t, "/login", b.get("/feedback/"+itoa(id)+"/update").location)
	assert.Equal(t, int64(1), app.count(&domain.User{}))
}

func TestUnknownRouteAndMethod(t *testing.T) {
	b := newTestApp(t).browser(t)

	assert.Equal(t, http.StatusNotFound, b.get("/nope").status)
	assert.Equal(t, http.StatusMethodNotAllowed, b.post("/logout", nil).status)
}

func TestHealth(t *testing.T) {
	app := newTestApp(t)
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, app.server.URL+"/healthz", nil)
	require.NoError(t, err)

	p := app.browser(t).do(req)

	assert.Equal(t, http.StatusOK, p.status)
	assert.Equal(t, "ok", p.body)
}

func TestPostWithoutCSRFTokenIsRejected(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	require.Equal(t, http.StatusSeeOther, b.register("alice").status)
	id := b.addFeedback("alice", "keep", "me")

	tests := []struct {
		name   string
		path   string
		values url.Values
	}{
		{"delete account", "/users/alice/delete", nil},
		{"delete feedback", "/feedback/" + itoa(id) + "/delete", nil},
		{"update feedback", "/feedback/" + itoa(id) + "/update", url.Values{"title": {"x"}, "content": {"y"}}},
		{"add feedback", "/users/alice/feedback/add", url.Values{"title": {"x"}, "content": {"y"}}},
		{"forged token", "/users/alice/delete", url.Values{"csrf_token": {"forged"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := b.postRaw(tt.path, tt.values)
			assert.Equal(t, http.StatusForbidden, p.status)
			assert.Contains(t, p.body, "The form has expired.")
		})
	}

	assert.Equal(t, int64(1), app.count(&domain.User{}))
	assert.Equal(t, int64(1), app.count(&domain.Feedback{}, "title = ?", "keep"))
	// The session survived the rejected requests
	assert.Equal(t, http.StatusOK, b.get("/users/alice").status)
}

func TestFormsCarryCSRFField(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)
	require.Equal(t, http.StatusSeeOther, b.register("alice").status)
	b.addFeedback("alice", "t", "c")

	for _, path := range []string{"/register", "/login", "/users/alice/feedback/add"} {
		assert.Regexp(t, csrfInput, b.get(path).body, path)
	}
	// Account delete plus one feedback delete
	assert.Len(t, csrfInput.FindAllString(b.get("/users/alice").body, -1), 2)
}

func TestRegisterRejectsUnroutableUsername(t *testing.T) {
	app := newTestApp(t)
	b := app.browser(t)

	for _, name := range []string{"a/b", "a?b", "a#b", "a%2Fb", ".."} {
		p := b.register(name)
		assert.Equal(t, http.StatusUnprocessableEntity, p.status, name)
		assert.Contains(t, p.body, "Use only letters, digits, underscores and hyphens.", name)
	}
	assert.Zero(t, app.count(&domain.User{}))

	p := b.register("a_b-1")
	require.Equal(t, http.StatusSeeOther, p.status)
	assert.Equal(t, http.StatusOK, b.get(p.location).status)
}

func TestRedisSessionsLoginAndLogout(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	app := newTestAppWith(t, session.NewRedisStore(rdb, session.CookieOptions{TTL: time.Hour}))
	require.Equal(t, http.StatusSeeOther, app.browser(t).register("alice").status)
	mr.FlushAll()

	b := app.browser(t)
	b.csrfToken()
	// An anonymous session holding the guard's flash
	require.Equal(t, "/login", b.get("/users/alice").location)
	anonymous := b.cookie("session_id")
	require.NotEmpty(t, anonymous)
	require.True(t, mr.Exists("session:"+anonymous))

	p := b.post("/login", url.Values{"username": {"alice"}, "password": {"pw-alice"}})
	require.Equal(t, http.StatusSeeOther, p.status, p.body)
	authenticated := b.cookie("session_id")
	assert.NotEqual(t, anonymous, authenticated, "login issues a new session id")
	assert.False(t, mr.Exists("session:"+anonymous))
	assert.True(t, mr.Exists("session:"+authenticated))

	profile := b.get("/users/alice")
	assert.Equal(t, http.StatusOK, profile.status)
	assert.Contains(t, profile.body, "Login successful!")

	require.Equal(t, "/", b.get("/logout").location)
	assert.False(t, mr.Exists("session:"+authenticated))
	assert.Contains(t, b.get("/register").body, "You have been logged out successfully.")

	// Nothing left to keep once the flash is shown
	assert.Empty(t, mr.Keys())
	assert.Empty(t, b.cookie("session_id"))
	assert.Equal(t, "/login", b.get("/users/alice").location)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
