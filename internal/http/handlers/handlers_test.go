package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/sousadfs/supermercado-happe/internal/middleware"
	"github.com/sousadfs/supermercado-happe/internal/models"
	"github.com/sousadfs/supermercado-happe/internal/session"
	"github.com/sousadfs/supermercado-happe/internal/storage"
	"github.com/sousadfs/supermercado-happe/internal/views"
)

// memStore is an in-memory storage.UserStore for handler tests.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]models.User
}

var _ storage.UserStore = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{users: make(map[int64]models.User)}
}

func (m *memStore) CreateUser(_ context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return models.User{}, storage.ErrDuplicateEmail
		}
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	m.users[user.ID] = user
	return user, nil
}

func (m *memStore) FindByID(_ context.Context, id int64) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (m *memStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (m *memStore) FindByFacebookID(_ context.Context, facebookID string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.FacebookID != "" && u.FacebookID == facebookID {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (m *memStore) UpdateProfile(_ context.Context, id int64, update storage.ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	for otherID, u := range m.users {
		if otherID != id && u.Email == update.Email {
			return storage.ErrDuplicateEmail
		}
	}
	user.Email = update.Email
	user.Name = update.Name
	user.Gender = update.Gender
	user.Location = update.Location
	user.Website = update.Website
	m.users[id] = user
	return nil
}

func (m *memStore) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	user.PasswordHash = passwordHash
	m.users[id] = user
	return nil
}

func (m *memStore) SetResetToken(_ context.Context, email, token string, expires time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Email == email {
			u.PasswordResetToken = &token
			u.PasswordResetExpires = &expires
			m.users[id] = u
			return nil
		}
	}
	return storage.ErrNotFound
}

func (m *memStore) FindByResetToken(_ context.Context, token string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == token &&
			u.PasswordResetExpires != nil && time.Now().Before(*u.PasswordResetExpires) {
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (m *memStore) ResetPassword(_ context.Context, token, passwordHash string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == token &&
			u.PasswordResetExpires != nil && time.Now().Before(*u.PasswordResetExpires) {
			u.PasswordHash = passwordHash
			u.PasswordResetToken = nil
			u.PasswordResetExpires = nil
			m.users[id] = u
			return u, nil
		}
	}
	return models.User{}, storage.ErrNotFound
}

func (m *memStore) LinkFacebook(_ context.Context, id int64, facebookID, accessToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return storage.ErrNotFound
	}
	user.FacebookID = facebookID
	user.FacebookToken = accessToken
	m.users[id] = user
	return nil
}

func (m *memStore) UnlinkProvider(_ context.Context, id int64, kind string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil
	}
	if kind == models.ProviderFacebook {
		user.FacebookID = ""
		user.FacebookToken = ""
		m.users[id] = user
	}
	return nil
}

func (m *memStore) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
	return nil
}

// fakeMailer records outgoing notifications.
type fakeMailer struct {
	mu        sync.Mutex
	failWith  error
	resetTo   []string
	resetURLs []string
	changedTo []string
}

func (f *fakeMailer) SendPasswordReset(_ context.Context, to, resetURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.resetTo = append(f.resetTo, to)
	f.resetURLs = append(f.resetURLs, resetURL)
	return nil
}

func (f *fakeMailer) SendPasswordChanged(_ context.Context, to string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.changedTo = append(f.changedTo, to)
	return nil
}

// testApp spins up the full middleware+handler chain (without the CSRF
// wrapper, which is exercised at the server level) over httptest.
type testApp struct {
	store    *memStore
	sessions *session.Store
	mailer   *fakeMailer
	ts       *httptest.Server
	client   *http.Client
}

func newTestApp(t *testing.T, opts ...func(*Config)) *testApp {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "miniredis start")
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	sessions := session.NewStore(rdb, "sess", time.Hour)
	codec := session.NewCookieCodec("segredo-de-teste", "happe-test", time.Hour)

	renderer, err := views.New()
	require.NoError(t, err, "parse templates")

	store := newMemStore()
	mailer := &fakeMailer{}

	cfg := Config{
		Store:    store,
		Sessions: sessions,
		Cookies:  codec,
		Renderer: renderer,
		Mailer:   mailer,
		Logger:   zap.NewNop(),
		BaseURL:  "http://happe.test",
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	mux := http.NewServeMux()
	New(cfg).Register(mux)
	NewHealthHandler(time.Now()).Register(mux)

	loader := middleware.NewSessionLoader(sessions, codec, zap.NewNop(), false)
	ts := httptest.NewServer(loader.Load(mux))
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testApp{store: store, sessions: sessions, mailer: mailer, ts: ts, client: client}
}

func (a *testApp) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := a.client.Get(a.ts.URL + path)
	require.NoError(t, err)
	return resp
}

func (a *testApp) postForm(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := a.client.PostForm(a.ts.URL+path, form)
	require.NoError(t, err)
	return resp
}

// body reads and closes the response body.
func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

// followToPage follows redirects until a 200 page and returns its body,
// where queued flash notices render.
func (a *testApp) followToPage(t *testing.T, resp *http.Response) string {
	t.Helper()
	for i := 0; i < 5; i++ {
		if resp.StatusCode < 300 || resp.StatusCode >= 400 {
			return body(t, resp)
		}
		location := resp.Header.Get("Location")
		require.NotEmpty(t, location, "redirect without Location header")
		resp.Body.Close()
		resp = a.get(t, location)
	}
	t.Fatal("too many redirects")
	return ""
}

// signup registers a user through the handler and leaves the client
// logged in.
func (a *testApp) signup(t *testing.T, email, password string) {
	t.Helper()
	resp := a.postForm(t, "/registrar", url.Values{
		"email":           {email},
		"password":        {password},
		"confirmPassword": {password},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
}

// loginAs signs the client in through the login form.
func (a *testApp) loginAs(t *testing.T, email, password string) {
	t.Helper()
	resp := a.postForm(t, "/entrar", url.Values{
		"email":    {email},
		"password": {password},
	})
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
}

// seedUser inserts a user directly into the store.
func (a *testApp) seedUser(t *testing.T, email, password string) models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user, err := a.store.CreateUser(context.Background(), models.User{
		Email:        email,
		PasswordHash: string(hash),
	})
	require.NoError(t, err)
	return user
}

func redirectTarget(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	require.GreaterOrEqual(t, resp.StatusCode, 300)
	require.Less(t, resp.StatusCode, 400)
	return resp.Header.Get("Location")
}

func assertContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected page to contain %q", needle)
	}
}
