package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/evanhesketh/flask-cafe/internal/config"
	"github.com/evanhesketh/flask-cafe/internal/handler"
	"github.com/evanhesketh/flask-cafe/internal/model"
	"github.com/evanhesketh/flask-cafe/internal/repository"
	"github.com/evanhesketh/flask-cafe/internal/router"
	"github.com/evanhesketh/flask-cafe/internal/session"
	"github.com/evanhesketh/flask-cafe/internal/utils"
)

// ----- in-memory fakes satisfying the store interfaces -----

type fakeUserStore struct {
	mu   sync.Mutex
	seq  uint64
	byID map[uint64]*model.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: map[uint64]*model.User{}}
}

func (f *fakeUserStore) Create(ctx context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ex := range f.byID {
		if ex.Username == u.Username || ex.Email == u.Email {
			return repository.ErrUsernameOrEmailTaken
		}
	}
	if u.ImageURL == "" {
		u.ImageURL = model.DefaultUserImageURL
	}
	f.seq++
	u.ID = f.seq
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (f *fakeUserStore) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserStore) UpdateProfile(ctx context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ex, ok := f.byID[u.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	for id, other := range f.byID {
		if id != u.ID && other.Email == u.Email {
			return repository.ErrUsernameOrEmailTaken
		}
	}
	ex.Email = u.Email
	ex.FirstName = u.FirstName
	ex.LastName = u.LastName
	ex.Description = u.Description
	ex.ImageURL = u.ImageURL
	return nil
}

func (f *fakeUserStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeCityStore struct {
	byCode map[string]*model.City
}

func newFakeCityStore(cities ...*model.City) *fakeCityStore {
	f := &fakeCityStore{byCode: map[string]*model.City{}}
	for _, c := range cities {
		f.byCode[c.Code] = c
	}
	return f
}

func (f *fakeCityStore) Get(ctx context.Context, code string) (*model.City, error) {
	c, ok := f.byCode[code]
	if !ok {
		return nil, repository.ErrCityNotFound
	}
	return c, nil
}

func (f *fakeCityStore) ListByCode(ctx context.Context) ([]*model.City, error) {
	out := make([]*model.City, 0, len(f.byCode))
	for _, c := range f.byCode {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

type fakeCafeStore struct {
	mu     sync.Mutex
	seq    uint64
	byID   map[uint64]*model.Cafe
	cities *fakeCityStore
}

func newFakeCafeStore(cities *fakeCityStore) *fakeCafeStore {
	return &fakeCafeStore{byID: map[uint64]*model.Cafe{}, cities: cities}
}

func (f *fakeCafeStore) join(c *model.Cafe) {
	if city, ok := f.cities.byCode[c.CityCode]; ok {
		c.CityName = city.Name
		c.StateCode = city.State
	}
}

func (f *fakeCafeStore) Create(ctx context.Context, c *model.Cafe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ImageURL == "" {
		c.ImageURL = model.DefaultCafeImageURL
	}
	f.seq++
	c.ID = f.seq
	f.join(c)
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeCafeStore) GetByID(ctx context.Context, id uint64) (*model.Cafe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrCafeNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCafeStore) ListByName(ctx context.Context) ([]*model.Cafe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*model.Cafe, 0, len(f.byID))
	for _, c := range f.byID {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeCafeStore) Update(ctx context.Context, c *model.Cafe) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[c.ID]; !ok {
		return repository.ErrCafeNotFound
	}
	if c.ImageURL == "" {
		c.ImageURL = model.DefaultCafeImageURL
	}
	f.join(c)
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeCafeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byID)
}

type fakeLikeStore struct {
	mu    sync.Mutex
	edges map[[2]uint64]bool
	cafes *fakeCafeStore
}

func newFakeLikeStore(cafes *fakeCafeStore) *fakeLikeStore {
	return &fakeLikeStore{edges: map[[2]uint64]bool{}, cafes: cafes}
}

func (f *fakeLikeStore) Exists(ctx context.Context, userID, cafeID uint64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.edges[[2]uint64{userID, cafeID}], nil
}

func (f *fakeLikeStore) Add(ctx context.Context, userID, cafeID uint64) error {
	if _, err := f.cafes.GetByID(ctx, cafeID); err != nil {
		return repository.ErrCafeNotFound
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edges[[2]uint64{userID, cafeID}] = true
	return nil
}

func (f *fakeLikeStore) Remove(ctx context.Context, userID, cafeID uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.edges, [2]uint64{userID, cafeID})
	return nil
}

func (f *fakeLikeStore) ListCafesLikedBy(ctx context.Context, userID uint64) ([]*model.Cafe, error) {
	f.mu.Lock()
	ids := make([]uint64, 0)
	for edge := range f.edges {
		if edge[0] == userID {
			ids = append(ids, edge[1])
		}
	}
	f.mu.Unlock()
	var out []*model.Cafe
	for _, id := range ids {
		if c, err := f.cafes.GetByID(ctx, id); err == nil {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeLikeStore) edgeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.edges)
}

// fakeFetcher records FetchAndStore calls on a channel so tests can wait
// for the fire-and-forget goroutine.
type fetchCall struct {
	ID                   uint64
	Address, City, State string
}

type fakeFetcher struct{ calls chan fetchCall }

func newFakeFetcher() *fakeFetcher { return &fakeFetcher{calls: make(chan fetchCall, 4)} }

func (f *fakeFetcher) FetchAndStore(ctx context.Context, id uint64, address, city, state string) error {
	f.calls <- fetchCall{ID: id, Address: address, City: city, State: state}
	return nil
}

func (f *fakeFetcher) wait(t *testing.T) fetchCall {
	t.Helper()
	select {
	case call := <-f.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for map fetch")
		return fetchCall{}
	}
}

func (f *fakeFetcher) assertNone(t *testing.T) {
	t.Helper()
	select {
	case call := <-f.calls:
		t.Fatalf("unexpected map fetch: %+v", call)
	case <-time.After(50 * time.Millisecond):
	}
}

// ----- environment wiring -----

type env struct {
	e        *echo.Echo
	sessions *session.MemoryStore
	users    *fakeUserStore
	cities   *fakeCityStore
	cafes    *fakeCafeStore
	likes    *fakeLikeStore
	fetcher  *fakeFetcher
	cfg      config.Config
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cities := newFakeCityStore(&model.City{Code: "sf", Name: "San Francisco", State: "CA"})
	cafes := newFakeCafeStore(cities)
	ev := &env{
		sessions: session.NewMemoryStore(time.Hour),
		users:    newFakeUserStore(),
		cities:   cities,
		cafes:    cafes,
		likes:    newFakeLikeStore(cafes),
		fetcher:  newFakeFetcher(),
		cfg: config.Config{
			Env:             "test",
			JWTSecret:       "test-secret",
			AccessTTLMin:    15,
			SessionTTLHours: 1,
			BcryptCost:      bcrypt.MinCost,
		},
	}
	ev.e = echo.New()
	router.RegisterRoutes(ev.e, router.Deps{
		Cfg:      ev.cfg,
		Sessions: ev.sessions,
		Users:    ev.users,
		Home:     &handler.HomeHandler{Sessions: ev.sessions},
		Auth:     handler.NewAuthHandler(ev.cfg, ev.users, ev.sessions),
		Cafes: &handler.CafeHandler{
			Cafes:    ev.cafes,
			Cities:   ev.cities,
			Sessions: ev.sessions,
			Maps:     ev.fetcher,
		},
		Profile: &handler.ProfileHandler{Users: ev.users, Likes: ev.likes, Sessions: ev.sessions},
		Likes:   &handler.LikeHandler{Likes: ev.likes},
	})
	return ev
}

// addUser registers a user directly through the store.
func (ev *env) addUser(t *testing.T, username string, admin bool) *model.User {
	t.Helper()
	hash, err := utils.HashPassword("secret", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &model.User{
		Username:       username,
		Email:          username + "@test.com",
		FirstName:      "Testy",
		LastName:       "MacTest",
		Admin:          admin,
		HashedPassword: hash,
	}
	if err := ev.users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// addCafe inserts a cafe directly through the store.
func (ev *env) addCafe(t *testing.T, name string) *model.Cafe {
	t.Helper()
	c := &model.Cafe{
		Name:        name,
		Description: "Test description",
		URL:         "http://testcafe.com/",
		Address:     "500 Sansome St",
		CityCode:    "sf",
	}
	if err := ev.cafes.Create(context.Background(), c); err != nil {
		t.Fatalf("create cafe: %v", err)
	}
	return c
}

// anonSession mints a session with no user and returns its cookie and
// CSRF token.
func (ev *env) anonSession(t *testing.T) (*http.Cookie, string) {
	t.Helper()
	s, err := ev.sessions.Create(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	return &http.Cookie{Name: "cafe_session", Value: s.Token}, s.CSRFToken
}

// loginAs mints a session already bound to the given user.
func (ev *env) loginAs(t *testing.T, u *model.User) (*http.Cookie, string) {
	t.Helper()
	s, err := ev.sessions.Create(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	s.UserID = u.ID
	if err := ev.sessions.Save(context.Background(), s); err != nil {
		t.Fatalf("save session: %v", err)
	}
	return &http.Cookie{Name: "cafe_session", Value: s.Token}, s.CSRFToken
}

// sessionState re-reads the session behind a cookie.
func (ev *env) sessionState(t *testing.T, ck *http.Cookie) *session.Session {
	t.Helper()
	s, err := ev.sessions.Get(context.Background(), ck.Value)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	return s
}

// ----- request helpers -----

func (ev *env) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ev.e.ServeHTTP(rec, req)
	return rec
}

func (ev *env) get(path string, ck *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if ck != nil {
		req.AddCookie(ck)
	}
	return ev.do(req)
}

func (ev *env) postForm(path string, form url.Values, ck *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	if ck != nil {
		req.AddCookie(ck)
	}
	return ev.do(req)
}

func (ev *env) postJSON(path, body string, ck *http.Cookie, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if ck != nil {
		req.AddCookie(ck)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return ev.do(req)
}

func decodeBody(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return out
}

func hasFlash(body map[string]any, msg string) bool {
	flashes, ok := body["flashes"].([]any)
	if !ok {
		return false
	}
	for _, f := range flashes {
		if f == msg {
			return true
		}
	}
	return false
}
