package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/redmonkez12/book-catalog-api/internal/api"
	"github.com/redmonkez12/book-catalog-api/internal/auth"
	"github.com/redmonkez12/book-catalog-api/internal/catalog"
	"github.com/redmonkez12/book-catalog-api/internal/config"
	"github.com/redmonkez12/book-catalog-api/internal/database/databasetest"
	"github.com/redmonkez12/book-catalog-api/internal/graph"
	"github.com/redmonkez12/book-catalog-api/internal/logging"
	"github.com/redmonkez12/book-catalog-api/internal/metrics"
	"github.com/redmonkez12/book-catalog-api/internal/ratelimit"
	"github.com/redmonkez12/book-catalog-api/internal/user"
)

type tokenMailer struct {
	tokens chan string
}

func (m *tokenMailer) SendConfirmationEmail(_ context.Context, _, _, token string) error {
	m.tokens <- token
	return nil
}

type testServer struct {
	t      *testing.T
	router http.Handler
	mailer *tokenMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := logging.NewNopLogger()
	db := databasetest.NewSQLite(t)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	mailer := &tokenMailer{tokens: make(chan string, 4)}
	users := user.NewRepository(db)
	store, err := user.NewStore(users, user.NewBcryptHasher(bcrypt.MinCost), mailer, logger)
	require.NoError(t, err)

	tokens, err := auth.NewTokenService(config.TokenFormatPaseto, []byte("0123456789abcdef0123456789abcdef"), time.Hour)
	require.NoError(t, err)

	m := metrics.New()
	authors := catalog.NewAuthorRepository(db)
	books := catalog.NewBookRepository(db)
	resolver := graph.NewResolver(authors, books, store, m)

	cfg := &config.Config{Server: config.ServerConfig{Env: "prod"}}
	router := NewRouter(cfg, Handlers{
		Auth:           auth.NewHandler(auth.NewService(store, tokens), ratelimit.NewLimiter(redisClient, 100, time.Minute), m, auth.CookieConfig{}),
		Catalog:        api.NewCatalogHandler(catalog.NewService(authors, books), resolver),
		AuthMiddleware: auth.NewMiddleware(tokens),
		Metrics:        m,
	}, logger)

	return &testServer{t: t, router: router, mailer: mailer}
}

func (s *testServer) do(method, path, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// login registers, confirms and logs in a user and returns the session cookie.
func (s *testServer) login(name, email string) *http.Cookie {
	s.t.Helper()

	rec := s.do(http.MethodPost, "/auth/register", `{"name":"`+name+`","email":"`+email+`","password":"pw1234"}`)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	var token string
	select {
	case token = <-s.mailer.tokens:
	case <-time.After(2 * time.Second):
		s.t.Fatal("no confirmation email sent")
	}

	rec = s.do(http.MethodPost, "/auth/confirm", `{"email":"`+email+`","confirmToken":"`+token+`"}`)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"pw1234"}`)
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	s.t.Fatal("login did not set a session cookie")
	return nil
}

type envelope struct {
	Data   json.RawMessage    `json:"data"`
	Errors []graph.FieldError `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, data any) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body.Code
}

func TestRouter_RegisterConfirmLoginCreateAndListBooks(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/auth/register", `{"name":"Ann","email":"ann@x.com","password":"pw1234"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	token := <-s.mailer.tokens

	rec = s.do(http.MethodPost, "/auth/confirm", `{"email":"ann@x.com","confirmToken":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_CONFIRMATION", errorCode(t, rec))

	rec = s.do(http.MethodPost, "/auth/confirm", `{"email":"ann@x.com","confirmToken":"`+token+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", `{"email":"ann@x.com","password":"pw1234"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var me map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "Ann", me["name"])
	assert.Equal(t, "ann@x.com", me["email"])
	assert.Len(t, me, 3)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	session := cookies[0]
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, session.SameSite)

	rec = s.do(http.MethodPost, "/authors", `{"name":"Ursula"}`, session)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var author struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	decodeEnvelope(t, rec, &author)
	assert.Equal(t, "Ursula", author.Name)

	body := `{"title":"T","isbn":"12345","rate":4.5,"publisher":"P","author":"` + author.ID + `"}`
	rec = s.do(http.MethodPost, "/books?fields=id,title,author{name}", body, session)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Author struct {
			Name string `json:"name"`
		} `json:"author"`
	}
	decodeEnvelope(t, rec, &created)
	assert.Equal(t, "T", created.Title)
	assert.Equal(t, "Ursula", created.Author.Name)

	rec = s.do(http.MethodGet, "/books?fields=id,title,rate,author{name},createdBy{name}", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []struct {
		ID     string  `json:"id"`
		Title  string  `json:"title"`
		Rate   float64 `json:"rate"`
		Author struct {
			Name string `json:"name"`
		} `json:"author"`
		CreatedBy struct {
			Name string `json:"name"`
		} `json:"createdBy"`
	}
	env := decodeEnvelope(t, rec, &listed)
	assert.Empty(t, env.Errors)
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
	assert.Equal(t, 4.5, listed[0].Rate)
	assert.Equal(t, "Ursula", listed[0].Author.Name)
	assert.Equal(t, "Ann", listed[0].CreatedBy.Name)

	rec = s.do(http.MethodGet, "/authors/"+author.ID+"?fields=name,books{title}", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var withBooks struct {
		Books []struct {
			Title string `json:"title"`
		} `json:"books"`
	}
	decodeEnvelope(t, rec, &withBooks)
	require.Len(t, withBooks.Books, 1)
	assert.Equal(t, "T", withBooks.Books[0].Title)
}

func TestRouter_AnonymousMutationsRejected(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/authors", `{"name":"A"}`},
		{http.MethodPut, "/authors/00000000-0000-0000-0000-000000000001", `{"name":"A"}`},
		{http.MethodDelete, "/authors/00000000-0000-0000-0000-000000000001", ""},
		{http.MethodPost, "/books", `{"title":"T"}`},
		{http.MethodDelete, "/books/00000000-0000-0000-0000-000000000001", ""},
	}

	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := s.do(tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "UNAUTHENTICATED", errorCode(t, rec))
		})
	}

	rec := s.do(http.MethodGet, "/books", "")
	assert.Equal(t, http.StatusOK, rec.Code, "reads stay public")
}

func TestRouter_DeleteAuthorOrphansBooks(t *testing.T) {
	s := newTestServer(t)
	session := s.login("Ann", "ann@x.com")

	rec := s.do(http.MethodPost, "/authors", `{"name":"Ursula"}`, session)
	require.Equal(t, http.StatusCreated, rec.Code)
	var author struct {
		ID string `json:"id"`
	}
	decodeEnvelope(t, rec, &author)

	rec = s.do(http.MethodPost, "/books", `{"title":"T","isbn":"12345","rate":4,"publisher":"P","author":"`+author.ID+`"}`, session)
	require.Equal(t, http.StatusCreated, rec.Code)
	var book struct {
		ID string `json:"id"`
	}
	decodeEnvelope(t, rec, &book)

	rec = s.do(http.MethodDelete, "/authors/"+author.ID, "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted map[string]any
	decodeEnvelope(t, rec, &deleted)
	assert.Equal(t, map[string]any{"id": author.ID, "name": "Ursula"}, deleted)

	rec = s.do(http.MethodGet, "/books/"+book.ID+"?fields=title,author{name}", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	env := decodeEnvelope(t, rec, &got)
	assert.Empty(t, env.Errors)
	assert.Equal(t, "T", got["title"])
	assert.Contains(t, got, "author")
	assert.Nil(t, got["author"])
}

func TestRouter_DeleteBookTwice(t *testing.T) {
	s := newTestServer(t)
	session := s.login("Ann", "ann@x.com")

	rec := s.do(http.MethodPost, "/authors", `{"name":"Ursula"}`, session)
	require.Equal(t, http.StatusCreated, rec.Code)
	var author struct {
		ID string `json:"id"`
	}
	decodeEnvelope(t, rec, &author)

	rec = s.do(http.MethodPost, "/books", `{"title":"T","isbn":"12345","rate":4,"publisher":"P","author":"`+author.ID+`"}`, session)
	require.Equal(t, http.StatusCreated, rec.Code)
	var book struct {
		ID string `json:"id"`
	}
	decodeEnvelope(t, rec, &book)

	rec = s.do(http.MethodDelete, "/books/"+book.ID, "", session)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted map[string]any
	decodeEnvelope(t, rec, &deleted)
	assert.Equal(t, map[string]any{"id": book.ID, "title": "T"}, deleted)

	rec = s.do(http.MethodDelete, "/books/"+book.ID, "", session)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))

	rec = s.do(http.MethodGet, "/books/"+book.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "lookup failure has the same shape")
	assert.Equal(t, "NOT_FOUND", errorCode(t, rec))
}

func TestRouter_BookValidation(t *testing.T) {
	s := newTestServer(t)
	session := s.login("Ann", "ann@x.com")

	tests := []struct {
		name string
		body string
		code string
	}{
		{"unknown author", `{"title":"T","isbn":"12345","rate":4,"publisher":"P","author":"00000000-0000-0000-0000-000000000001"}`, "VALIDATION_FAILED"},
		{"short isbn", `{"title":"T","isbn":"1","rate":4,"publisher":"P","author":"00000000-0000-0000-0000-000000000001"}`, "VALIDATION_FAILED"},
		{"rate as text", `{"title":"T","isbn":"12345","rate":"high","publisher":"P","author":"x"}`, "INVALID_REQUEST_BODY"},
		{"client createdBy", `{"title":"T","isbn":"12345","rate":4,"publisher":"P","author":"x","createdBy":"y"}`, "INVALID_REQUEST_BODY"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/books", tc.body, session)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.code, errorCode(t, rec))
		})
	}
}

func TestRouter_InvalidSelection(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/books?fields=title,createdBy{passwordHash}", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_SELECTION", errorCode(t, rec))

	rec = s.do(http.MethodGet, "/books?author=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, rec))
}

func TestRouter_HealthMetricsAndHeaders(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "default-src 'none'", rec.Header().Get("Content-Security-Policy"))
	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = s.do(http.MethodPost, "/auth/logout", "")
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	rec = s.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bookcatalog_http_requests_total{method="GET",route="/health",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), `bookcatalog_auth_events_total{operation="logout",outcome="success"} 1`)

	rec = s.do(http.MethodGet, "/swagger/index.html", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "swagger is dev only")
}
