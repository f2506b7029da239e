package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-login-service/internal/auth"
	"github.com/redmonkez12/go-login-service/internal/config"
	server "github.com/redmonkez12/go-login-service/internal/http"
	"github.com/redmonkez12/go-login-service/internal/logging"
	"github.com/redmonkez12/go-login-service/internal/user"
)

// fakeUserStore is an in-memory auth.UserStore
type fakeUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]*user.User
}

func (s *fakeUserStore) add(u *user.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *fakeUserStore) GetByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, user.ErrNotFound
}

func (s *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, user.ErrNotFound
}

func (s *fakeUserStore) UpdatePassword(_ context.Context, userID uuid.UUID, hashedPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return user.ErrNotFound
	}
	u.HashedPassword = hashedPassword
	return nil
}

// recordingMailer captures sent reset emails
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	to    string
	token string
}

func (m *recordingMailer) SendPasswordResetEmail(_ context.Context, toEmail, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: toEmail, token: token})
	return nil
}

type apiFixture struct {
	router http.Handler
	tokens *auth.TokenService
	hasher *auth.PasswordHasher
	store  *fakeUserStore
	mailer *recordingMailer
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port: "8080",
			Env:  "prod", // keep Swagger off the test router
		},
	}

	tokens, err := auth.NewTokenService([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)

	hasher, err := auth.NewPasswordHasher(config.HasherConfig{
		MemoryKiB:   1024,
		Iterations:  1,
		Parallelism: 1,
	})
	require.NoError(t, err)

	store := &fakeUserStore{users: make(map[uuid.UUID]*user.User)}
	mailer := &recordingMailer{}
	logger := logging.NewLogger(true)

	service := auth.NewService(store, tokens, hasher, mailer, logger, 15*time.Minute, time.Hour)
	handler := auth.NewHandler(service, logger)
	middleware := auth.NewMiddleware(tokens)

	return &apiFixture{
		router: server.NewRouter(cfg, handler, middleware, logger),
		tokens: tokens,
		hasher: hasher,
		store:  store,
		mailer: mailer,
	}
}

func (f *apiFixture) seedUser(t *testing.T, email, password string, active bool) *user.User {
	t.Helper()

	hash, err := f.hasher.Hash(password)
	require.NoError(t, err)

	u := &user.User{
		ID:             uuid.New(),
		Email:          email,
		HashedPassword: hash,
		FullName:       "Test User",
		IsActive:       active,
	}
	f.store.add(u)
	return u
}

func (f *apiFixture) postLogin(t *testing.T, username, password string) *httptest.ResponseRecorder {
	t.Helper()

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req := httptest.NewRequest(http.MethodPost, "/login/access-token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixture) postJSON(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestLoginAccessToken_Success(t *testing.T) {
	f := newAPIFixture(t)
	f.seedUser(t, "alice@x", "pw1", true)

	rec := f.postLogin(t, "alice@x", "pw1")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.AccessToken)
	assert.Equal(t, "bearer", body.TokenType)

	// The issued token authenticates the test-token probe
	req := httptest.NewRequest(http.MethodPost, "/login/test-token", nil)
	req.Header.Set("Authorization", "Bearer "+body.AccessToken)
	probe := httptest.NewRecorder()
	f.router.ServeHTTP(probe, req)

	require.Equal(t, http.StatusOK, probe.Code)

	var publicUser struct {
		Email    string `json:"email"`
		IsActive bool   `json:"is_active"`
	}
	require.NoError(t, json.Unmarshal(probe.Body.Bytes(), &publicUser))
	assert.Equal(t, "alice@x", publicUser.Email)
	assert.True(t, publicUser.IsActive)
	assert.NotContains(t, probe.Body.String(), "hashed_password")
}

func TestLoginAccessToken_WrongPassword(t *testing.T) {
	f := newAPIFixture(t)
	f.seedUser(t, "alice@x", "pw1", true)

	rec := f.postLogin(t, "alice@x", "wrong")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"Incorrect email or password"}`, rec.Body.String())
}

func TestLoginAccessToken_UnknownEmailBodyMatchesWrongPassword(t *testing.T) {
	f := newAPIFixture(t)
	f.seedUser(t, "alice@x", "pw1", true)

	wrongPassword := f.postLogin(t, "alice@x", "wrong")
	unknownEmail := f.postLogin(t, "nobody@x", "wrong")

	// Identical status and body: the response does not reveal which half
	// of the credentials was wrong
	assert.Equal(t, wrongPassword.Code, unknownEmail.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownEmail.Body.String())
}

func TestLoginAccessToken_InactiveUser(t *testing.T) {
	f := newAPIFixture(t)
	f.seedUser(t, "bob@x", "pw", false)

	rec := f.postLogin(t, "bob@x", "pw")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"Inactive user"}`, rec.Body.String())
}

func TestTestToken_MissingAndInvalidTokens(t *testing.T) {
	f := newAPIFixture(t)
	f.seedUser(t, "alice@x", "pw1", true)

	// No Authorization header
	req := httptest.NewRequest(http.MethodPost, "/login/test-token", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Could not validate credentials"}`, rec.Body.String())

	// Garbage bearer token
	req = httptest.NewRequest(http.MethodPost, "/login/test-token", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"detail":"Invalid token"}`, rec.Body.String())
}

func TestTestToken_LowercaseBearerScheme(t *testing.T) {
	f := newAPIFixture(t)
	u := f.seedUser(t, "alice@x", "pw1", true)

	token, err := f.tokens.CreateAccessToken(u.ID, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/login/test-token", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTestToken_UserDeletedAfterIssue(t *testing.T) {
	f := newAPIFixture(t)

	token, err := f.tokens.CreateAccessToken(uuid.New(), time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/login/test-token", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"User not found"}`, rec.Body.String())
}

func TestRecoverPassword_Flow(t *testing.T) {
	f := newAPIFixture(t)
	f.seedUser(t, "carol@x", "pw", true)

	req := httptest.NewRequest(http.MethodPost, "/password-recovery/carol@x", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"msg":"Password recovery email sent"}`, rec.Body.String())

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "carol@x", f.mailer.sent[0].to)

	email, err := f.tokens.VerifyResetToken(f.mailer.sent[0].token)
	require.NoError(t, err)
	assert.Equal(t, "carol@x", email)
}

func TestRecoverPassword_UnknownEmail(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/password-recovery/nobody@x", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"The user with this username does not exist in the system."}`, rec.Body.String())
	assert.Empty(t, f.mailer.sent)
}

func TestResetPassword_Success(t *testing.T) {
	f := newAPIFixture(t)
	f.seedUser(t, "carol@x", "pw1", true)

	// Obtain a reset token through the recovery endpoint
	req := httptest.NewRequest(http.MethodPost, "/password-recovery/carol@x", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.mailer.sent, 1)

	// A short password is fine: no password policy is enforced here
	rec = f.postJSON(t, "/reset-password/", map[string]string{
		"token":        f.mailer.sent[0].token,
		"new_password": "pw2",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"msg":"Password updated successfully"}`, rec.Body.String())

	// New password logs in, the old one does not
	assert.Equal(t, http.StatusOK, f.postLogin(t, "carol@x", "pw2").Code)
	assert.Equal(t, http.StatusBadRequest, f.postLogin(t, "carol@x", "pw1").Code)
}

func TestResetPassword_GarbageToken(t *testing.T) {
	f := newAPIFixture(t)
	carol := f.seedUser(t, "carol@x", "pw1", true)
	hashBefore := carol.HashedPassword

	rec := f.postJSON(t, "/reset-password/", map[string]string{
		"token":        "garbage",
		"new_password": "pw2",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"Invalid token"}`, rec.Body.String())

	// User row unchanged
	stored, err := f.store.GetByID(context.Background(), carol.ID)
	require.NoError(t, err)
	assert.Equal(t, hashBefore, stored.HashedPassword)
}

func TestResetPassword_MissingFields(t *testing.T) {
	f := newAPIFixture(t)
	f.seedUser(t, "carol@x", "pw1", true)

	rec := f.postJSON(t, "/reset-password/", map[string]string{
		"token": "anything",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"Token and new password are required"}`, rec.Body.String())
}

func TestResetPassword_InactiveUser(t *testing.T) {
	f := newAPIFixture(t)
	f.seedUser(t, "bob@x", "pw1", false)

	token, err := f.tokens.CreateResetToken("bob@x", time.Hour)
	require.NoError(t, err)

	rec := f.postJSON(t, "/reset-password/", map[string]string{
		"token":        token,
		"new_password": "pw2",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"detail":"Inactive user"}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"api is running"}`, rec.Body.String())
}
