package http_handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/baechuer/user-service/internal/application/auth"
	"github.com/baechuer/user-service/internal/application/users"
	"github.com/baechuer/user-service/internal/domain"
	"github.com/baechuer/user-service/internal/infrastructure/memory"
	"github.com/baechuer/user-service/internal/infrastructure/security"
	"github.com/baechuer/user-service/internal/transport/http/middleware"
)

// capturePublisher keeps the links the service would have e-mailed.
type capturePublisher struct {
	mu     sync.Mutex
	verify []auth.VerifyEmailEvent
	reset  []auth.PasswordResetEvent
}

func (p *capturePublisher) PublishVerifyEmail(_ context.Context, evt auth.VerifyEmailEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.verify = append(p.verify, evt)
	return nil
}

func (p *capturePublisher) PublishPasswordReset(_ context.Context, evt auth.PasswordResetEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset = append(p.reset, evt)
	return nil
}

func (p *capturePublisher) lastResetToken(t *testing.T) string {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.reset) == 0 {
		t.Fatalf("no password reset published")
	}
	return tokenFromURL(t, p.reset[len(p.reset)-1].URL)
}

func (p *capturePublisher) lastVerifyToken(t *testing.T) string {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.verify) == 0 {
		t.Fatalf("no verification published")
	}
	return tokenFromURL(t, p.verify[len(p.verify)-1].URL)
}

func tokenFromURL(t *testing.T, u string) string {
	t.Helper()
	_, tok, ok := strings.Cut(u, "token=")
	if !ok || tok == "" {
		t.Fatalf("no token in %q", u)
	}
	return tok
}

type fixture struct {
	repo   *memory.UserRepo
	signer *security.JWTSigner
	pub    *capturePublisher
	auth   *AuthHandler
	users  *UsersHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := memory.NewUserRepo()
	hasher, err := security.NewBcryptHasher(4)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	signer, err := security.NewJWTSigner("test-secret", "user-service", time.Hour)
	if err != nil {
		t.Fatalf("signer: %v", err)
	}
	pub := &capturePublisher{}

	svc := auth.NewService(repo, hasher, signer, memory.NewOneTimeTokenStore(), pub, auth.Config{
		VerifyEmailBaseURL:   "http://test/verify-email?token=",
		PasswordResetBaseURL: "http://test/reset-password?token=",
	})
	memory.SeedUsers(context.Background(), repo, hasher, memory.DefaultSeedAccounts, zerolog.Nop())

	return &fixture{
		repo:   repo,
		signer: signer,
		pub:    pub,
		auth:   NewAuthHandler(svc, nil),
		users:  NewUsersHandler(users.NewService(repo), nil),
	}
}

func (f *fixture) user(t *testing.T, email string) domain.User {
	t.Helper()
	u, err := f.repo.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("lookup %s: %v", email, err)
	}
	return u
}

func (f *fixture) identity(t *testing.T, email string) *middleware.Identity {
	u := f.user(t, email)
	return &middleware.Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

func (f *fixture) token(t *testing.T, email string) string {
	t.Helper()
	tok, _, err := f.signer.Issue(f.user(t, email))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

// mustJSONBody marshals v to JSON and returns an io.Reader for request body.
func mustJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return bytes.NewReader(b)
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code string         `json:"code"`
		Meta map[string]any `json:"meta"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v; body=%s", err, rr.Body.String())
	}
	return env
}

func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	env := decodeEnvelope(t, rr)
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data: %v; body=%s", err, rr.Body.String())
	}
}

func requireErrorCode(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("expected status %d, got %d; body=%s", status, rr.Code, rr.Body.String())
	}
	env := decodeEnvelope(t, rr)
	if env.Success || env.Error == nil || env.Error.Code != code {
		t.Fatalf("expected error code %q; body=%s", code, rr.Body.String())
	}
}

// serve routes a single request through a chi router so URL params resolve.
// id, when set, is injected the way the auth middleware would.
func serve(t *testing.T, method, pattern, target string, body io.Reader, id *middleware.Identity, h http.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if id != nil {
				req = req.WithContext(middleware.WithIdentity(req.Context(), *id))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Method(method, pattern, h)

	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}
