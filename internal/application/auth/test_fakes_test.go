package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/baechuer/user-service/internal/domain"
)

/*
Shared audit capture
*/

type auditEntry struct {
	action string
	fields map[string]string
}

/*
Fakes for ports
*/

type fakeUserRepo struct {
	mu sync.Mutex

	byID map[string]domain.User

	// injected errors (if set, method returns error)
	getByIDErr     error
	getByEmailErr  error
	createErr      error
	updatePwdErr   error
	setVerifiedErr error
	recordLoginErr error

	// record calls
	updatedPwd []struct{ id, hash string }
	logins     []string
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]domain.User{}}
}

func (f *fakeUserRepo) put(u domain.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byID[u.ID] = u
}

func (f *fakeUserRepo) get(id string) domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByEmailErr != nil {
		return domain.User{}, f.getByEmailErr
	}
	for _, u := range f.byID {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound()
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getByIDErr != nil {
		return domain.User{}, f.getByIDErr
	}
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	return u, nil
}

func (f *fakeUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return domain.User{}, f.createErr
	}
	for _, ex := range f.byID {
		if strings.EqualFold(ex.Email, u.Email) {
			return domain.User{}, domain.ErrDuplicateEmail()
		}
	}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.updatePwdErr != nil {
		return f.updatePwdErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.PasswordHash = newHash
	f.byID[userID] = u
	f.updatedPwd = append(f.updatedPwd, struct{ id, hash string }{userID, newHash})
	return nil
}

func (f *fakeUserRepo) SetEmailVerified(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.setVerifiedErr != nil {
		return f.setVerifiedErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.EmailVerified = true
	f.byID[userID] = u
	return nil
}

func (f *fakeUserRepo) RecordLogin(ctx context.Context, userID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.recordLoginErr != nil {
		return f.recordLoginErr
	}
	u, ok := f.byID[userID]
	if !ok {
		return domain.ErrUserNotFound()
	}
	u.LastLoginAt = &at
	u.UpdatedAt = at
	f.byID[userID] = u
	f.logins = append(f.logins, userID)
	return nil
}

type fakeHasher struct {
	mu       sync.Mutex
	hashFn   func(pw string) (string, error)
	verifies int
}

func (h *fakeHasher) Hash(password string) (string, error) {
	if h.hashFn != nil {
		return h.hashFn(password)
	}
	return "hash:" + password, nil
}

func (h *fakeHasher) Verify(password, digest string) bool {
	h.mu.Lock()
	h.verifies++
	h.mu.Unlock()
	return digest == "hash:"+password
}

func (h *fakeHasher) verifyCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.verifies
}

// fakeSigner encodes claims as "jwt|<id>|<email>|<role>"; "expired|..." tokens fail verification.
type fakeSigner struct {
	issueErr error
	ttl      time.Duration
}

func (s *fakeSigner) Issue(u domain.User) (string, TokenClaims, error) {
	if s.issueErr != nil {
		return "", TokenClaims{}, s.issueErr
	}
	now := time.Now()
	return fmt.Sprintf("jwt|%s|%s|%s", u.ID, u.Email, u.Role), TokenClaims{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.TTL()),
	}, nil
}

func (s *fakeSigner) Verify(token string) (TokenClaims, error) {
	parts := strings.Split(token, "|")
	if len(parts) != 4 || parts[0] != "jwt" {
		return TokenClaims{}, domain.ErrTokenInvalid()
	}
	return TokenClaims{UserID: parts[1], Email: parts[2], Role: domain.Role(parts[3])}, nil
}

func (s *fakeSigner) TTL() time.Duration {
	if s.ttl > 0 {
		return s.ttl
	}
	return 24 * time.Hour
}

type fakeOTT struct {
	mu sync.Mutex

	data map[OneTimeTokenKind]map[string]string // kind -> token -> userID
	ttls map[OneTimeTokenKind]time.Duration

	saveErr    error
	consumeErr error
}

func newFakeOTT() *fakeOTT {
	return &fakeOTT{
		data: map[OneTimeTokenKind]map[string]string{},
		ttls: map[OneTimeTokenKind]time.Duration{},
	}
}

func (o *fakeOTT) Save(ctx context.Context, kind OneTimeTokenKind, token string, userID string, ttl time.Duration) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.saveErr != nil {
		return o.saveErr
	}
	if o.data[kind] == nil {
		o.data[kind] = map[string]string{}
	}
	o.data[kind][token] = userID
	o.ttls[kind] = ttl
	return nil
}

func (o *fakeOTT) Consume(ctx context.Context, kind OneTimeTokenKind, token string) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.consumeErr != nil {
		return "", o.consumeErr
	}
	m := o.data[kind]
	uid, ok := m[token]
	if !ok {
		switch kind {
		case TokenPasswordReset:
			return "", domain.ErrResetTokenInvalid()
		default:
			return "", domain.ErrVerifyTokenInvalid()
		}
	}
	delete(m, token)
	return uid, nil
}

// only returns the single stored token of kind (tests save at most one)
func (o *fakeOTT) only(t *testing.T, kind OneTimeTokenKind) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.data[kind]) != 1 {
		t.Fatalf("expected exactly one %s token, got %d", kind, len(o.data[kind]))
	}
	for tok := range o.data[kind] {
		return tok
	}
	return ""
}

type fakePublisher struct {
	mu        sync.Mutex
	verifyErr error
	resetErr  error

	verifyEvts []VerifyEmailEvent
	resetEvts  []PasswordResetEvent
}

func (p *fakePublisher) PublishVerifyEmail(ctx context.Context, evt VerifyEmailEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.verifyErr != nil {
		return p.verifyErr
	}
	p.verifyEvts = append(p.verifyEvts, evt)
	return nil
}

func (p *fakePublisher) PublishPasswordReset(ctx context.Context, evt PasswordResetEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resetErr != nil {
		return p.resetErr
	}
	p.resetEvts = append(p.resetEvts, evt)
	return nil
}

/*
Service factory for tests
*/

type svcFixture struct {
	svc    *Service
	users  *fakeUserRepo
	hasher *fakeHasher
	signer *fakeSigner
	ott    *fakeOTT
	pub    *fakePublisher
	audits *[]auditEntry
}

func newSvcForTest(t *testing.T) svcFixture {
	t.Helper()

	f := svcFixture{
		users:  newFakeUserRepo(),
		hasher: &fakeHasher{},
		signer: &fakeSigner{},
		ott:    newFakeOTT(),
		pub:    &fakePublisher{},
		audits: &[]auditEntry{},
	}
	cfg := Config{
		VerifyEmailBaseURL:    "https://fe/verify?token=",
		PasswordResetBaseURL:  "https://fe/reset?token=",
		VerifyEmailTokenTTL:   24 * time.Hour,
		PasswordResetTokenTTL: 30 * time.Minute,
	}

	var mu sync.Mutex
	f.svc = NewService(f.users, f.hasher, f.signer, f.ott, f.pub, cfg).
		WithAudit(func(action string, fields map[string]string) {
			cp := map[string]string{}
			for k, v := range fields {
				cp[k] = v
			}
			mu.Lock()
			*f.audits = append(*f.audits, auditEntry{action: action, fields: cp})
			mu.Unlock()
		})

	if f.svc == nil {
		t.Fatalf("svc is nil")
	}
	return f
}

// seedUser stores an active user whose password is pw.
func (f svcFixture) seedUser(id, email, pw string, role domain.Role) domain.User {
	u := domain.User{
		ID:           id,
		Email:        email,
		PasswordHash: "hash:" + pw,
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		Active:       true,
		CreatedAt:    time.Now().Add(-time.Hour),
		UpdatedAt:    time.Now().Add(-time.Hour),
	}
	f.users.put(u)
	return u
}

/*
Small assertions
*/

func requireDomainCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	got := domainCode(err)
	if got != wantCode {
		t.Fatalf("expected domain code %q, got %q (err=%v)", wantCode, got, err)
	}
}

func lastAudit(audits *[]auditEntry) (auditEntry, bool) {
	if audits == nil || len(*audits) == 0 {
		return auditEntry{}, false
	}
	return (*audits)[len(*audits)-1], true
}

func requireAuditAction(t *testing.T, audits *[]auditEntry, wantAction string) auditEntry {
	t.Helper()
	e, ok := lastAudit(audits)
	if !ok {
		t.Fatalf("expected audit entry, got none")
	}
	if e.action != wantAction {
		t.Fatalf("expected audit action %q, got %q", wantAction, e.action)
	}
	return e
}

func requireAuditField(t *testing.T, e auditEntry, k, want string) {
	t.Helper()
	got := strings.TrimSpace(e.fields[k])
	if got != want {
		t.Fatalf("expected audit field %q=%q, got %q (all=%v)", k, want, got, e.fields)
	}
}
