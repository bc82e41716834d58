package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/baechuer/user-service/internal/domain"
)

func TestAuthenticateWith_Local(t *testing.T) {
	t.Parallel()

	f := newSvcForTest(t)
	f.seedUser("u1", "a@b.com", "password123", domain.RoleUser)

	u, err := f.svc.AuthenticateWith(context.Background(), StrategyLocal, Credentials{Email: "a@b.com", Password: "password123"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if u.ID != "u1" {
		t.Fatalf("unexpected user: %+v", u)
	}

	_, err = f.svc.AuthenticateWith(context.Background(), StrategyLocal, Credentials{Email: "a@b.com", Password: "nope"})
	requireDomainCode(t, err, "invalid_credentials")
}

func TestAuthenticateWith_Token(t *testing.T) {
	t.Parallel()

	f := newSvcForTest(t)
	u := f.seedUser("u1", "a@b.com", "password123", domain.RoleAdmin)
	tok, _, _ := f.signer.Issue(u)

	got, err := f.svc.AuthenticateWith(context.Background(), StrategyToken, Credentials{Token: tok})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.Role != domain.RoleAdmin {
		t.Fatalf("unexpected role: %q", got.Role)
	}

	_, err = f.svc.AuthenticateWith(context.Background(), StrategyToken, Credentials{Token: "bogus"})
	requireDomainCode(t, err, "token_invalid")
}

func TestAuthenticateWith_UnknownKind(t *testing.T) {
	t.Parallel()

	f := newSvcForTest(t)
	_, err := f.svc.AuthenticateWith(context.Background(), StrategyKind("oauth"), Credentials{})
	requireDomainCode(t, err, "unsupported_strategy")
}

func TestStrategies_ReportKind(t *testing.T) {
	t.Parallel()

	f := newSvcForTest(t)
	var s Strategy = f.svc.local
	if s.Kind() != StrategyLocal {
		t.Fatalf("unexpected kind %q", s.Kind())
	}
	s = f.svc.token
	if s.Kind() != StrategyToken {
		t.Fatalf("unexpected kind %q", s.Kind())
	}
}

func TestResolveToken_ReturnsClaims(t *testing.T) {
	t.Parallel()

	f := newSvcForTest(t)
	u := f.seedUser("u1", "a@b.com", "password123", domain.RoleModerator)
	tok, _, _ := f.signer.Issue(u)

	got, claims, err := f.svc.ResolveToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got.ID != "u1" || claims.UserID != "u1" || claims.Role != domain.RoleModerator {
		t.Fatalf("unexpected: %+v %+v", got, claims)
	}
}

func TestLocalStrategy_DummyDigestComputedUpFront(t *testing.T) {
	t.Parallel()

	hashes := 0
	h := &fakeHasher{hashFn: func(pw string) (string, error) {
		hashes++
		return "hash:" + pw, nil
	}}
	l := newLocalStrategy(newFakeUserRepo(), h)
	if hashes != 1 || l.dummyDigest != "hash:"+dummyDigestPassword {
		t.Fatalf("expected digest at construction, hashes=%d digest=%q", hashes, l.dummyDigest)
	}

	for i := 0; i < 2; i++ {
		_, err := l.Resolve(context.Background(), Credentials{Email: "ghost@example.com", Password: "whatever"})
		requireDomainCode(t, err, "invalid_credentials")
	}
	if hashes != 1 {
		t.Fatalf("unknown-email logins must not hash, got %d", hashes)
	}
	if h.verifyCount() != 2 {
		t.Fatalf("each unknown-email login costs one comparison, got %d", h.verifyCount())
	}
}

func TestLocalStrategy_DummyDigestFallback(t *testing.T) {
	t.Parallel()

	h := &fakeHasher{hashFn: func(string) (string, error) { return "", errors.New("rng failure") }}
	l := newLocalStrategy(newFakeUserRepo(), h)
	if l.dummyDigest != fallbackDummyDigest {
		t.Fatalf("expected fallback digest, got %q", l.dummyDigest)
	}

	_, err := l.Resolve(context.Background(), Credentials{Email: "ghost@example.com", Password: "whatever"})
	requireDomainCode(t, err, "invalid_credentials")
	if h.verifyCount() != 1 {
		t.Fatalf("comparison skipped after hash failure")
	}
}
