// Command tool is an operator helper for seed passwords, test tokens and
// pending one-time tokens.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/baechuer/user-service/internal/application/auth"
	"github.com/baechuer/user-service/internal/domain"
	"github.com/baechuer/user-service/internal/infrastructure/redis"
	"github.com/baechuer/user-service/internal/infrastructure/security"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	var err error
	switch args[0] {
	case "hash":
		err = commandHash(args[1:], stdin, stdout)
	case "token":
		err = commandToken(args[1:], stdout)
	case "verify":
		err = commandVerify(args[1:], stdout)
	case "tokens":
		err = commandTokens(args[1:], stdout)
	case "help", "-h", "--help":
		printUsage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command: %s\n", args[0])
		printUsage(stderr)
		return 2
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// commandHash prints a bcrypt digest usable as a seed PasswordHash.
func commandHash(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("hash", flag.ContinueOnError)
	password := fs.String("password", "", "Password to hash (read from stdin when empty)")
	cost := fs.Int("cost", envInt("BCRYPT_COST", security.DefaultBcryptCost), "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return err
	}

	secret := *password
	if secret == "" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read password: %w", err)
		}
		secret = strings.TrimRight(line, "\r\n")
	}
	if secret == "" {
		return errors.New("empty password")
	}

	h, err := security.NewBcryptHasher(*cost)
	if err != nil {
		return err
	}
	digest, err := h.Hash(secret)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, digest)
	return nil
}

// commandToken signs an access token exactly as the service does.
func commandToken(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	secret := fs.String("secret", os.Getenv("JWT_SECRET"), "Signing secret (default $JWT_SECRET)")
	issuer := fs.String("issuer", envOr("JWT_ISSUER", "user-service"), "Token issuer")
	ttl := fs.Duration("ttl", time.Hour, "Token lifetime")
	userID := fs.String("user-id", "", "Subject user id (random when empty)")
	email := fs.String("email", "user@example.com", "Email claim")
	role := fs.String("role", string(domain.RoleUser), "Role claim: user, moderator or admin")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if !domain.IsValidRole(*role) {
		return domain.ErrInvalidRole(*role)
	}
	id := *userID
	if id == "" {
		id = uuid.NewString()
	}

	signer, err := security.NewJWTSigner(*secret, *issuer, *ttl)
	if err != nil {
		return err
	}
	tok, _, err := signer.Issue(domain.User{ID: id, Email: *email, Role: domain.Role(*role)})
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, tok)
	return nil
}

// commandVerify decodes a token and prints its claims.
func commandVerify(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	secret := fs.String("secret", os.Getenv("JWT_SECRET"), "Signing secret (default $JWT_SECRET)")
	issuer := fs.String("issuer", envOr("JWT_ISSUER", "user-service"), "Expected issuer")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: tool verify [flags] <token>")
	}

	signer, err := security.NewJWTSigner(*secret, *issuer, 0)
	if err != nil {
		return err
	}
	c, err := signer.Verify(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "user_id=%s email=%s role=%s expires_at=%s\n",
		c.UserID, c.Email, c.Role, c.ExpiresAt.Format(time.RFC3339))
	return nil
}

// commandTokens lists (and optionally purges) unconsumed one-time tokens
// held in redis.
func commandTokens(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("tokens", flag.ContinueOnError)
	addr := fs.String("addr", envOr("REDIS_ADDR", "127.0.0.1:6379"), "Redis address host:port")
	pass := fs.String("pass", os.Getenv("REDIS_PASSWORD"), "Redis password")
	db := fs.Int("db", envInt("REDIS_DB", 0), "Redis db")
	kind := fs.String("kind", "", "verify_email or password_reset (empty for both)")
	purge := fs.Bool("purge", false, "Delete listed tokens")
	timeout := fs.Duration("timeout", 5*time.Second, "Overall timeout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	k := auth.OneTimeTokenKind(*kind)
	if k != "" && k != auth.TokenVerifyEmail && k != auth.TokenPasswordReset {
		return fmt.Errorf("unknown token kind %q", *kind)
	}

	c := redis.New(*addr, *pass, *db)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}

	tokens, err := redis.NewOneTimeTokenStore(c).Pending(ctx, k, *purge)
	if err != nil {
		return err
	}
	for i, t := range tokens {
		fmt.Fprintf(stdout, "%d) %s user_id=%s ttl=%s\n", i+1, t.Key, t.UserID, t.TTL)
	}
	if len(tokens) == 0 {
		fmt.Fprintln(stdout, "no tokens matched")
	} else if *purge {
		fmt.Fprintf(stdout, "purged %d\n", len(tokens))
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return n
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `Usage: tool <command> [flags]

Commands:
  hash     bcrypt-hash a password (for seed accounts)
  token    mint an access token
  verify   check a token and print its claims
  tokens   list or purge pending one-time tokens in redis
`)
}
