package memory

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/baechuer/user-service/internal/application/auth"
)

// LogPublisher is the default e-mail stub: it only logs the request.
type LogPublisher struct {
	log zerolog.Logger
}

func NewLogPublisher(lg zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: lg.With().Str("component", "email_stub").Logger()}
}

func (p *LogPublisher) PublishVerifyEmail(ctx context.Context, evt auth.VerifyEmailEvent) error {
	p.log.Info().
		Str("user_id", evt.UserID).
		Str("email", evt.Email).
		Str("url", evt.URL).
		Msg("verify email requested")
	return nil
}

func (p *LogPublisher) PublishPasswordReset(ctx context.Context, evt auth.PasswordResetEvent) error {
	p.log.Info().
		Str("user_id", evt.UserID).
		Str("email", evt.Email).
		Str("url", evt.URL).
		Msg("password reset requested")
	return nil
}
