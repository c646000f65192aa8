// Package submission implements the channels that receive join applications
// and waitlist emails: a logging stub and a durable sqlite-backed queue with
// webhook delivery.
package submission

import (
	"context"
	"log/slog"
	"os"
)

// package-level logger; can be replaced by callers
var logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

// SetLogger sets the logger used by the submission channels. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

type clientIPKey struct{}

// WithClientIP records the submitting client's address on ctx.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP returns the address stored by WithClientIP.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
