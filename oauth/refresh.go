// Package oauth provides token refresh scheduling for providers whose tokens
// are persisted in the oauth_tokens table. It performs jittered checks and
// refreshes when expiry falls within a configured window. The chat core
// registers an OnRefresh hook so a rotated token reaches the IRC connections
// without a restart.
package oauth

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand"
	"strings"
	"time"
)

// RefreshFunc performs provider-specific refresh and returns (access, refresh, expiry, scope)
type RefreshFunc func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error)

// Refresher periodically checks one oauth token row and refreshes it.
type Refresher struct {
	DB       *sql.DB
	Provider string
	// Interval is how often to wake up and check.
	Interval time.Duration
	// Window triggers a refresh when remaining lifetime <= Window.
	Window  time.Duration
	Refresh RefreshFunc
	// OnRefresh, when set, receives the new access token after it has been
	// persisted.
	OnRefresh func(accessToken string)
}

// Token returns the currently persisted access token for the provider.
func (r *Refresher) Token(ctx context.Context) (string, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT access_token FROM oauth_tokens WHERE provider=$1 LIMIT 1`, r.Provider)
	var at string
	if err := row.Scan(&at); err != nil {
		return "", err
	}
	return at, nil
}

// Start launches the refresh goroutine; it exits when ctx is done.
func (r *Refresher) Start(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	// Randomize initial delay to spread load across instances.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
	initialJitter := time.Duration(rand.Int63n(int64(interval / 2)))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		for {
			// Add per-iteration jitter (±20% of interval) for scheduling diversity.
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			nextSleep := interval + jitter
			if nextSleep < interval/2 {
				nextSleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep):
			}
			r.checkOnce(ctx)
		}
	}()
}

func (r *Refresher) checkOnce(ctx context.Context) {
	row := r.DB.QueryRowContext(ctx, `SELECT access_token, refresh_token, expires_at, scope FROM oauth_tokens WHERE provider=$1 LIMIT 1`, r.Provider)
	var at, rt, scope string
	var exp time.Time
	if err := row.Scan(&at, &rt, &exp, &scope); err != nil {
		return
	}
	if rt == "" {
		return
	}
	// If still outside window skip quickly
	if time.Until(exp) > r.effectiveWindow() {
		return
	}
	// Small pre-refresh jitter to avoid stampedes when many instances see the same expiry
	//nolint:gosec // G404: math/rand is sufficient for jitter, not used for security
	pre := time.Duration(rand.Int63n(int64(5 * time.Second)))
	select {
	case <-ctx.Done():
		return
	case <-time.After(pre):
	}
	ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
	newAT, newRT, newExp, newScope, err := r.Refresh(ctx2, rt)
	cancel()
	if err != nil {
		slog.Warn("token refresh failed", slog.String("provider", r.Provider), slog.Any("err", err))
		return
	}
	if newRT == "" {
		newRT = rt
	}
	if newScope == "" {
		newScope = scope
	}
	_, err = r.DB.ExecContext(ctx, `UPDATE oauth_tokens SET access_token=$1, refresh_token=$2, expires_at=$3, scope=$4, updated_at=NOW() WHERE provider=$5`,
		newAT, newRT, newExp, strings.TrimSpace(newScope), r.Provider)
	if err != nil {
		slog.Warn("token persist failed", slog.String("provider", r.Provider), slog.Any("err", err))
		return
	}
	slog.Info("token refreshed", slog.String("provider", r.Provider))
	if r.OnRefresh != nil {
		r.OnRefresh(newAT)
	}
}

func (r *Refresher) effectiveWindow() time.Duration {
	if r.Window > 0 {
		return r.Window
	}
	return 15 * time.Minute
}

// StartRefresher launches a goroutine that periodically checks an oauth token row and refreshes it.
// Kept as the convenience wrapper around Refresher.
func StartRefresher(ctx context.Context, db *sql.DB, provider string, interval, window time.Duration, fn RefreshFunc) {
	r := &Refresher{DB: db, Provider: provider, Interval: interval, Window: window, Refresh: fn}
	r.Start(ctx)
}
