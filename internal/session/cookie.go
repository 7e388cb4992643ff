package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/vovakirdan/channelchat/internal/store"
)

const (
	// CookieName is the cookie holding the bearer token.
	CookieName = "AUTH_JWT"
	// CookieLifetime is how long a written cookie stays valid.
	CookieLifetime = 30 * 24 * time.Hour
)

// ErrNoToken is returned when no live token is stored.
var ErrNoToken = errors.New("no stored token")

// CookieJar persists the session token as a Secure, SameSite=Strict cookie
// whose expiry rolls forward on every write.
type CookieJar struct {
	store store.CookieStore
	clock clock.Clock
}

// NewCookieJar creates a jar over st. A nil clock uses the wall clock.
func NewCookieJar(st store.CookieStore, clk clock.Clock) *CookieJar {
	if clk == nil {
		clk = clock.New()
	}
	return &CookieJar{store: st, clock: clk}
}

// Save writes token with a fresh expiry.
func (j *CookieJar) Save(ctx context.Context, token string) error {
	return j.write(ctx, token, j.clock.Now().Add(CookieLifetime))
}

// Token returns the stored token, or ErrNoToken when it is missing, empty or
// expired.
func (j *CookieJar) Token(ctx context.Context) (string, error) {
	cookie, err := j.store.GetCookie(ctx, CookieName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("load cookie: %w", err)
	}

	if cookie.Value == "" || !j.clock.Now().Before(cookie.Expires) {
		return "", ErrNoToken
	}
	return cookie.Value, nil
}

// Refresh pushes the expiry of a live cookie forward. It is a no-op when no
// live cookie exists.
func (j *CookieJar) Refresh(ctx context.Context) error {
	token, err := j.Token(ctx)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return nil
		}
		return err
	}
	return j.Save(ctx, token)
}

// Clear overwrites the cookie with an empty value that has already expired.
func (j *CookieJar) Clear(ctx context.Context) error {
	return j.write(ctx, "", time.Unix(0, 0))
}

func (j *CookieJar) write(ctx context.Context, value string, expires time.Time) error {
	cookie := &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Expires:  expires,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
	if err := j.store.SetCookie(ctx, cookie); err != nil {
		return fmt.Errorf("store cookie: %w", err)
	}
	return nil
}
