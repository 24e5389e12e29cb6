package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"library-catalog/library"
)

// Authenticator checks credentials against the account database and
// throttles repeated attempts per username.
//
// Each username gets a token bucket holding MaxAttempts tokens that refills
// one token every LockoutWindow/MaxAttempts. Every attempt spends a token;
// a successful login refills the bucket.
type Authenticator struct {
	db          *Database
	log         zerolog.Logger
	maxAttempts int
	window      time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewAuthenticator returns an Authenticator backed by db.
func NewAuthenticator(db *Database, maxAttempts int, window time.Duration, logger zerolog.Logger) *Authenticator {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Authenticator{
		db:          db,
		log:         logger.With().Str("component", "auth").Logger(),
		maxAttempts: maxAttempts,
		window:      window,
		limiters:    make(map[string]*rate.Limiter),
	}
}

func (a *Authenticator) limiter(username string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.limiters[username]
	if !ok {
		every := a.window / time.Duration(a.maxAttempts)
		l = rate.NewLimiter(rate.Every(every), a.maxAttempts)
		a.limiters[username] = l
	}
	return l
}

func (a *Authenticator) reset(username string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.limiters, username)
}

// Login verifies the credentials and returns a principal with a fresh session id.
func (a *Authenticator) Login(username, password string) (library.Principal, error) {
	key := strings.ToLower(strings.TrimSpace(username))
	if key == "" {
		return library.Principal{}, ErrInvalidUsername
	}

	if !a.limiter(key).Allow() {
		a.log.Warn().Str("user", key).Msg("login throttled")
		return library.Principal{}, fmt.Errorf("%w: try again later", ErrTooManyAttempts)
	}

	acct, err := a.db.VerifyPassword(key, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			a.log.Warn().Str("user", key).Msg("login failed")
		}
		return library.Principal{}, err
	}
	a.reset(key)

	sessionID, err := uuid.NewV7()
	if err != nil {
		return library.Principal{}, fmt.Errorf("new session id: %w", err)
	}
	a.log.Info().Str("user", acct.Username).Bool("admin", acct.Admin).Str("session", sessionID.String()).Msg("login")
	return library.Principal{Username: acct.Username, Admin: acct.Admin, SessionID: sessionID}, nil
}
