package authservice

import (
	"context"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/oyage/todo-vite-app/authsvc"
)

type Middleware func(Service) Service

func LoggingMiddleware(logger log.Logger) Middleware {
	return func(next Service) Service {
		return loggingMiddleware{logger, next}
	}
}

type loggingMiddleware struct {
	logger log.Logger
	next   Service
}

func (mw loggingMiddleware) Login(ctx context.Context, email, password string) (s authsvc.Session, err error) {
	defer func() {
		mw.logger.Log("method", "Login", "email", email, "user_id", s.User.ID, "err", err)
	}()
	return mw.next.Login(ctx, email, password)
}

func (mw loggingMiddleware) Signup(ctx context.Context, email, password string) (s authsvc.Session, err error) {
	defer func() {
		mw.logger.Log("method", "Signup", "email", email, "user_id", s.User.ID, "err", err)
	}()
	return mw.next.Signup(ctx, email, password)
}

func (mw loggingMiddleware) Logout(ctx context.Context, accessUUID string) (v bool, err error) {
	defer func() {
		mw.logger.Log("method", "Logout", "access_uuid", accessUUID, "v", v, "err", err)
	}()
	return mw.next.Logout(ctx, accessUUID)
}

func (mw loggingMiddleware) CurrentUser(ctx context.Context, userID string) (u authsvc.User, err error) {
	defer func() {
		mw.logger.Log("method", "CurrentUser", "user_id", userID, "err", err)
	}()
	return mw.next.CurrentUser(ctx, userID)
}

func (mw loggingMiddleware) Refresh(ctx context.Context, accessUUID, refreshUUID, userID string) (t map[string]string, err error) {
	defer func() {
		mw.logger.Log(
			"method", "Refresh",
			"access_uuid", accessUUID,
			"refresh_uuid", refreshUUID,
			"user_id", userID,
			"err", err,
		)
	}()
	return mw.next.Refresh(ctx, accessUUID, refreshUUID, userID)
}

func (mw loggingMiddleware) Validate(ctx context.Context, accessUUID string) (v bool, err error) {
	defer func() {
		mw.logger.Log("method", "Validate", "access_uuid", accessUUID, "v", v, "err", err)
	}()
	return mw.next.Validate(ctx, accessUUID)
}

func InstrumentingMiddleware(counter metrics.Counter, latency metrics.Histogram) Middleware {
	return func(next Service) Service {
		return instrumentingMiddleware{counter, latency, next}
	}
}

type instrumentingMiddleware struct {
	requestCount   metrics.Counter
	requestLatency metrics.Histogram
	next           Service
}

func (mw instrumentingMiddleware) observe(method string, begin time.Time) {
	mw.requestCount.With("method", method).Add(1)
	mw.requestLatency.With("method", method).Observe(time.Since(begin).Seconds())
}

func (mw instrumentingMiddleware) Login(ctx context.Context, email, password string) (authsvc.Session, error) {
	defer mw.observe("login", time.Now())
	return mw.next.Login(ctx, email, password)
}

func (mw instrumentingMiddleware) Signup(ctx context.Context, email, password string) (authsvc.Session, error) {
	defer mw.observe("signup", time.Now())
	return mw.next.Signup(ctx, email, password)
}

func (mw instrumentingMiddleware) Logout(ctx context.Context, accessUUID string) (bool, error) {
	defer mw.observe("logout", time.Now())
	return mw.next.Logout(ctx, accessUUID)
}

func (mw instrumentingMiddleware) CurrentUser(ctx context.Context, userID string) (authsvc.User, error) {
	defer mw.observe("current_user", time.Now())
	return mw.next.CurrentUser(ctx, userID)
}

func (mw instrumentingMiddleware) Refresh(ctx context.Context, accessUUID, refreshUUID, userID string) (map[string]string, error) {
	defer mw.observe("refresh", time.Now())
	return mw.next.Refresh(ctx, accessUUID, refreshUUID, userID)
}

func (mw instrumentingMiddleware) Validate(ctx context.Context, accessUUID string) (bool, error) {
	defer mw.observe("validate", time.Now())
	return mw.next.Validate(ctx, accessUUID)
}

// Delays holds the simulated network delay of each operation. Validate and
// Refresh are service-to-service calls and are never delayed.
type Delays struct {
	Login       time.Duration
	Signup      time.Duration
	Logout      time.Duration
	CurrentUser time.Duration
}

func DefaultDelays() Delays {
	return Delays{
		Login:       time.Second,
		Signup:      time.Second,
		Logout:      500 * time.Millisecond,
		CurrentUser: 200 * time.Millisecond,
	}
}

func LatencyMiddleware(d Delays) Middleware {
	return func(next Service) Service {
		return latencyMiddleware{d, next}
	}
}

type latencyMiddleware struct {
	delays Delays
	next   Service
}

func (mw latencyMiddleware) Login(ctx context.Context, email, password string) (authsvc.Session, error) {
	if err := sleep(ctx, mw.delays.Login); err != nil {
		return authsvc.Session{}, err
	}
	return mw.next.Login(ctx, email, password)
}

func (mw latencyMiddleware) Signup(ctx context.Context, email, password string) (authsvc.Session, error) {
	if err := sleep(ctx, mw.delays.Signup); err != nil {
		return authsvc.Session{}, err
	}
	return mw.next.Signup(ctx, email, password)
}

func (mw latencyMiddleware) Logout(ctx context.Context, accessUUID string) (bool, error) {
	if err := sleep(ctx, mw.delays.Logout); err != nil {
		return false, err
	}
	return mw.next.Logout(ctx, accessUUID)
}

func (mw latencyMiddleware) CurrentUser(ctx context.Context, userID string) (authsvc.User, error) {
	if err := sleep(ctx, mw.delays.CurrentUser); err != nil {
		return authsvc.User{}, err
	}
	return mw.next.CurrentUser(ctx, userID)
}

func (mw latencyMiddleware) Refresh(ctx context.Context, accessUUID, refreshUUID, userID string) (map[string]string, error) {
	return mw.next.Refresh(ctx, accessUUID, refreshUUID, userID)
}

func (mw latencyMiddleware) Validate(ctx context.Context, accessUUID string) (bool, error) {
	return mw.next.Validate(ctx, accessUUID)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
