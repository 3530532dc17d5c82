package xiaohongshu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"xhsmcp/browser"
)

const (
	msgLoggedIn     = "logged in"
	msgNotLoggedIn  = "not logged in"
	msgUndetermined = "unable to determine login status"

	// DefaultLoginInterval is how often Login re-checks the page.
	DefaultLoginInterval = 5 * time.Second
)

type loginState int

const (
	stateUnknown loginState = iota
	stateLoggedOut
	stateLoggedIn
)

// CheckLoginStatus opens the explore page and looks for a login button or an
// avatar. Anything else is reported as not logged in.
func (s *Service) CheckLoginStatus(ctx context.Context) (*LoginStatus, error) {
	s.logger.Info("checking login status")

	if err := s.src.Navigate(ctx, ExploreURL); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		s.logger.Error("check login status failed", "err", err)
		return &LoginStatus{Message: fmt.Sprintf("check login status failed: %v", err)}, nil
	}

	state, err := s.probeLogin(ctx)
	if err != nil {
		return nil, err
	}
	switch state {
	case stateLoggedIn:
		s.logger.Info("login status", "logged_in", true)
		return &LoginStatus{IsLoggedIn: true, Message: msgLoggedIn}, nil
	case stateLoggedOut:
		s.logger.Info("login status", "logged_in", false)
		return &LoginStatus{Message: msgNotLoggedIn}, nil
	default:
		s.logger.Warn(msgUndetermined)
		return &LoginStatus{Message: msgUndetermined}, nil
	}
}

// probeLogin inspects the current page without navigating.
func (s *Service) probeLogin(ctx context.Context) (loginState, error) {
	state := stateUnknown
	err := waitUntil(ctx, "login indicator", s.t.loginProbe, s.t.poll, func(ctx context.Context) (bool, error) {
		if n, err := s.src.Count(ctx, LoginButton); err == nil && n > 0 {
			state = stateLoggedOut
			return true, nil
		}
		if n, err := s.src.Count(ctx, Avatar); err == nil && n > 0 {
			state = stateLoggedIn
			return true, nil
		}
		return false, nil
	})
	if err != nil && !errors.Is(err, browser.ErrTimeout) {
		return stateUnknown, err
	}
	return state, nil
}

// Login opens the explore page for a person to sign in and waits until an
// avatar shows up. It gives up with ErrLoginTimeout after timeout and returns
// ctx.Err() if ctx ends first.
func (s *Service) Login(ctx context.Context, timeout, interval time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("%w: login timeout must be positive", ErrInvalidArgument)
	}
	if interval <= 0 {
		interval = DefaultLoginInterval
	}

	if err := s.src.Navigate(ctx, ExploreURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	s.logger.Info("waiting for manual login in the browser window", "timeout", timeout)

	err := waitUntil(ctx, "login", timeout, interval, func(ctx context.Context) (bool, error) {
		state, err := s.probeLogin(ctx)
		if err != nil {
			return false, err
		}
		return state == stateLoggedIn, nil
	})
	switch {
	case err == nil:
		s.logger.Info("login succeeded")
		return nil
	case errors.Is(err, browser.ErrTimeout):
		s.logger.Warn("login timed out", "timeout", timeout)
		return fmt.Errorf("%w after %s", ErrLoginTimeout, timeout)
	default:
		return err
	}
}
