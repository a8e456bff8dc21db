package driver

import "fmt"

// LoginError reports a failed authentication attempt. LastURL carries
// the page address observed when the attempt was abandoned, which is
// usually the only diagnostic the portal gives us.
type LoginError struct {
	Reason  string
	LastURL string
}

func (e *LoginError) Error() string {
	if e.LastURL == "" {
		return fmt.Sprintf("login failed: %s", e.Reason)
	}
	return fmt.Sprintf("login failed: %s (last url %s)", e.Reason, e.LastURL)
}

// NavigationError reports a fatal step in the booking navigation chain.
type NavigationError struct {
	Step string
	Err  error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation failed at %q: %v", e.Step, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}
