package reply

import (
	"errors"
	"fmt"
)

// ErrToken covers every way a token can fail to resolve: unknown code,
// malformed record, or expiry. ErrTokenExpired wraps it, so callers can use
// errors.Is(err, ErrToken) for "any token problem" and
// errors.Is(err, ErrTokenExpired) to tell "reissue and retry" apart from
// "never existed".
var (
	ErrToken        = errors.New("token error")
	ErrTokenExpired = fmt.Errorf("token expired: %w", ErrToken)

	// ErrParse reports an unparseable reply line: unknown verb, missing
	// or malformed arguments.
	ErrParse = errors.New("reply parse error")

	// ErrApply reports an instruction that parsed fine but cannot be
	// applied to the schedule (for example a move onto an occupied
	// date). It is caught per-instruction so one bad command never
	// blocks its siblings.
	ErrApply = errors.New("cannot apply instruction")
)

func tokenErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrToken)...)
}

func parseErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrParse)...)
}

func applyErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrApply)...)
}
