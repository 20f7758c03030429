package tezos

import "github.com/pkg/errors"

// Kind classifies the errors the synchronization pipeline can raise, as
// enumerated in spec §7. Kind is attached to an error via WithKind and
// recovered with KindOf; wrapping with github.com/pkg/errors preserves
// the original stack and cause.
type Kind int

const (
	// KindUnknown is the zero value; errors without an attached kind
	// are treated as opaque transport noise by callers.
	KindUnknown Kind = iota
	KindTransport
	KindTimeout
	KindShutdown
	KindDecode
	KindMichelsonParse
	KindForkInconsistency
	KindImpossibleState
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "TransportError"
	case KindTimeout:
		return "TimeoutError"
	case KindShutdown:
		return "ShutdownError"
	case KindDecode:
		return "DecodeError"
	case KindMichelsonParse:
		return "MichelsonParseError"
	case KindForkInconsistency:
		return "ForkInconsistencyError"
	case KindImpossibleState:
		return "ImpossibleStateError"
	default:
		return "UnknownError"
	}
}

type kindedError struct {
	kind  Kind
	cause error
}

func (e *kindedError) Error() string { return e.kind.String() + ": " + e.cause.Error() }
func (e *kindedError) Unwrap() error { return e.cause }

// WithKind tags err with kind, always wrapping it with errors.WithStack
// (even if err already carries a stack) so callers retain a trace to
// the origin.
func WithKind(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &kindedError{kind: kind, cause: errors.WithStack(err)}
}

// Errorf builds a new kinded error with a formatted message, in the
// spirit of github.com/pkg/errors.Errorf.
func Errorf(kind Kind, format string, args ...interface{}) error {
	return &kindedError{kind: kind, cause: errors.Errorf(format, args...)}
}

// KindOf walks err's cause chain looking for an attached Kind, returning
// KindUnknown if none of the chain links were tagged with WithKind.
func KindOf(err error) Kind {
	for err != nil {
		if ke, ok := err.(*kindedError); ok {
			return ke.kind
		}
		err = errors.Unwrap(err)
	}
	return KindUnknown
}

// Is reports whether err (or any error in its chain) carries kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }

var (
	// ErrShutdown is returned by RpcHandler after shutdown() has set
	// the rejecting flag; terminal, per spec §4.1/§5.
	ErrShutdown = WithKind(KindShutdown, errors.New("rpc handler is shutting down"))
)
