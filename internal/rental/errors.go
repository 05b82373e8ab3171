package rental

import "errors"

// Kind classifies the failures returned by the rental core.  Handlers map
// KindNotFound to 404, KindConflict to 409 and KindInvalid to 400.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindConflict
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	}
	return "unknown"
}

// Messages surfaced to callers.  Clients match on them, keep them stable.
const (
	MsgUserNotFound    = "User not found."
	MsgRentalNotFound  = "Rental not found."
	MsgMovieNotFound   = "Movie not found."
	MsgUserHasRental   = "User already rented a movie."
	MsgAdultForMinor   = "Cannot rent an adult movie for a minor user."
	MsgMovieRented     = "Movie already rented."
	MsgRentalClosed    = "Rental already closed."
	MsgNoMovies        = "At least one movie is required."
	MsgInvalidDuration = "Rental must last at least one day."
)

// Error is a business failure with its kind and human readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches another *Error of the same kind.  An empty target message
// matches every message of that kind, so errors.Is(err, ErrConflict) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && (t.Message == "" || t.Message == e.Message)
}

// Kind-only sentinels for errors.Is.
var (
	ErrNotFound = &Error{Kind: KindNotFound}
	ErrConflict = &Error{Kind: KindConflict}
	ErrInvalid  = &Error{Kind: KindInvalid}
)

func notFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }
func conflict(msg string) *Error { return &Error{Kind: KindConflict, Message: msg} }
func invalid(msg string) *Error  { return &Error{Kind: KindInvalid, Message: msg} }

// KindOf extracts the kind of a rental error; KindUnknown for anything else.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool { return KindOf(err) == KindConflict }
func IsInvalid(err error) bool  { return KindOf(err) == KindInvalid }
