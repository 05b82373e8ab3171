package rental

import (
	"time"

	"github.com/iliyamo/movie-rental/internal/model"
)

// AdultAge is the minimum age for renting adults-only movies.
const AdultAge = 18

// Verdict is the outcome of Evaluate: eligible, or the first rule that failed.
type Verdict struct {
	reason *Error
}

// Eligible reports whether every rule passed.
func (v Verdict) Eligible() bool { return v.reason == nil }

// Err returns the rejection, or nil when the verdict is eligible.
func (v Verdict) Err() error {
	if v.reason == nil {
		return nil
	}
	return v.reason
}

func reject(e *Error) Verdict { return Verdict{reason: e} }

// Evaluate decides whether user may rent movies.  The rules run in a fixed
// order and the first failure wins:
//
//  1. the user must exist
//  2. the user must not hold an open rental
//  3. adults-only movies require the user to be at least AdultAge at now
//  4. every movie must be unattached
//
// Evaluate never writes; callers persist only after an eligible verdict.
func Evaluate(user *model.User, movies []model.Movie, hasOpenRental bool, now time.Time) Verdict {
	if user == nil {
		return reject(notFound(MsgUserNotFound))
	}
	if hasOpenRental {
		return reject(conflict(MsgUserHasRental))
	}
	if containsAdultsOnly(movies) && AgeAt(user.BirthDate, now) < AdultAge {
		return reject(conflict(MsgAdultForMinor))
	}
	for _, m := range movies {
		if !m.Available() {
			return reject(conflict(MsgMovieRented))
		}
	}
	return Verdict{}
}

func containsAdultsOnly(movies []model.Movie) bool {
	for _, m := range movies {
		if m.AdultsOnly {
			return true
		}
	}
	return false
}

// AgeAt returns the number of whole years between birth and now.
func AgeAt(birth, now time.Time) int {
	by, bm, bd := birth.Date()
	ny, nm, nd := now.Date()
	age := ny - by
	if nm < bm || (nm == bm && nd < bd) {
		age--
	}
	if age < 0 {
		return 0
	}
	return age
}
