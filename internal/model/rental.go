package model

import "time"

// Rental records a user checking out one or more movies.  A rental is
// created open, with the movies attached in the same transaction, and is
// closed exactly once.  Closing stamps ClosingDate and the computed fee.
//
// Fields:
//  ID          – primary key identifier.
//  Date        – when the rental was created.
//  EndDate     – expected return date.
//  UserID      – user who rented the movies.
//  Closed      – true after the movies were returned.
//  ClosingDate – when the rental was closed (nil while open).
//  FeeCents    – late fee charged on close, in cents (nil while open).
type Rental struct {
    ID          uint64     // rentals.id
    Date        time.Time  // rentals.date
    EndDate     time.Time  // rentals.end_date
    UserID      uint64     // rentals.user_id
    Closed      bool       // rentals.closed
    ClosingDate *time.Time // rentals.closing_date (nullable)
    FeeCents    *int64     // rentals.fee_cents (nullable)
}

// Open reports whether the rental still holds its movies.
func (r Rental) Open() bool { return !r.Closed }
