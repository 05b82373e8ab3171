package model

// Movie is a title the store can rent out.
//
// Fields:
//  ID         – primary key identifier.
//  Name       – display name.
//  AdultsOnly – when true only users aged 18 or more may rent it.
//  RentalID   – open rental the movie is checked out under; nil while the
//               movie is on the shelf.
type Movie struct {
    ID         uint64  // movies.id
    Name       string  // movies.name
    AdultsOnly bool    // movies.adults_only
    RentalID   *uint64 // movies.rental_id when the referenced rental is open
}

// Available reports whether the movie can be attached to a new rental.
func (m Movie) Available() bool { return m.RentalID == nil }
