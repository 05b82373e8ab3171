package model

import "time"

// Roles a user account can hold.  ADMIN manages the catalogue and can act on
// any rental; CUSTOMER only on its own.
const (
    RoleCustomer = "CUSTOMER"
    RoleAdmin    = "ADMIN"
)

// User represents a store customer as stored in the `users` table.  The
// identity fields (birth date, CPF, names) feed the rental rules; the
// account fields are only used by authentication.
//
// Fields:
//  ID           – primary key identifier, immutable once created.
//  BirthDate    – date of birth, used for the adults-only restriction.
//  CPF          – national tax id, unique.
//  Email        – unique email address used to log in.
//  Name         – first name.
//  LastName     – last name.
//  PasswordHash – bcrypt hashed password.
//  Role         – CUSTOMER or ADMIN.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    BirthDate    time.Time // users.birth_date
    CPF          string    // users.cpf
    Email        string    // users.email
    Name         string    // users.name
    LastName     string    // users.last_name
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token handed to the client is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
