package domain

import "github.com/google/uuid"

// UserID uniquely identifies a user. User identities are minted externally;
// the service only reads them from JWT subjects.
type UserID uuid.UUID
