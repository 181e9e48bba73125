package domain

import "time"

// ClientStatus enumerates the lifecycle states of an agency client.
type ClientStatus string

const (
	ClientOnboarding ClientStatus = "onboarding"
	ClientPending    ClientStatus = "pending"
	ClientActive     ClientStatus = "active"
	ClientPaused     ClientStatus = "paused"
	ClientChurned    ClientStatus = "churned"
)

// SyncStatus tracks the outcome of the most recent mirror sync for a client.
type SyncStatus string

const (
	SyncNever   SyncStatus = "never"
	SyncRunning SyncStatus = "syncing"
	SyncFull    SyncStatus = "synced"
	SyncPartial SyncStatus = "partial"
	SyncFailed  SyncStatus = "failed"
)

// Client represents one agency customer and their platform connection.
type Client struct {
	ID         string       `json:"id" db:"id"`
	Name       string       `json:"name" db:"name"`
	Platform   string       `json:"platform" db:"platform"`
	Industry   string       `json:"industry" db:"industry"`
	Status     ClientStatus `json:"status" db:"status"`
	SyncStatus SyncStatus   `json:"sync_status" db:"sync_status"`
	LastSyncAt *time.Time   `json:"last_sync_at" db:"last_sync_at"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

// Credential is the stored, encrypted credential bag for one client.
// The plaintext never persists; it is reconstructed from the record per
// operation and discarded when the operation returns.
type Credential struct {
	ClientID       string     `json:"client_id" db:"client_id"`
	Ciphertext     string     `json:"-" db:"ciphertext"`
	IV             string     `json:"-" db:"iv"`
	AuthTag        string     `json:"-" db:"auth_tag"`
	Valid          bool       `json:"valid" db:"valid"`
	LastVerifiedAt *time.Time `json:"last_verified_at" db:"last_verified_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Session is a stored user session, swept by maintenance once expired.
type Session struct {
	Token     string    `json:"-" db:"token"`
	UserEmail string    `json:"user_email" db:"user_email"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
