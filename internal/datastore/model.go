package datastore

import "time"

// User is a registered account. Usernames and emails are unique; duplicate
// registrations are detected through the database constraints rather than
// application level locking.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `json:"-"`
	Bio          string    `json:"bio"`
	CreatedAt    time.Time `json:"created_at"`
}

// Upload is one identification event in the append-only ledger. Rows are
// immutable once written; there are no update or delete operations.
type Upload struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"index;not null;constraint:OnDelete:CASCADE,OnUpdate:CASCADE;foreignKey:UserID;references:ID" json:"user_id"`
	Filename       string    `json:"filename"`
	SpeciesID      string    `gorm:"index:idx_uploads_species" json:"species_id"`
	SpeciesName    string    `gorm:"index:idx_uploads_speciesname" json:"species_name"`
	ScientificName string    `json:"scientific_name"`
	Confidence     float64   `json:"confidence"`
	Latitude       *float64  `json:"latitude,omitempty"`
	Longitude      *float64  `json:"longitude,omitempty"`
	Method         string    `json:"method"`
	CreatedAt      time.Time `gorm:"index:idx_uploads_createdat" json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// HasLocation reports whether the upload carries coordinates.
func (u *Upload) HasLocation() bool {
	return u.Latitude != nil && u.Longitude != nil
}

// Stats is the global statistics snapshot served by the stats endpoint.
type Stats struct {
	TotalIdentifications int64
	TotalUsers           int64
	TotalSpecies         int64
	GeneratedAt          time.Time
}

// UserSummary aggregates a user's ledger for the dashboard.
type UserSummary struct {
	TotalUploads    int64
	DistinctSpecies int64
	Recent          []Upload
}
