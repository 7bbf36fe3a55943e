// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/aquatrace/aquatrace-go/internal/conf"
	"github.com/aquatrace/aquatrace-go/internal/errors"
	"github.com/aquatrace/aquatrace-go/internal/logging"
)

// Sentinel errors callers compare with errors.Is.
var (
	ErrDuplicateUser    = errors.NewStd("username or email already registered")
	ErrUserNotFound     = errors.NewStd("user not found")
	ErrUploadNotFound   = errors.NewStd("upload not found")
	ErrStoreUnavailable = errors.NewStd("store unavailable")
)

// Interface defines the database operations for accounts and the upload ledger.
type Interface interface {
	Open() error
	Close() error

	// Account store
	CreateUser(user *User) error
	GetUserByID(id uint) (User, error)
	GetUserByLogin(login string) (User, error)
	UpdateUserProfile(id uint, username, email, bio string) error
	CountUsers() (int64, error)

	// Upload ledger (append-only)
	SaveUpload(upload *Upload) error
	GetUploadsByUser(userID uint, limit, offset int) ([]Upload, error)
	GetUploadByFilename(userID uint, filename string) (Upload, error)
	CountUploadsByUser(userID uint) (int64, error)
	DistinctSpeciesCountByUser(userID uint) (int64, error)
	UserSummary(userID uint, recentLimit int) (UserSummary, error)
	GetUploadsBySpecies(speciesID string) ([]Upload, error)

	// Aggregates
	GlobalStats() (Stats, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB     *gorm.DB
	logger *slog.Logger
}

// New creates a new datastore instance based on the provided settings.
func New(settings *conf.Settings) Interface {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}
	default:
		return nil
	}
}

func (ds *DataStore) log() *slog.Logger {
	if ds.logger == nil {
		ds.logger = logging.ForService("datastore")
	}
	return ds.logger
}

// CreateUser inserts a new user. Uniqueness violations on username or email
// surface as ErrDuplicateUser.
func (ds *DataStore) CreateUser(user *User) error {
	if ds.DB == nil {
		return ErrStoreUnavailable
	}

	if err := ds.DB.Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %s", ErrDuplicateUser, user.Username)
		}
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "create_user").
			Build()
	}

	ds.log().Info("user created", "user_id", user.ID, "username", user.Username)
	return nil
}

// GetUserByID fetches a user by primary key.
func (ds *DataStore) GetUserByID(id uint) (User, error) {
	if ds.DB == nil {
		return User{}, ErrStoreUnavailable
	}

	var user User
	if err := ds.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_user_by_id").
			Build()
	}
	return user, nil
}

// GetUserByLogin fetches a user by username or email.
func (ds *DataStore) GetUserByLogin(login string) (User, error) {
	if ds.DB == nil {
		return User{}, ErrStoreUnavailable
	}

	var user User
	err := ds.DB.Where("username = ? OR email = ?", login, login).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_user_by_login").
			Build()
	}
	return user, nil
}

// UpdateUserProfile updates mutable profile fields. Empty username or email
// keeps the current value.
func (ds *DataStore) UpdateUserProfile(id uint, username, email, bio string) error {
	if ds.DB == nil {
		return ErrStoreUnavailable
	}

	updates := map[string]any{"bio": bio}
	if username != "" {
		updates["username"] = username
	}
	if email != "" {
		updates["email"] = email
	}

	result := ds.DB.Model(&User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicateUser
		}
		return errors.New(result.Error).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "update_user_profile").
			Build()
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// CountUsers returns the total number of registered users.
func (ds *DataStore) CountUsers() (int64, error) {
	if ds.DB == nil {
		return 0, ErrStoreUnavailable
	}
	var count int64
	if err := ds.DB.Model(&User{}).Count(&count).Error; err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "count_users").
			Build()
	}
	return count, nil
}

// SaveUpload appends one identification event to the ledger as a single
// transaction: the referenced user must exist and confidence must be valid.
func (ds *DataStore) SaveUpload(upload *Upload) error {
	if ds.DB == nil {
		return ErrStoreUnavailable
	}

	if upload.Confidence < 0 || upload.Confidence > 1 {
		return errors.Newf("confidence %f outside [0,1]", upload.Confidence).
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("operation", "save_upload").
			Build()
	}

	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&User{}).Where("id = ?", upload.UserID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: id %d", ErrUserNotFound, upload.UserID)
		}
		if upload.CreatedAt.IsZero() {
			upload.CreatedAt = time.Now()
		}
		return tx.Omit("User").Create(upload).Error
	})
}

// GetUploadsByUser returns the user's most recent uploads, newest first.
func (ds *DataStore) GetUploadsByUser(userID uint, limit, offset int) ([]Upload, error) {
	if ds.DB == nil {
		return nil, ErrStoreUnavailable
	}
	if limit <= 0 {
		limit = 10
	}

	var uploads []Upload
	err := ds.DB.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&uploads).Error
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_uploads_by_user").
			Build()
	}
	return uploads, nil
}

// GetUploadByFilename fetches the user's ledger row for a stored filename.
func (ds *DataStore) GetUploadByFilename(userID uint, filename string) (Upload, error) {
	if ds.DB == nil {
		return Upload{}, ErrStoreUnavailable
	}
	var upload Upload
	err := ds.DB.Where("user_id = ? AND filename = ?", userID, filename).First(&upload).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Upload{}, ErrUploadNotFound
		}
		return Upload{}, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_upload_by_filename").
			Build()
	}
	return upload, nil
}

// CountUploadsByUser returns the size of the user's ledger.
func (ds *DataStore) CountUploadsByUser(userID uint) (int64, error) {
	if ds.DB == nil {
		return 0, ErrStoreUnavailable
	}
	var count int64
	err := ds.DB.Model(&Upload{}).Where("user_id = ?", userID).Count(&count).Error
	if err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "count_uploads_by_user").
			Build()
	}
	return count, nil
}

// DistinctSpeciesCountByUser counts the distinct species the user has recorded.
func (ds *DataStore) DistinctSpeciesCountByUser(userID uint) (int64, error) {
	if ds.DB == nil {
		return 0, ErrStoreUnavailable
	}
	var count int64
	err := ds.DB.Model(&Upload{}).
		Where("user_id = ?", userID).
		Distinct("species_id").
		Count(&count).Error
	if err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "distinct_species_by_user").
			Build()
	}
	return count, nil
}

// UserSummary aggregates the dashboard view for one user.
func (ds *DataStore) UserSummary(userID uint, recentLimit int) (UserSummary, error) {
	total, err := ds.CountUploadsByUser(userID)
	if err != nil {
		return UserSummary{}, err
	}
	distinct, err := ds.DistinctSpeciesCountByUser(userID)
	if err != nil {
		return UserSummary{}, err
	}
	recent, err := ds.GetUploadsByUser(userID, recentLimit, 0)
	if err != nil {
		return UserSummary{}, err
	}
	return UserSummary{
		TotalUploads:    total,
		DistinctSpecies: distinct,
		Recent:          recent,
	}, nil
}

// GetUploadsBySpecies returns all ledger rows for one species id. Used for
// the sighting locations endpoint.
func (ds *DataStore) GetUploadsBySpecies(speciesID string) ([]Upload, error) {
	if ds.DB == nil {
		return nil, ErrStoreUnavailable
	}
	var uploads []Upload
	err := ds.DB.Where("species_id = ?", speciesID).
		Order("created_at DESC").
		Find(&uploads).Error
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "get_uploads_by_species").
			Build()
	}
	return uploads, nil
}

// GlobalStats computes the service wide statistics snapshot.
func (ds *DataStore) GlobalStats() (Stats, error) {
	if ds.DB == nil {
		return Stats{}, ErrStoreUnavailable
	}

	stats := Stats{GeneratedAt: time.Now()}

	if err := ds.DB.Model(&Upload{}).Count(&stats.TotalIdentifications).Error; err != nil {
		return Stats{}, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "global_stats").
			Build()
	}
	if err := ds.DB.Model(&User{}).Count(&stats.TotalUsers).Error; err != nil {
		return Stats{}, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "global_stats").
			Build()
	}
	if err := ds.DB.Model(&Upload{}).Distinct("species_id").Count(&stats.TotalSpecies).Error; err != nil {
		return Stats{}, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "global_stats").
			Build()
	}

	return stats, nil
}

// Close closes the underlying database connection.
func (ds *DataStore) Close() error {
	if ds.DB == nil {
		return nil
	}
	sqlDB, err := ds.DB.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db handle: %w", err)
	}
	return sqlDB.Close()
}
