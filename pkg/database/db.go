package database

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/turnoverhq/turnover-api/pkg/config"
	"github.com/turnoverhq/turnover-api/pkg/models"
)

// SyncKey represents the sync_keys table: one credential per external
// calendar-sync collaborator.
type SyncKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Key        string     `gorm:"unique;not null" json:"key"`
	Name       string     `gorm:"not null" json:"name"`
	KeyPreview string     `json:"key_preview"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used"`
}

// SyncUsage represents the sync_usage table: per-key per-day ingestion counters.
type SyncUsage struct {
	ID               uint   `gorm:"primaryKey" json:"id"`
	KeyID            uint   `gorm:"uniqueIndex:idx_key_date;not null" json:"key_id"`
	Date             string `gorm:"uniqueIndex:idx_key_date;not null" json:"date"`
	RequestCount     int    `gorm:"default:0" json:"request_count"`
	TotalObligations int    `gorm:"default:0" json:"total_obligations"`
}

// AdminUser represents the admin_users table.
type AdminUser struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"unique;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// InitDB initializes the database connection and migrates the schema.
// DATABASE_URL selects Postgres; otherwise SQLite at DATA_PATH.
func InitDB() *gorm.DB {
	var db *gorm.DB
	var err error

	dsn := config.AppConfig.DatabaseURL
	if dsn != "" {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), &gorm.Config{
			PrepareStmt: false,
		})
	} else {
		dbPath := config.AppConfig.DataPath
		if dbPath == "" {
			dbPath = "turnover.db"
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	}

	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	Migrate(db)

	return db
}

// Migrate runs the schema automigration for every table the service owns.
func Migrate(db *gorm.DB) {
	db.AutoMigrate(
		&models.Staff{},
		&models.AvailabilityWindow{},
		&models.AbsenceInterval{},
		&models.Property{},
		&models.Obligation{},
		&SyncKey{},
		&SyncUsage{},
		&AdminUser{},
	)
}
