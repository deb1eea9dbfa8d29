package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/agentcore/config"
)

// StateSnapshot is the GORM model backing GormStore.
type StateSnapshot struct {
	MachineID string    `gorm:"primaryKey;size:128"`
	State     string    `gorm:"size:128;not null"`
	Context   []byte    `gorm:"type:blob"`
	SavedAt   time.Time `gorm:"not null"`
}

// TableName pins the table name regardless of GORM naming strategy.
func (StateSnapshot) TableName() string { return "state_snapshots" }

// GormStore persists snapshots in a relational database.
type GormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// OpenDatabase opens a GORM connection from config, selecting the dialector
// by driver name (mysql, postgres or sqlite) and applying connection-pool
// limits.
func OpenDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if logger != nil {
		logger.Info("database opened", zap.String("driver", cfg.Driver))
	}
	return db, nil
}

// NewGormStore creates a SQL-backed store and migrates its table.
func NewGormStore(db *gorm.DB, logger *zap.Logger) (*GormStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&StateSnapshot{}); err != nil {
		return nil, fmt.Errorf("migrate state_snapshots: %w", err)
	}
	return &GormStore{
		db:     db,
		logger: logger.With(zap.String("component", "gorm_store")),
	}, nil
}

// Save upserts the snapshot row keyed by machine id.
func (s *GormStore) Save(ctx context.Context, machineID, state string, payload any) error {
	raw, err := encodePayload(payload)
	if err != nil {
		return err
	}
	row := StateSnapshot{
		MachineID: machineID,
		State:     state,
		Context:   raw,
		SavedAt:   time.Now(),
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "machine_id"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", machineID, err)
	}
	return nil
}

// Load reads the snapshot row, or returns ErrNotFound.
func (s *GormStore) Load(ctx context.Context, machineID string) (*Snapshot, error) {
	var row StateSnapshot
	err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load snapshot %s: %w", machineID, err)
	}
	return &Snapshot{
		MachineID: row.MachineID,
		State:     row.State,
		Context:   row.Context,
		SavedAt:   row.SavedAt,
	}, nil
}

// Delete removes the snapshot row.
func (s *GormStore) Delete(ctx context.Context, machineID string) error {
	err := s.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Delete(&StateSnapshot{}).Error
	if err != nil {
		return fmt.Errorf("delete snapshot %s: %w", machineID, err)
	}
	return nil
}
