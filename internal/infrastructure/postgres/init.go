package postgres

import (
	"log"
	"os"
	"time"

	"github.com/LavaJover/shvark-matrix-service/internal/config"
	"github.com/LavaJover/shvark-matrix-service/internal/infrastructure/postgres/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func MustInitDB(cfg *config.MatrixConfig) *gorm.DB {
	dsn := cfg.MatrixDB.Dsn
	db, err := gorm.Open(postgres.Open(dsn), GormConfig())
	if err != nil {
		log.Fatalf("failed to init db: %v\n", err.Error())
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v\n", err.Error())
	}
	if cfg.MatrixDB.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MatrixDB.MaxOpenConns)
	}

	if cfg.MatrixDB.AutoMigrate {
		if err := AutoMigrate(db); err != nil {
			log.Fatalf("failed to auto-migrate: %v\n", err.Error())
		}
	}

	return db
}

// GormConfig stamps every timestamp in UTC so range comparisons agree across drivers.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
		Logger: logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	}
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.LedgerAccountModel{},
		&models.LedgerEntryModel{},
		&models.PlacementAccountModel{},
		&models.MatrixProgressModel{},
		&models.ActivationMarkerModel{},
		&models.DistributionAuditModel{},
		&models.JobModel{},
	)
}
