// Package catalog persists the export-run ledger (the `history` command's
// backing store): one row per completed or failed export, queryable later
// without re-reading a USB device.
package catalog

import (
	"fmt"
	"time"

	"rekordboxport/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// ExportRun is one row of the export_runs ledger.
type ExportRun struct {
	ID            uint   `gorm:"primaryKey"`
	RunID         string `gorm:"uniqueIndex;size:36"`
	OutputDir     string
	TrackCount    int
	PlaylistCount int
	StartedAt     time.Time
	FinishedAt    *time.Time
	Outcome       string // "running", "success", "failed"
	Error         string `gorm:"size:2048"`
}

func (ExportRun) TableName() string { return "export_runs" }

// Connect opens a GORM connection to cfg's MySQL database.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect catalog database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&ExportRun{}); err != nil {
		return nil, fmt.Errorf("migrate export_runs: %w", err)
	}
	return db, nil
}

// StartRun inserts the initial row for a new export run.
func StartRun(db *gorm.DB, runID, outputDir string) (*ExportRun, error) {
	run := &ExportRun{RunID: runID, OutputDir: outputDir, StartedAt: time.Now(), Outcome: "running"}
	if err := db.Create(run).Error; err != nil {
		return nil, fmt.Errorf("start run %s: %w", runID, err)
	}
	return run, nil
}

// FinishRun records the outcome of a run (trackCount/playlistCount are
// ignored when exportErr != nil).
func FinishRun(db *gorm.DB, run *ExportRun, trackCount, playlistCount int, exportErr error) error {
	now := time.Now()
	run.FinishedAt = &now
	if exportErr != nil {
		run.Outcome = "failed"
		run.Error = exportErr.Error()
	} else {
		run.Outcome = "success"
		run.TrackCount = trackCount
		run.PlaylistCount = playlistCount
	}
	return db.Save(run).Error
}

// Recent returns the most recent limit runs, newest first.
func Recent(db *gorm.DB, limit int) ([]ExportRun, error) {
	var runs []ExportRun
	if err := db.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("list recent runs: %w", err)
	}
	return runs, nil
}
