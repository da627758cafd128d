package bootstrap

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"sentimentreality/internal/models"
	"sentimentreality/internal/pkg/utils"
)

// MigrateAndSeed ensures required tables exist and marks the seed tickers as tracked.
func MigrateAndSeed(db *gorm.DB, seedTickers []string) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	if err := seedTrackedStocks(db, seedTickers); err != nil {
		return fmt.Errorf("seed tracked stocks failed: %w", err)
	}
	return nil
}

// AllModels lists every table the worker reads or writes.
func AllModels() []interface{} {
	return []interface{}{
		// Queue
		&models.Task{},
		// Ingested data
		&models.TrackedStock{},
		&models.Item{},
		&models.ItemScore{},
		&models.PriceDaily{},
		// Derived
		&models.DailyAgg{},
		&models.MetricWindowed{},
	}
}

func seedTrackedStocks(db *gorm.DB, tickers []string) error {
	if len(tickers) == 0 {
		return nil
	}
	return db.Transaction(func(tx *gorm.DB) error {
		for _, raw := range tickers {
			ticker, ok := utils.NormalizeTicker(raw)
			if !ok {
				continue
			}
			row := models.TrackedStock{Ticker: ticker, IsActive: true}
			// Existing rows keep their is_active flag.
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
