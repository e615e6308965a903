package repository

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mapstack/mapstack-access/internal/models"
)

// Open connects to Postgres and migrates the schema for the models this
// service owns.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.Deployment{}, &models.Lease{}, &models.DataResource{}); err != nil {
		return nil, err
	}
	return db, nil
}
