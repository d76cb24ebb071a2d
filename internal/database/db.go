package database

import (
	"assoc-backend/internal/config"
	"assoc-backend/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatalf("could not connect to the database: %v", err)
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.Account{},
		&models.Operation{},
		&models.OperationValidation{},
		&models.Signup{},
		&models.Participant{},
		&models.Bill{},
		&models.ExpenseReport{},
		&models.AuditLog{},
	)
	if err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	log.Info("database connected, migration done")
}
