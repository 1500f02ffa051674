package client

import (
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"housetally-backend/internal/model"
)

func InitMysqlClient(databaseURL string) *gorm.DB {
	db, err := gorm.Open(mysql.Open(databaseURL), &gorm.Config{
		// Surface unique-constraint violations as gorm.ErrDuplicatedKey so
		// the purchase recorder can treat the duplicate-insert race as the
		// idempotent-success path.
		TranslateError: true,
	})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal(err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(
		&model.Kit{},
		&model.KitItem{},
		&model.Purchase{},
		&model.Profile{},
		&model.UserKit{},
	); err != nil {
		log.Fatal(err)
	}

	return db
}
