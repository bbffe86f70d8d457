package config

import (
	model "gradesync/repository"
	"fmt"
	"strings"
	"sync"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var enumQueries = []string{
	`CREATE TYPE gradesync.score_mapping_type AS ENUM ('DIRECT', 'PERCENTAGE', 'SCALED')`,
	`CREATE TYPE gradesync.import_status AS ENUM ('PENDING', 'APPROVED', 'REJECTED', 'SYNCED')`,
}

var (
	dbConnection *gorm.DB
	onceDb       sync.Once
)

func DatabaseConnection() *gorm.DB {
	onceDb.Do(func() {
		cfg := Env()
		db, err := InitDB(
			cfg.DatabaseHost,
			cfg.DatabasePort,
			cfg.PostgresUser,
			cfg.PostgresPassword,
			cfg.DatabaseName,
		)
		if err != nil {
			panic(err)
		}
		dbConnection = db
	})
	return dbConnection
}

// SetDatabaseConnection replaces the shared connection. Used by tests to
// point repositories at a throwaway database.
func SetDatabaseConnection(db *gorm.DB) {
	onceDb.Do(func() {})
	dbConnection = db
}

func InitDB(host string, port string, user string, password string, dbName string) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable", host, port, user, password, dbName)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			TablePrefix:   "gradesync.",
			SingularTable: false,
		},
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return db, Migrate(db)
}

func Migrate(db *gorm.DB) error {
	x := db.Exec(`CREATE SCHEMA IF NOT EXISTS gradesync`)
	if x.Error != nil {
		return x.Error
	}
	for _, query := range enumQueries {
		x := db.Exec(query)
		if x.Error != nil {
			if strings.Contains(x.Error.Error(), "already exists") {
				continue
			}
			return x.Error
		}
	}

	return db.AutoMigrate(
		&model.Session{},
		&model.Term{},
		&model.AssessmentComponent{},
		&model.ScoreStructure{},
		&model.CbtAssessmentLink{},
		&model.ScoreImportRow{},
	)
}
