package service

import (
	"fmt"
	"log"
	"testing"

	"gradesync/config"
	"gradesync/repository"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"github.com/ory/dockertest/v3"
)

var db *gorm.DB
var currentSession *repository.Session
var currentTerm *repository.Term

var indexQueries = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_active_structure_scope
	 ON gradesync.score_structures (component_id, COALESCE(class_id, -1), COALESCE(term_id, -1))
	 WHERE is_active`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_active_link_component_exam
	 ON gradesync.cbt_assessment_links (component_id, exam_id)
	 WHERE is_active`,
}

func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		log.Fatalf("Could not construct pool: %s", err)
	}

	err = pool.Client.Ping()
	if err != nil {
		log.Fatalf("Could not connect to Docker: %s", err)
	}

	resource, err := pool.Run("postgres", "17.2-alpine", []string{"POSTGRES_USER=postgres", "POSTGRES_PASSWORD=postgres", "DATABASE_NAME=postgres"})
	if err != nil {
		log.Fatalf("Could not start resource: %s", err)
	}
	resource.Expire(600)
	sqlInfo := fmt.Sprintf(
		"host=localhost port=%s user=postgres password=postgres dbname=postgres sslmode=disable search_path=gradesync",
		resource.GetPort("5432/tcp"))

	if err := pool.Retry(func() error {
		var err error
		db, err = gorm.Open(postgres.Open(sqlInfo), &gorm.Config{
			NamingStrategy: schema.NamingStrategy{
				TablePrefix:   "gradesync.",
				SingularTable: false,
			},
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return err
		}
		return config.Migrate(db)
	}); err != nil {
		log.Fatalf("Could not connect to database: %s", err)
	}
	for _, query := range indexQueries {
		if x := db.Exec(query); x.Error != nil {
			log.Fatalf("Could not create index: %s", x.Error)
		}
	}
	config.SetDatabaseConnection(db)
	seedCurrentContext()

	defer func() {
		if err := pool.Purge(resource); err != nil {
			log.Fatalf("Could not purge resource: %s", err)
		}
	}()

	m.Run()
}

func seedCurrentContext() {
	contextRepository := repository.NewSchoolContextRepository(db)
	session, err := contextRepository.SaveSession(&repository.Session{Name: "2025/2026", IsCurrent: true})
	if err != nil {
		log.Fatalf("Could not seed session: %s", err)
	}
	term, err := contextRepository.SaveTerm(&repository.Term{SessionId: session.Id, Name: "First Term", IsCurrent: true})
	if err != nil {
		log.Fatalf("Could not seed term: %s", err)
	}
	currentSession = session
	currentTerm = term
}
