package infra

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/auroramedia/gramflow/config"
	"github.com/auroramedia/gramflow/entity"
)

type PostgresClient struct {
	DB *gorm.DB
}

func InitPostgresClient(cfg *config.EnvConfig) *PostgresClient {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.Postgres.Host,
		cfg.Postgres.Username,
		cfg.Postgres.Password,
		cfg.Postgres.Database,
		cfg.Postgres.Port,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Postgres connection failed: %v", err)
	}

	if err := db.AutoMigrate(&entity.PostJob{}); err != nil {
		log.Fatalf("Postgres migration failed: %v", err)
	}

	log.Println("Connected to Postgres:", cfg.Postgres.Host+":"+cfg.Postgres.Port)

	return &PostgresClient{DB: db}
}

func (p *PostgresClient) Ping() error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
