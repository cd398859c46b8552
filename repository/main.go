package repository

import (
	"github.com/auroramedia/gramflow/infra"
	"gorm.io/gorm"
)

type Repository struct {
	PostJobRepo *PostJobRepository
}

var repository *Repository

func InitRepository(infra *infra.Infra) *Repository {
	repository = &Repository{
		PostJobRepo: NewPostJobRepository(infra.Postgres.DB),
	}
	return repository
}

func GetRepository() *Repository {
	if repository == nil {
		panic("repository not initialized")
	}
	return repository
}

func (r *Repository) WithTransaction(tx *gorm.DB) *Repository {
	return &Repository{
		PostJobRepo: NewPostJobRepository(tx),
	}
}
