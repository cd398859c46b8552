package controller

import (
	"github.com/auroramedia/gramflow/config"
	"github.com/auroramedia/gramflow/infra"
	"github.com/auroramedia/gramflow/repository"
	"github.com/auroramedia/gramflow/scheduler"
)

type Controller struct {
	Config     *config.Config
	Infra      *infra.Infra
	Repository *repository.Repository
	Scheduler  *scheduler.Scheduler
}

func NewController(config *config.Config, infra *infra.Infra, repo *repository.Repository, sched *scheduler.Scheduler) *Controller {
	if repo == nil {
		panic("Failed to initialize Repository")
	}
	return &Controller{
		Config:     config,
		Infra:      infra,
		Repository: repo,
		Scheduler:  sched,
	}
}
