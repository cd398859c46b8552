package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/auroramedia/gramflow/config"
	"github.com/auroramedia/gramflow/http/controller"
	routes "github.com/auroramedia/gramflow/http/route"
	infraPkg "github.com/auroramedia/gramflow/infra"
	"github.com/auroramedia/gramflow/repository"
	"github.com/auroramedia/gramflow/scheduler"
)

func main() {
	err := godotenv.Load("staging.env")
	if err != nil {
		log.Println("No .env file found, continuing with environment variables")
	}

	cfg := config.NewConfig()
	infra := infraPkg.InitInfra(cfg)
	repo := repository.InitRepository(infra)

	// The API server holds a scheduler for the synchronous run endpoints;
	// the periodic timer lives in the consumer binary. The shared Redis
	// lease keeps the two from ticking at once.
	sched := scheduler.New(cfg, infra, repo)

	ctrl := controller.NewController(cfg, infra, repo, sched)

	router := routes.SetupRouter(ctrl)

	log.Println("HTTP Server started on :" + cfg.EnvConfig.Port)
	if err := router.Run(":" + cfg.EnvConfig.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
