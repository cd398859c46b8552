package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/auroramedia/gramflow/http/controller"
)

type Middlewares struct {
	CORSMiddleware  gin.HandlerFunc
	AdminMiddleware gin.HandlerFunc
}

func NewMiddlewares(ctrl *controller.Controller) (*Middlewares, error) {
	cors := CORSMiddleware(ctrl.Config.EnvConfig)
	admin := AdminAuthMiddleware(ctrl.Config.EnvConfig)

	return &Middlewares{
		CORSMiddleware:  cors,
		AdminMiddleware: admin,
	}, nil
}
