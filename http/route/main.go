package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/auroramedia/gramflow/http/controller"
	middlewares "github.com/auroramedia/gramflow/http/middleware"
)

func SetupRouter(ctrl *controller.Controller) *gin.Engine {
	r := gin.Default()
	middles, err := middlewares.NewMiddlewares(ctrl)
	if err != nil {
		panic(err)
	}

	r.Use(middles.CORSMiddleware)

	r.GET("/health", ctrl.Health)

	apiRoutes := r.Group("/api/v1")
	{
		apiRoutes.POST("/auth/token", ctrl.IssueToken)

		adminRoutes := apiRoutes.Group("")
		adminRoutes.Use(middles.AdminMiddleware)
		{
			postRoutes := adminRoutes.Group("/posts")
			{
				postRoutes.POST("/schedule", ctrl.SchedulePost)
				postRoutes.GET("/", ctrl.ListPosts)
				postRoutes.GET("/:id", ctrl.GetPost)
				postRoutes.POST("/:id/publish-now", ctrl.PublishNow)
			}

			adminRoutes.POST("/scheduler/run", ctrl.RunScheduler)
			adminRoutes.POST("/uploads", ctrl.UploadMedia)
		}
	}
	return r
}
