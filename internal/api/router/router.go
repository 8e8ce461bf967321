package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/job-tracker/internal/api/auth"
	"github.com/cuongbtq/job-tracker/internal/api/handler"
)

// Options holds router settings that are not handler dependencies
type Options struct {
	ServiceName    string
	AllowedOrigins []string
	Identity       auth.IdentityProvider
	ParseRateLimit float64 // requests per second per client IP
	ParseBurst     int
	// BrokerConnected reports the message broker link on /health; nil when the broker is disabled
	BrokerConnected func() bool
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, opts Options) *gin.Engine {
	r := gin.New()

	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(RecoveryMiddleware(deps.Logger))
	r.Use(CORSMiddleware(opts.AllowedOrigins))

	service := opts.ServiceName
	if service == "" {
		service = "job-tracker-api"
	}
	r.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":  "healthy",
			"service": service,
		}
		if opts.BrokerConnected != nil {
			body["broker"] = "disconnected"
			if opts.BrokerConnected() {
				body["broker"] = "connected"
			}
		}
		c.JSON(http.StatusOK, body)
	})

	jobHandler := handler.NewJobHandler(deps)
	sessionHandler := handler.NewSessionHandler(deps)
	parserHandler := handler.NewParserHandler(deps)

	v1 := r.Group("/api/v1")
	v1.Use(auth.Middleware(opts.Identity, deps.Logger))
	{
		v1.GET("/probe", jobHandler.Probe)
		v1.GET("/stats", jobHandler.GetStats)

		jobs := v1.Group("/jobs")
		{
			jobs.GET("", jobHandler.ListJobs)
			jobs.POST("", jobHandler.CreateJob)
			jobs.POST("/parse", RateLimitMiddleware(opts.ParseRateLimit, opts.ParseBurst), parserHandler.ParseJob)
			jobs.GET("/:id", jobHandler.GetJob)
			jobs.PUT("/:id", jobHandler.UpdateJob)
			jobs.DELETE("/:id", jobHandler.DeleteJob)
			jobs.PUT("/:id/favorite", jobHandler.ToggleFavorite)
			jobs.POST("/:id/recompute-status", jobHandler.RecomputeStatus)
		}

		jobEvents := v1.Group("/job-events")
		{
			jobEvents.GET("", jobHandler.ListJobEvents)
			jobEvents.POST("", jobHandler.CreateJobEvent)
			// static segment registered before the :id route
			jobEvents.DELETE("/bulk-delete", jobHandler.BulkDeleteJobEvents)
			jobEvents.PUT("/:id", jobHandler.UpdateJobEvent)
			jobEvents.DELETE("/:id", jobHandler.DeleteJobEvent)
		}

		sess := v1.Group("/session")
		{
			sess.GET("", sessionHandler.GetSession)
			sess.PUT("/provider", sessionHandler.SelectProvider)
			sess.POST("/sign-in", sessionHandler.SignIn)
			sess.POST("/sign-out", sessionHandler.SignOut)
		}
	}

	return r
}
