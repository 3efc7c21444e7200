package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lifelink/donor-api/internal/handler"
	auditHandler "github.com/lifelink/donor-api/internal/handler/audit"
	authHandler "github.com/lifelink/donor-api/internal/handler/auth"
	donorHandler "github.com/lifelink/donor-api/internal/handler/donor"
	emailqueueHandler "github.com/lifelink/donor-api/internal/handler/emailqueue"
	pageHandler "github.com/lifelink/donor-api/internal/handler/page"
	"github.com/lifelink/donor-api/internal/middleware"
)

type Router struct {
	engine *gin.Engine
	auth   *middleware.AuthMiddleware

	authH       *authHandler.Handler
	donorH      *donorHandler.Handler
	pageH       *pageHandler.Handler
	auditH      *auditHandler.Handler
	emailQueueH *emailqueueHandler.Handler
}

type Config struct {
	RegistrationPerMinute int
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH *authHandler.Handler,
	donorH *donorHandler.Handler,
	pageH *pageHandler.Handler,
	auditH *auditHandler.Handler,
	emailQueueH *emailqueueHandler.Handler,
) *Router {
	return &Router{
		engine:      gin.New(),
		auth:        auth,
		authH:       authH,
		donorH:      donorH,
		pageH:       pageH,
		auditH:      auditH,
		emailQueueH: emailQueueH,
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func (r *Router) Setup(cfg Config) {
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.Logger())

	r.engine.GET("/health", handler.HealthCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public surface: donor self-registration is rate limited.
	registrationLimiter := middleware.NewSignupRateLimiter(cfg.RegistrationPerMinute)

	public := r.engine.Group("/api/v1")
	public.Use(registrationLimiter.Limit())
	{
		r.authH.RegisterRoutes(public)
		r.donorH.RegisterPublicRoutes(public)
		r.pageH.RegisterPublicRoutes(public)
	}

	admin := r.engine.Group("/api/v1/admin")
	admin.Use(r.auth.RequireAdmin())
	{
		r.donorH.RegisterAdminRoutes(admin)
		r.pageH.RegisterAdminRoutes(admin)
		r.auditH.RegisterAdminRoutes(admin)
		r.emailQueueH.RegisterAdminRoutes(admin)
	}
}
