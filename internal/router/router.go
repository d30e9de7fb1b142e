// Package router assembles the HTTP route table.
package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/rchan-moderation-api/internal/handler"
	"github.com/noah-isme/rchan-moderation-api/internal/middleware"
	"github.com/noah-isme/rchan-moderation-api/internal/models"
	"github.com/noah-isme/rchan-moderation-api/pkg/config"
	"github.com/noah-isme/rchan-moderation-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/rchan-moderation-api/pkg/middleware/cors"
	"github.com/noah-isme/rchan-moderation-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/rchan-moderation-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler mounted by the router.
type Handlers struct {
	Auth          *handler.AuthHandler
	PasswordReset *handler.PasswordResetHandler
	Users         *handler.AdminUserHandler
	Posts         *handler.PostHandler
	Reposts       *handler.RepostHandler
	Sections      *handler.SectionHandler
	Logs          *handler.ModerationLogHandler
	Exports       *handler.ExportHandler
	Files         *handler.FileHandler
	Metrics       *handler.MetricsHandler
}

// Deps carries the cross-cutting collaborators of the router.
type Deps struct {
	Config   *config.Config
	Logger   *zap.Logger
	Tokens   middleware.TokenValidator
	Observer middleware.RequestObserver
	Limiter  *ratelimit.Limiter
}

// New builds the gin engine with all routes registered.
func New(deps Deps, h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(deps.Logger))
	r.Use(corsmiddleware.New(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.Observer))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if deps.Config.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(deps.Config.APIPrefix)
	registerPublic(api, deps, h)
	registerModerator(api, deps, h)
	registerAdmin(api, deps, h)
	return r
}

func registerPublic(api *gin.RouterGroup, deps Deps, h Handlers) {
	public := api.Group("")
	public.Use(middleware.OptionalJWT(deps.Tokens))

	throttled := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		if deps.Limiter == nil {
			return []gin.HandlerFunc{fn}
		}
		return []gin.HandlerFunc{deps.Limiter.Middleware(), fn}
	}

	public.GET("/posts", h.Posts.ListPublic)
	public.GET("/posts/:id", h.Posts.GetPublic)
	public.POST("/posts", throttled(h.Posts.Submit)...)
	public.GET("/posts/:id/reposts", h.Reposts.ListPublic)
	public.POST("/posts/:id/reposts", throttled(h.Reposts.Submit)...)
	public.GET("/sections", h.Sections.ListActive)
	public.GET("/sections/:type/posts", h.Posts.ListBySection)
	public.GET("/files/:name", h.Files.Serve)
	public.GET("/exports/:token", h.Exports.Download)

	public.POST("/auth/login", throttled(h.Auth.Login)...)
	public.POST("/auth/password-reset/request", throttled(h.PasswordReset.Request)...)
	public.POST("/auth/password-reset/verify", throttled(h.PasswordReset.Verify)...)
	public.POST("/auth/password-reset/reset", throttled(h.PasswordReset.Reset)...)
	public.POST("/users/verify-email", throttled(h.Users.VerifyEmail)...)
	public.POST("/users/resend-verification", throttled(h.Users.ResendVerification)...)
}

func registerModerator(api *gin.RouterGroup, deps Deps, h Handlers) {
	staff := api.Group("")
	staff.Use(middleware.JWT(deps.Tokens), middleware.RequireRoles(models.RoleAdmin, models.RoleModerator))

	staff.GET("/me", h.Auth.Me)
	staff.POST("/me/change-password", h.Users.ChangePassword)

	mod := staff.Group("/moderator")

	posts := mod.Group("/posts", middleware.RequireCapability(models.CapModeratePosts))
	posts.GET("", h.Posts.List)
	posts.GET("/:id", h.Posts.Get)
	posts.POST("", h.Posts.Create)
	posts.PUT("/:id", h.Posts.Update)
	posts.DELETE("/:id", h.Posts.Delete)
	posts.POST("/:id/approve", h.Posts.Approve)
	posts.POST("/:id/reject", h.Posts.Reject)
	posts.GET("/:id/reposts", h.Reposts.ListByPost)

	reposts := mod.Group("/reposts", middleware.RequireCapability(models.CapModeratePosts))
	reposts.GET("", h.Reposts.List)
	reposts.GET("/:id", h.Reposts.Get)
	reposts.POST("", h.Reposts.Create)
	reposts.PUT("/:id", h.Reposts.Update)
	reposts.DELETE("/:id", h.Reposts.Delete)
	reposts.POST("/:id/approve", h.Reposts.Approve)
	reposts.POST("/:id/reject", h.Reposts.Reject)

	sections := mod.Group("/sections")
	sections.GET("", h.Sections.List)
	sections.GET("/active", h.Sections.ListActive)
	sections.GET("/available-types", h.Sections.AvailableTypes)
	sections.GET("/type/:type", h.Sections.GetByType)
	sections.GET("/:id", h.Sections.Get)
	sections.PATCH("/:id/status", middleware.RequireCapability(models.CapManageSections), h.Sections.UpdateStatus)
	sections.POST("/initialize", middleware.RequireCapability(models.CapManageSections), h.Sections.Initialize)

	logs := mod.Group("/logs", middleware.RequireCapability(models.CapReadLogs))
	logs.GET("/me", h.Logs.Mine)
	logs.GET("/stats/me", h.Logs.MyStats)

	users := mod.Group("/users")
	users.GET("/:id", h.Users.Get)
	users.GET("/by-username/:username", h.Users.GetByUsername)
	users.GET("/by-email/:email", h.Users.GetByEmail)
}

func registerAdmin(api *gin.RouterGroup, deps Deps, h Handlers) {
	admin := api.Group("/admin")
	admin.Use(middleware.JWT(deps.Tokens), middleware.RequireRoles(models.RoleAdmin))

	users := admin.Group("/users")
	users.GET("", h.Users.List)
	users.GET("/stats", h.Users.Stats)
	users.POST("", middleware.RequireCapability(models.CapCreateUsers), h.Users.Create)
	users.PUT("/:id", h.Users.Update)
	users.PUT("/:id/role", middleware.RequireCapability(models.CapChangeRoles), h.Users.ChangeRole)
	users.DELETE("/:id", middleware.RequireCapability(models.CapDeleteUsers), h.Users.Delete)

	logs := admin.Group("/logs", middleware.RequireCapability(models.CapReadAllLogs))
	logs.GET("", h.Logs.List)
	logs.GET("/date-range", h.Logs.ByDateRange)
	logs.GET("/stats/global", h.Logs.GlobalStats)
	logs.GET("/stats/admin/:adminId", h.Logs.AdminStats)
	logs.GET("/admin/:adminId", h.Logs.ByAdmin)
	logs.GET("/post/:postId", h.Logs.ByPost)
	logs.GET("/action/:action", h.Logs.ByAction)
	logs.GET("/:id", h.Logs.Get)
	logs.POST("/export", middleware.RequireCapability(models.CapExportLogs), h.Exports.Export)
}
