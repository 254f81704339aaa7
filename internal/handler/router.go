package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/coursepass-api/internal/middleware"
	"github.com/noah-isme/coursepass-api/internal/service"
	"github.com/noah-isme/coursepass-api/pkg/config"
	"github.com/noah-isme/coursepass-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/coursepass-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/coursepass-api/pkg/middleware/requestid"
)

// RouterConfig carries everything NewRouter wires together.
type RouterConfig struct {
	Env            string
	APIPrefix      string
	AllowedOrigins []string
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Tokens         *service.TokenService
	Policies       middleware.PolicyTable

	Admins   *AdminHandler
	Students *StudentHandler
	Grades   *GradeHandler
	Payments *PaymentHandler
	Health   *MetricsHandler
}

// NewRouter builds the gin engine with the full middleware chain and every route.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Policies == nil {
		cfg.Policies = middleware.DefaultPolicies()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(cfg.Logger))
	r.Use(corsmiddleware.New(cfg.AllowedOrigins))
	r.Use(middleware.Metrics(cfg.Metrics))
	r.Use(middleware.RequestMeta())
	r.Use(middleware.Authenticate(cfg.Tokens))
	r.Use(middleware.Authorize(cfg.Policies, cfg.APIPrefix))

	api := r.Group(cfg.APIPrefix)

	admins := api.Group("/admins")
	admins.POST("/validate", cfg.Admins.Validate)
	admins.POST("/add", cfg.Admins.Add)
	admins.DELETE("/remove", cfg.Admins.Remove)
	admins.GET("", cfg.Admins.List)
	admins.POST("/contains", cfg.Admins.Contains)
	admins.POST("/updatePassword", cfg.Admins.UpdatePassword)
	admins.POST("/update-student-password", cfg.Admins.UpdateStudentPassword)

	students := api.Group("/students")
	students.POST("/add", cfg.Students.Add)
	students.DELETE("/remove", cfg.Students.Remove)
	students.POST("/validate", cfg.Students.Validate)
	students.GET("/whoami", cfg.Students.WhoAmI)
	students.POST("/activate", cfg.Students.Activate)
	students.POST("/approve", cfg.Students.Approve)
	students.GET("", cfg.Students.List)
	api.GET("/whoami", cfg.Students.WhoAmI)

	grades := api.Group("/grades")
	grades.GET("", cfg.Grades.List)
	grades.POST("", cfg.Grades.Submit)
	grades.GET("/export", cfg.Grades.Export)

	stripe := api.Group("/api/stripe")
	stripe.POST("/create-checkout-session", cfg.Payments.CreateCheckoutSession)
	stripe.POST("/webhook", cfg.Payments.Webhook)

	api.GET("/roles", NewRolesHandler(cfg.Policies, cfg.APIPrefix).List)
	api.GET("/health", cfg.Health.Health)
	api.GET("/ready", cfg.Health.Ready)
	api.GET("/metrics", cfg.Health.Prometheus)

	if cfg.Env != config.EnvProduction {
		api.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	return r
}
