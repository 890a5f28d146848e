package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"villabook/internal/infra/config"
	"villabook/internal/infra/obs"
)

type CatalogHTTP interface {
	Units(c *gin.Context)
	Quote(c *gin.Context)
}

type CalendarHTTP interface {
	Month(c *gin.Context)
	Stream(c *gin.Context)
}

type ReservationHTTP interface {
	Create(c *gin.Context)
}

type AdminHTTP interface {
	Login(c *gin.Context)
	Logout(c *gin.Context)
	ListReservations(c *gin.Context)
	UpdateReservation(c *gin.Context)
	SetStatus(c *gin.Context)
	DeleteReservation(c *gin.Context)
	Stats(c *gin.Context)
	ListBlocks(c *gin.Context)
	Block(c *gin.Context)
	Unblock(c *gin.Context)
	Export(c *gin.Context)
	Reconcile(c *gin.Context)
}

type EmailHTTP interface {
	Send(c *gin.Context)
}

type Handlers struct {
	Catalog        CatalogHTTP
	Calendar       CalendarHTTP
	Reservations   ReservationHTTP
	Admin          AdminHTTP
	Email          EmailHTTP
	Metrics        http.Handler
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the route table without touching the global gin mode.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.Access())
	router.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}
	if h.Email != nil {
		router.POST("/api/send-email", h.Email.Send)
	}

	api := router.Group("/api/v1")
	if h.Catalog != nil {
		api.GET("/units", h.Catalog.Units)
		api.GET("/units/:id/quote", h.Catalog.Quote)
	}
	if h.Calendar != nil {
		api.GET("/units/:id/calendar", h.Calendar.Month)
		api.GET("/units/:id/calendar/stream", h.Calendar.Stream)
	}
	if h.Reservations != nil {
		api.POST("/reservations", h.Reservations.Create)
	}
	if h.Admin != nil {
		api.POST("/admin/login", h.Admin.Login)
		api.POST("/admin/logout", h.Admin.Logout)

		adminGroup := api.Group("/admin")
		adminGroup.GET("/reservations", h.Admin.ListReservations)
		adminGroup.PATCH("/reservations/:id", h.Admin.UpdateReservation)
		adminGroup.PUT("/reservations/:id/status", h.Admin.SetStatus)
		adminGroup.DELETE("/reservations/:id", h.Admin.DeleteReservation)
		adminGroup.GET("/stats", h.Admin.Stats)
		adminGroup.GET("/blocks", h.Admin.ListBlocks)
		adminGroup.POST("/blocks", h.Admin.Block)
		adminGroup.DELETE("/blocks/:id", h.Admin.Unblock)
		adminGroup.POST("/exports", h.Admin.Export)
		adminGroup.POST("/reconcile", h.Admin.Reconcile)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
