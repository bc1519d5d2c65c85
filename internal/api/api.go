package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"canteen/internal/auth"
	"canteen/internal/billing"
	"canteen/internal/catalog"
	"canteen/internal/config"
	"canteen/internal/httpmiddleware"
	"canteen/internal/mealplan"
	"canteen/internal/order"
	"canteen/internal/queue"
	"canteen/internal/report"
	"canteen/internal/scanner"
	"canteen/internal/store"
	"canteen/internal/student"
	"canteen/internal/sysconfig"
)

// Handler carries the wired services behind the REST surface.
type Handler struct {
	cfg config.App
	log *slog.Logger

	db    *store.DB
	redis *store.Redis
	queue queue.Queue

	authRepo  *auth.Repository
	students  *student.Repository
	catalog   *catalog.Repository
	billing   *billing.Repository
	orders    *order.Repository
	plans     *mealplan.Repository
	planner   *mealplan.Service
	scans     *scanner.Service
	sysconfig *sysconfig.Service
	reports   *report.Service
}

// Deps bundles constructor arguments for New.
type Deps struct {
	Cfg   config.App
	Log   *slog.Logger
	DB    *store.DB
	Redis *store.Redis
	Queue queue.Queue

	AuthRepo  *auth.Repository
	Students  *student.Repository
	Catalog   *catalog.Repository
	Billing   *billing.Repository
	Orders    *order.Repository
	Plans     *mealplan.Repository
	Planner   *mealplan.Service
	Scans     *scanner.Service
	SysConfig *sysconfig.Service
	Reports   *report.Service
}

// New creates the handler.
func New(d Deps) *Handler {
	return &Handler{
		cfg: d.Cfg, log: d.Log, db: d.DB, redis: d.Redis, queue: d.Queue,
		authRepo: d.AuthRepo, students: d.Students, catalog: d.Catalog,
		billing: d.Billing, orders: d.Orders, plans: d.Plans, planner: d.Planner,
		scans: d.Scans, sysconfig: d.SysConfig, reports: d.Reports,
	}
}

// Router assembles the gin engine with middleware and all routes.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewTokenBucket(h.cfg.RateLimitPerMin, h.cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.Healthz)

	r.POST("/v1/devices/register", h.RegisterDevice)
	r.POST("/v1/auth/login", h.Login)

	v1 := r.Group("/v1", auth.Bearer(h.cfg.JWTSigningKey, h.cfg.JWTIssuer))
	v1.POST("/auth/logout", h.Logout)

	scan := v1.Group("/scanner")
	scan.POST("/scan", auth.Require(auth.CapScan), h.Scan)
	scan.POST("/manual-approval", auth.Require(auth.CapApproveScan), h.ManualApproval)
	scan.GET("/recent-scans", auth.Require(auth.CapScan), h.RecentScans)

	fnb := v1.Group("/fnb-manager", auth.Require(auth.CapManageBilling))
	fnb.GET("/packages", h.ListPackages)
	fnb.POST("/packages", h.CreatePackage)
	fnb.GET("/subscriptions", h.ListSubscriptions)
	fnb.POST("/subscriptions", h.CreateSubscription)
	fnb.GET("/subscriptions/:id", h.GetSubscription)
	fnb.PUT("/subscriptions/:id", h.UpdateSubscriptionStatus)

	cat := v1.Group("", auth.Require(auth.CapManageCatalog))
	cat.GET("/vendors", h.ListVendors)
	cat.POST("/vendors", h.UpsertVendor)
	cat.GET("/items", h.ListItems)
	cat.POST("/items", h.UpsertItem)
	cat.POST("/items/:id/stock", h.AdjustStock)
	cat.GET("/dishes", h.ListDishes)
	cat.POST("/dishes", h.UpsertDish)
	cat.GET("/dishes/:id", h.GetDish)
	cat.GET("/meal-plans", h.ListMealPlans)
	cat.POST("/meal-plans", h.UpsertMealPlan)
	cat.DELETE("/meal-plans/:id", h.DeleteMealPlan)

	stu := v1.Group("/students", auth.Require(auth.CapManageStudents))
	stu.GET("", h.ListStudents)
	stu.POST("", h.CreateStudent)
	stu.GET("/:id", h.GetStudent)
	stu.PUT("/:id", h.UpdateStudent)

	ord := v1.Group("/orders", auth.Require(auth.CapManageOrders))
	ord.GET("", h.ListOrders)
	ord.POST("", h.CreateOrder)
	ord.GET("/:id", h.GetOrder)
	ord.POST("/:id/status", h.TransitionOrder)
	ord.POST("/:id/pay", h.PayOrder)

	cfg := v1.Group("/config", auth.Require(auth.CapManageConfig))
	cfg.GET("", h.GetConfig)
	cfg.PUT("", h.PutConfig)

	rep := v1.Group("", auth.Require(auth.CapViewReports))
	rep.GET("/dashboard", h.Dashboard)
	rep.GET("/reports/attendance.xlsx", h.AttendanceXLSX)

	return r
}

// Healthz reports db and redis reachability.
func (h *Handler) Healthz(c *gin.Context) {
	redisHealthy := h.redis.Healthy(c.Request.Context())
	dbHealthy := h.db != nil && h.db.Client.PingContext(c.Request.Context()) == nil
	status := http.StatusOK
	if !redisHealthy || !dbHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
}

// CORS middleware for browser requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
