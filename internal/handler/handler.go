// Package handler exposes the register over HTTP with gin.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tutorregister/internal/attendance"
	"tutorregister/internal/auth"
	"tutorregister/internal/live"
	"tutorregister/internal/metrics"
	"tutorregister/internal/queue"
	"tutorregister/internal/store"
	"tutorregister/pkg/sl"
)

// AuthConfig holds token settings and enrollment keys.
type AuthConfig struct {
	Issuer     string
	SigningKey string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	EnrollKey  string
	AdminKey   string
	// OpenEnroll lets anyone enroll as a scanner when no keys are set.
	OpenEnroll bool
}

// Handler serves every API route.
type Handler struct {
	svc     *attendance.Service
	queue   queue.Queue
	redis   *store.Redis
	hub     *live.Hub
	metrics *metrics.Metrics
	log     *slog.Logger
	auth    AuthConfig
}

// Deps are the handler's collaborators. Redis, Hub and Metrics may be nil.
type Deps struct {
	Service *attendance.Service
	Queue   queue.Queue
	Redis   *store.Redis
	Hub     *live.Hub
	Metrics *metrics.Metrics
	Log     *slog.Logger
	Auth    AuthConfig
}

func New(d Deps) *Handler {
	return &Handler{
		svc:     d.Service,
		queue:   d.Queue,
		redis:   d.Redis,
		hub:     d.Hub,
		metrics: d.Metrics,
		log:     d.Log,
		auth:    d.Auth,
	}
}

// Register mounts the routes on r. Install Observe on r before calling it.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)

	devices := r.Group("/v1/devices")
	devices.POST("/register", h.RegisterDevice)
	devices.POST("/refresh", h.RefreshToken)

	api := r.Group("/v1", auth.DeviceAuth(h.auth.SigningKey, h.auth.Issuer))
	{
		api.POST("/scans", h.Scan)
		api.GET("/scans/next", h.NextAction)
		api.GET("/events", h.Events)
		api.GET("/inside", h.CurrentlyIn)
		api.POST("/marks", h.Mark)

		api.GET("/sheet", h.Sheet)
		api.GET("/sheet.csv", h.SheetCSV)
		api.GET("/sheet.xlsx", h.SheetXLSX)
		api.GET("/today", h.Today)
		api.GET("/tracking", h.Tracking)
		api.GET("/tracking.csv", h.TrackingCSV)
		api.GET("/dates", h.ClassDates)

		api.GET("/learners", h.ListLearners)
		api.GET("/learners/:barcode", h.GetLearner)
		api.GET("/learners/:barcode/qr.png", h.LearnerQR)

		if h.hub != nil {
			api.GET("/ws", h.hub.ServeWS)
		}
	}

	admin := api.Group("", auth.RequireRole(auth.RoleAdmin))
	{
		admin.PUT("/learners", h.UpsertLearner)
		admin.DELETE("/learners/:barcode", h.DeleteLearner)
		admin.POST("/roster", h.ReplaceRoster)
		admin.POST("/reports/:date/send", h.SendReport)
	}
}

// Healthz reports store and redis reachability.
func (h *Handler) Healthz(c *gin.Context) {
	ctx := c.Request.Context()
	dbHealthy := h.svc.Ping(ctx) == nil

	body := gin.H{"status": "ok", "db": dbHealthy}
	status := http.StatusOK
	if h.redis != nil {
		redisHealthy := h.redis.Healthy(ctx)
		body["redis"] = redisHealthy
		if !redisHealthy {
			status = http.StatusServiceUnavailable
		}
	}
	if !dbHealthy {
		status = http.StatusServiceUnavailable
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

// Observe records request latency per route. gin only applies middleware to routes added
// after Use, so it must be installed before any route.
func (h *Handler) Observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		h.metrics.ObserveHTTP(route, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// fail maps domain errors to status codes. Anything unrecognised is logged and reported as 500.
func (h *Handler) fail(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, attendance.ErrEmptyInput), errors.Is(err, attendance.ErrMissingColumns):
		status = http.StatusBadRequest
	case errors.Is(err, attendance.ErrNotFound), errors.Is(err, attendance.ErrMissingFile):
		status = http.StatusNotFound
	case errors.Is(err, attendance.ErrDuplicateKey), errors.Is(err, attendance.ErrDeviceConflict):
		status = http.StatusConflict
	default:
		h.log.Error("request failed",
			slog.String("path", c.FullPath()),
			slog.String("request_id", c.GetString("request_id")),
			sl.Err(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// dateParam returns the ISO date from the query (or today) and whether it is valid.
func (h *Handler) dateParam(c *gin.Context, key string) (string, bool) {
	date := c.Query(key)
	if date == "" {
		return h.svc.TodayISO(), true
	}
	if _, err := attendance.ParseDateISO(date); err != nil {
		badRequest(c, "invalid date "+strconv.Quote(date)+", want YYYY-MM-DD")
		return "", false
	}
	return date, true
}

func (h *Handler) broadcast(typ string, data any) {
	if h.hub != nil {
		h.hub.Broadcast(typ, data)
	}
}
