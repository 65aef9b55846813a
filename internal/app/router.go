package app

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Prefix            string
	CORSOrigins       []string
	MaxRequestsPerMin int
	StaticTokens      []string
	JWTSecret         string
	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For and
	// X-Real-IP headers are believed. Empty trusts none.
	TrustedProxies []string
}

// NewRouter mounts the schedule routes at the root and again under
// cfg.Prefix. Health routes are never behind auth.
func NewRouter(a *App, cfg RouterConfig) *gin.Engine {
	log := a.logger()

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("ignoring invalid trusted proxies, trusting none", zap.Strings("proxies", cfg.TrustedProxies), zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(RequestID())
	router.Use(Recovery(log))
	router.Use(Logger(log))
	router.Use(CORS(cfg.CORSOrigins))
	router.Use(RateLimit(cfg.MaxRequestsPerMin, log))

	router.GET("/health", a.HealthHandler)
	router.GET("/readyz", a.ReadyHandler)

	auth := AuthMiddleware(cfg.StaticTokens, cfg.JWTSecret)
	a.registerSchedule(router.Group("/", auth))
	if prefix := strings.TrimRight(cfg.Prefix, "/"); prefix != "" {
		a.registerSchedule(router.Group(prefix, auth))
	}
	return router
}

func (a *App) registerSchedule(r *gin.RouterGroup) {
	s := r.Group("/schedule")
	{
		s.GET("/busy_slots", a.BusySlotsHandler)
		s.GET("/free_slots", a.FreeSlotsHandler)
		s.GET("/is_slot_free", a.IsSlotFreeHandler)
		s.GET("/find_free_slot", a.FindFreeSlotHandler)
		s.GET("/first_gap", a.FirstGapHandler)
	}
}
