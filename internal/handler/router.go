package handler

import (
	"net/http"

	"github.com/Lllllllleong/aethercare/internal/auth"
	"github.com/Lllllllleong/aethercare/internal/metrics"
	"github.com/Lllllllleong/aethercare/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RouterDeps collects everything the HTTP surface needs.
type RouterDeps struct {
	Verifier    auth.Verifier
	Generator   ReportGenerator
	History     ReportHistory
	Profiles    ProfileStore
	Wallets     WalletStore
	Accounts    AccountReader
	RateLimiter *middleware.RateLimiter
}

// NewRouter builds the gin engine. Report generation is rate limited per
// subject; the cheaper read and profile routes are only authenticated.
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	reports := NewReportHandler(d.Generator, d.History)
	profiles := NewProfileHandler(d.Profiles)
	wallets := NewWalletHandler(d.Wallets)
	accounts := NewAccountHandler(d.Accounts)

	protected := router.Group("/")
	protected.Use(middleware.Auth(d.Verifier))

	generate := []gin.HandlerFunc{reports.Generate}
	if d.RateLimiter != nil {
		generate = append([]gin.HandlerFunc{d.RateLimiter.Handler()}, generate...)
	}
	protected.POST("/", generate...)
	protected.POST("/reports", generate...)
	protected.GET("/reports", reports.List)
	protected.GET("/reports/:id", reports.Get)

	protected.GET("/profile", profiles.Get)
	protected.PUT("/profile", profiles.Put)

	protected.GET("/wallet", wallets.Get)
	protected.PUT("/wallet", wallets.Link)
	protected.DELETE("/wallet", wallets.Unlink)
	protected.GET("/me", accounts.Get)

	return router
}
