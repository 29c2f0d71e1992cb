package web

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fleetledger/db/db"
	"fleetledger/ledger"
	"fleetledger/mq/mq"
)

// ServiceConfig carries everything the HTTP boundary needs. Queues may
// be nil, in which case record events are simply not published.
type ServiceConfig struct {
	IsDev  bool
	Port   string
	Store  db.FleetDBWrapper
	Conv   ledger.Converter
	Queues mq.LedgerMessageQueueWrapper
	Log    *logrus.Logger
}

// NewRouter builds the gin engine with all middlewares and routes.
// Split from Serve so handler tests can drive it with httptest.
func NewRouter(cfg ServiceConfig) *gin.Engine {
	if !cfg.IsDev {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		store:  cfg.Store,
		conv:   cfg.Conv,
		queues: cfg.Queues,
		log:    cfg.Log,
	}

	r := gin.New()
	setupMiddlewares(r)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.POST("/drivers", s.createDriver)
		api.GET("/drivers/:id", s.getDriver)
		api.POST("/drivers/:id/previous-debt", s.seedPreviousDebt)

		api.POST("/trips", s.createTrip)
		api.GET("/trips/:id", s.getTrip)
		api.POST("/trips/:id/fuel", s.addTripFuel)
		api.POST("/trips/:id/expenses", s.addTripExpense)

		api.POST("/flights", s.createFlight)
		api.GET("/flights/:id", s.getFlight)
		api.POST("/flights/:id/expenses", s.addFlightExpense)
		api.PUT("/flights/:id/legs/:index", s.updateFlightLeg)
		api.POST("/flights/:id/pay", s.recordFlightPayment)

		api.GET("/driver-debts", s.driverDebts)
		api.POST("/recompute", s.triggerRecompute)
	}

	return r
}

// Serve runs the HTTP boundary until the process exits.
func Serve(cfg ServiceConfig) error {
	r := NewRouter(cfg)

	addr := ":8080"
	if cfg.Port != "" {
		addr = ":" + cfg.Port
	}
	cfg.Log.WithField("addr", addr).Info("fleet ledger listening")
	return r.Run(addr)
}
