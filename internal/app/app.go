// Package app wires repositories, services and handlers into the HTTP API.
package app

import (
	"time"

	"github.com/nimasrn/campaign-mailer/internal/handlers"
	"github.com/nimasrn/campaign-mailer/internal/repository"
	"github.com/nimasrn/campaign-mailer/internal/services"
	xhttp "github.com/nimasrn/campaign-mailer/pkg/http"
	"github.com/nimasrn/campaign-mailer/pkg/pg"
)

const APIPrefix = "/api"

type Options struct {
	Location       *time.Location
	MaxRetries     int
	PendingLimit   int
	RetryableLimit int

	// Publisher is nil when delivery events are disabled.
	Publisher services.EventPublisher
	Workflow  services.WorkflowGateway
	// Source tags the workflow test payload.
	Source string

	CorsOrigin     string
	RequestTimeout time.Duration
	ExposeErrors   bool

	// HealthChecks are probed by GET /api/health besides the database.
	HealthChecks map[string]handlers.Pinger
}

// NewServer builds the engine with the full middleware chain and every
// route registered under /api.
func NewServer(db *pg.DB, serverOpt xhttp.ServerOption, opts Options) *xhttp.Engine {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.CorsOrigin == "" {
		opts.CorsOrigin = "*"
	}
	handlers.ExposeErrors(opts.ExposeErrors)

	s := xhttp.NewServer(serverOpt)
	s.Use(xhttp.RequestIDMiddleware)
	s.Use(xhttp.CORSMiddleware(opts.CorsOrigin))
	s.Use(xhttp.RecoverMiddleware)
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.TimeoutMiddleware(opts.RequestTimeout))
	s.Use(xhttp.CompressMiddleware(6))

	Register(s.Router.Group(APIPrefix), db, opts)
	return s
}

// Register attaches every handler to g.
func Register(g *xhttp.Group, db *pg.DB, opts Options) {
	templateRepo := repository.NewTemplateRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	clientRepo := repository.NewClientRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	queueRepo := repository.NewQueueRepository(db)
	eventRepo := repository.NewDeliveryEventRepository(db)
	trackingRepo := repository.NewTrackingRepository(db)

	templateService := services.NewTemplateService(templateRepo)
	campaignService := services.NewCampaignService(campaignRepo)
	clientService := services.NewClientService(db, clientRepo, campaignRepo)
	scheduleService := services.NewScheduleService(db, campaignRepo, templateRepo, clientRepo, scheduleRepo, queueRepo,
		services.ScheduleOptions{Location: opts.Location, MaxRetries: opts.MaxRetries})
	deliveryService := services.NewDeliveryService(db, queueRepo, scheduleRepo, campaignRepo, eventRepo,
		services.DeliveryOptions{
			PendingLimit:   opts.PendingLimit,
			RetryableLimit: opts.RetryableLimit,
			Publisher:      opts.Publisher,
		})
	trackingService := services.NewTrackingService(campaignRepo, trackingRepo, opts.Location)
	workflowService := services.NewWorkflowService(opts.Workflow, opts.Source)

	checks := map[string]handlers.Pinger{"postgres": db}
	for name, p := range opts.HealthChecks {
		checks[name] = p
	}

	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(checks))
	handlers.RegisterTemplateRoutes(g, handlers.NewTemplateHandler(templateService))
	handlers.RegisterCampaignRoutes(g, handlers.NewCampaignHandler(campaignService))
	handlers.RegisterClientRoutes(g, handlers.NewClientHandler(clientService))
	handlers.RegisterScheduleRoutes(g, handlers.NewScheduleHandler(scheduleService))
	handlers.RegisterQueueRoutes(g, handlers.NewQueueHandler(deliveryService))
	handlers.RegisterTrackingRoutes(g, handlers.NewTrackingHandler(trackingService))
	handlers.RegisterWorkflowRoutes(g, handlers.NewWorkflowHandler(workflowService))
}
