package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"campaignhub/internal/metrics"
	"campaignhub/internal/middleware"
)

// RouterDeps are the collaborators the HTTP API is built from
type RouterDeps struct {
	Dispatcher Dispatcher
	Campaigns  CampaignReader
	Health     HealthChecker
	Metrics    *metrics.Metrics
	Logger     logrus.FieldLogger
}

// NewRouter wires every route and the middleware chain
func NewRouter(deps RouterDeps) *mux.Router {
	campaignHandler := NewCampaignHandler(deps.Dispatcher, deps.Campaigns, deps.Logger)
	previewHandler := NewPreviewHandler(deps.Campaigns, deps.Logger)
	healthHandler := NewHealthHandler(deps.Health)

	router := mux.NewRouter()
	router.Use(
		middleware.Recovery(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.Metrics(deps.Metrics),
	)

	router.HandleFunc("/health", healthHandler.HandleHealth).Methods(http.MethodGet)
	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics.Handler()).Methods(http.MethodGet)
	}

	campaigns := router.PathPrefix("/campaigns").Subrouter()
	campaigns.HandleFunc("/send", campaignHandler.Send).Methods(http.MethodPost)
	campaigns.HandleFunc("/{id}", campaignHandler.GetByID).Methods(http.MethodGet)
	campaigns.HandleFunc("/{id}/send", campaignHandler.SendByID).Methods(http.MethodPost)
	campaigns.HandleFunc("/{id}/send-async", campaignHandler.SendAsync).Methods(http.MethodPost)
	campaigns.HandleFunc("/{id}/preview", previewHandler.Preview).Methods(http.MethodPost)

	return router
}
