package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi"
	chi_middleware "github.com/go-chi/chi/middleware"
	api_v1 "github.com/hostfleet/gangway/pkg/api/v1"
	"github.com/hostfleet/gangway/pkg/gate"
	"github.com/hostfleet/gangway/pkg/metrics"
	"github.com/hostfleet/gangway/pkg/middleware"
)

// Deploys can transfer large trees and wait on health; requests get a
// generous ceiling and individual stages bound themselves further.
var requestTimeout = time.Minute * 30

type Config struct {
	Gate        *gate.Gate
	Executor    api_v1.Executor
	Deployer    api_v1.Deployer
	Waiter      api_v1.Waiter
	Augmenter   api_v1.Augmenter
	MetricsPath string
}

func New(cfg Config) chi.Router {
	handler := &api_v1.Handler{
		Gate:      cfg.Gate,
		Executor:  cfg.Executor,
		Deployer:  cfg.Deployer,
		Waiter:    cfg.Waiter,
		Augmenter: cfg.Augmenter,
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestLogger(),
		middleware.PrometheusMiddlewareHandler("gangway"),
		chi_middleware.StripSlashes,
	)

	router.Get(cfg.MetricsPath, metrics.Handler().ServeHTTP)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(
			chi_middleware.AllowContentType("application/json"),
			chi_middleware.Timeout(requestTimeout),
		)

		r.Post("/deploy", handler.Deploy)
		r.Post("/execute", handler.Execute)
		r.Post("/wait", handler.Wait)
	})

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return router
}
