package flakechartserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"html/template"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/kubernetes/minikube/pkg/flakechart/flakechartapi"
	"github.com/kubernetes/minikube/pkg/flakechart/flakechartlib"
	"github.com/kubernetes/minikube/pkg/flakechart/flakechartview"
	pagehtml "github.com/kubernetes/minikube/pkg/html"
	"github.com/kubernetes/minikube/pkg/httphelper"
)

// Server serves the flake dashboard and its JSON payloads from a dataset loaded once. Every
// request aggregates the dataset again.
type Server struct {
	runs      []flakechartapi.TestRun
	config    Config
	clock     clock.PassiveClock
	link      flakechartview.HashLinker
	metrics   *httphelper.Metrics
	logger    logrus.FieldLogger
	dashboard *template.Template
}

// NewServer returns a server of runs. metrics may be nil.
func NewServer(runs []flakechartapi.TestRun, config Config, c clock.PassiveClock, metrics *httphelper.Metrics, logger logrus.FieldLogger) *Server {
	return &Server{
		runs:      runs,
		config:    config,
		clock:     c,
		link:      config.HashLinker(),
		metrics:   metrics,
		logger:    logger,
		dashboard: template.Must(template.New("dashboard").Parse(dashboardTemplate)),
	}
}

func (s *Server) Handler() (http.Handler, error) {
	router := httprouter.New()
	handle := func(path string, h http.HandlerFunc) {
		router.HandlerFunc(http.MethodGet, path, httphelper.WithRequestLogging(s.logger, s.metrics.HandleWithMetrics(path, h)))
	}
	handle("/", s.serveDashboard)
	handle("/test", s.serveTest)
	handle("/env", s.serveEnvironment)
	handle("/summary", s.serveSummary)
	handle("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	static, err := pagehtml.StaticHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to load static assets: %w", err)
	}
	router.Handler(http.MethodGet, pagehtml.StaticURL+"*filepath", static)
	router.Handler(http.MethodGet, "/metrics", promhttp.Handler())
	return router, nil
}

var (
	errEnvironmentRequired = errors.New("the env parameter is required")
	errTestRequired        = errors.New("the test parameter is required")
)

// query parses the request parameters and selects the runs of the requested period.
func (s *Server) query(r *http.Request) (flakechartlib.ChartQuery, []flakechartapi.TestRun, error) {
	query, err := flakechartlib.ParseChartQuery(r.URL.Query())
	if err != nil {
		return query, nil, err
	}
	return query, query.Period.Filter(s.runs, s.clock), nil
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	s.metrics.RecordError("bad-request")
	http.Error(w, html.EscapeString(err.Error()), http.StatusBadRequest)
}

func (s *Server) writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.metrics.RecordError("encode")
		s.logger.WithError(err).Error("Failed to encode response.")
	}
}

func (s *Server) serveTest(w http.ResponseWriter, r *http.Request) {
	query, runs, err := s.query(r)
	switch {
	case err != nil:
	case len(query.Environment) == 0:
		err = errEnvironmentRequired
	case !query.HasTest:
		err = errTestRequired
	}
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.writeJSON(w, flakechartlib.BuildTestResponse(runs, query.Environment, query.Test))
}

func (s *Server) serveEnvironment(w http.ResponseWriter, r *http.Request) {
	query, runs, err := s.query(r)
	if err == nil && len(query.Environment) == 0 {
		err = errEnvironmentRequired
	}
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.writeJSON(w, flakechartlib.BuildEnvResponse(runs, query.Environment, query.RankOptions(s.config.RankOptions())))
}

func (s *Server) serveSummary(w http.ResponseWriter, r *http.Request) {
	_, runs, err := s.query(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	s.writeJSON(w, flakechartlib.BuildSummaryResponse(runs, s.config.RankOptions().DateRange))
}
