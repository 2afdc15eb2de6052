package server

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"strings"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/ThiagoRGoveia/sheet-ingestion/internal/ingestion"
	"github.com/ThiagoRGoveia/sheet-ingestion/internal/schema"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Ingester ingestion.Ingester
	Specs    schema.Specs
	Health   Pinger

	// MediaURL and MediaRoot serve archived files; an empty MediaRoot disables the route.
	MediaURL  string
	MediaRoot string

	// Metrics is mounted at MetricsPath when not nil.
	Metrics     http.Handler
	MetricsPath string

	MaxUploadSize   int64
	MaxUploadMemory int64

	Log *logrus.Entry
}

type Server struct {
	opts  Options
	pages *template.Template
	log   *logrus.Entry
}

func New(opts Options) (*Server, error) {
	pages, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{
		opts:  opts,
		pages: pages,
		log:   opts.Log.WithField("component", "http"),
	}, nil
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger(s.log))

	r.HandleFunc("/", s.home).Methods(http.MethodGet)
	for _, name := range s.opts.Specs.Names() {
		spec := s.opts.Specs[name]
		r.Handle("/upload-"+name+"/", s.uploadHandler(spec)).Methods(http.MethodGet, http.MethodPost)
	}
	r.HandleFunc("/health", s.health).Methods(http.MethodGet)

	if s.opts.Metrics != nil && s.opts.MetricsPath != "" {
		r.Handle(s.opts.MetricsPath, s.opts.Metrics).Methods(http.MethodGet)
	}
	if s.opts.MediaRoot != "" {
		prefix := strings.TrimSuffix(s.opts.MediaURL, "/") + "/"
		r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, mediaHandler(s.opts.MediaRoot))).Methods(http.MethodGet, http.MethodHead)
	}
	return r
}

// Handler returns the router wrapped in gzip compression.
func (s *Server) Handler() http.Handler {
	return gziphandler.GzipHandler(s.Router())
}

// mediaHandler serves archived files without directory listings.
func mediaHandler(root string) http.Handler {
	files := http.FileServer(http.Dir(root))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if s.opts.Health != nil {
		if err := s.opts.Health.Ping(r.Context()); err != nil {
			loggerFrom(r, s.log).WithError(err).Warn("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
