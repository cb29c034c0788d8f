package httpx

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"web-shop/services/outbox-worker/internal/metrics"
	"web-shop/services/outbox-worker/internal/outbox"
	sharedmetrics "web-shop/shared/pkg/metrics"
	"web-shop/shared/pkg/pg"
)

type Server struct {
	DB  pg.DBTX
	Log zerolog.Logger
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(sharedmetrics.Middleware("outbox-worker"))
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/outbox/pending", func(w http.ResponseWriter, r *http.Request) {
		n, err := outbox.Pending(r.Context(), s.DB)
		if err != nil {
			s.Log.Error().Err(err).Msg("count pending failed")
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		metrics.OutboxPending.Set(float64(n))
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"pending":%d}`, n)
	})

	return r
}
