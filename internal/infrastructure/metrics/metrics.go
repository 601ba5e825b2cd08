// Package metrics exposes Prometheus collectors for backup jobs.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	// DumpCount tracks dump attempts per database and outcome
	DumpCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dbdrive_dump_total",
		Help: "The total number of database dumps attempted",
	}, []string{"engine", "database", "status"})

	DumpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dbdrive_dump_duration_seconds",
		Help:    "Time taken to dump one database",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"engine", "database"})

	UploadCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dbdrive_upload_total",
		Help: "The total number of artifact uploads attempted",
	}, []string{"remote", "status"})

	UploadDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dbdrive_upload_duration_seconds",
		Help:    "Time taken to upload one artifact",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"remote"})

	ArtifactSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dbdrive_artifact_size_bytes",
		Help: "Size of the last uploaded artifact",
	}, []string{"database"})

	RetentionDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dbdrive_retention_deletions_total",
		Help: "The total number of remote artifacts removed by retention",
	}, []string{"remote", "status"})

	// LastSuccess records the unix time of the last fully successful job
	LastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dbdrive_last_success_timestamp_seconds",
		Help: "Timestamp of the last job where every database succeeded",
	})

	JobCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dbdrive_job_total",
		Help: "The total number of backup jobs run",
	}, []string{"status"})
)

func Status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// Serve blocks until ctx is cancelled, then shuts the server down.
func Serve(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:         addr,
		Handler:      Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
