package raster

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tilesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gridwarp_tiles_processed_total",
			Help: "Tiles processed by the tile executor, by outcome.",
		},
		[]string{"outcome"},
	)

	tileBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gridwarp_tile_batch_duration_seconds",
			Help:    "Wall time of whole tile-executor runs.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)
)

func observeTile(err error) {
	if err != nil {
		tilesProcessed.WithLabelValues("error").Inc()
		return
	}
	tilesProcessed.WithLabelValues("ok").Inc()
}
