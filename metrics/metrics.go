package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calorie_tracker",
			Name:      "mutations_total",
			Help:      "Repository operations that changed the collection.",
		},
		[]string{"op"},
	)

	persistFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "calorie_tracker",
			Name:      "persist_failures_total",
			Help:      "Writes the durable medium rejected.",
		},
	)

	restoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "calorie_tracker",
			Name:      "restores_total",
			Help:      "Reads of the durable record by outcome.",
		},
		[]string{"status"},
	)

	collectionSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "calorie_tracker",
			Name:      "collection_size",
			Help:      "Entities in the working collection.",
		},
	)
)

func RecordMutation(op string) { mutationsTotal.WithLabelValues(op).Inc() }

func RecordPersistFailure() { persistFailuresTotal.Inc() }

func RecordRestore(status string) { restoresTotal.WithLabelValues(status).Inc() }

func SetCollectionSize(n int) { collectionSize.Set(float64(n)) }
