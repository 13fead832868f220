package metric

import (
	"log/slog"
	"time"

	"calstore/src-server/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func register(gauge prometheus.Gauge, name string) bool {
	if err := prometheus.Register(gauge); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			slog.Error("can't register metric", "name", name, "error", err)
			return false
		}
	}
	slog.Debug("metric registered", "name", name)
	gauge.Set(0)
	return true
}

func unregister(gauge prometheus.Gauge, name string) {
	switch prometheus.Unregister(gauge) {
	case true:
		slog.Debug("metric unregistered", "name", name)
	case false:
		slog.Warn("metric not registered", "name", name)
	}
}

// Probes the committed document on a ticker: how many events it holds, how
// stale lastUpdated is, and how long the read took.
func collectionProbe(as *utils.AppState, tickerInterval time.Duration) {
	eventsTotal := promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calstore_events_total",
		Help: "Number of events in the persisted collection",
	})
	lastUpdatedAge := promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calstore_last_updated_age_seconds",
		Help: "Seconds since the collection was last mutated",
	})
	storeRead := promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calstore_store_read_microsec",
		Help: "The latency of a full collection read in microseconds",
	})
	register(eventsTotal, "calstore_events_total")
	register(lastUpdatedAge, "calstore_last_updated_age_seconds")
	register(storeRead, "calstore_store_read_microsec")

	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		ticker := time.NewTicker(tickerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				unregister(eventsTotal, "calstore_events_total")
				unregister(lastUpdatedAge, "calstore_last_updated_age_seconds")
				unregister(storeRead, "calstore_store_read_microsec")
				return
			case <-ticker.C:
				startTimer := time.Now()
				collection, err := as.Manager.ListAll()
				if err != nil {
					slog.Error("can't probe event collection", "error", err)
					continue
				}
				storeRead.Set(float64(time.Since(startTimer).Microseconds()))
				eventsTotal.Set(float64(len(collection.Events)))
				if lastUpdated, err := time.Parse(time.RFC3339Nano, collection.LastUpdated); err == nil {
					lastUpdatedAge.Set(time.Since(lastUpdated).Seconds())
				}
			}
		}
	}()
}

// Mirrors the writer's save latency, reported by the manager after every
// durable commit.
func storeWrite(as *utils.AppState) {
	storeWrite := promauto.NewGauge(prometheus.GaugeOpts{
		Name: "calstore_store_write_microsec",
		Help: "The latency of the last durable collection save in microseconds",
	})
	register(storeWrite, "calstore_store_write_microsec")

	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		for {
			select {
			case <-*gracefulShutdownCh:
				unregister(storeWrite, "calstore_store_write_microsec")
				return
			case latency := <-as.Metric.StoreWrite:
				storeWrite.Set(latency)
			}
		}
	}()
}

func Init(as *utils.AppState) {
	collectionProbe(as, 15*time.Second)
	storeWrite(as)
}
