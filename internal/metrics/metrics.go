package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"

	"tp-tracker/internal/database"
)

const (
	namespace = "tp_tracker"
	subsystem = "alerts"
)

type Metrics struct {
	Cycles          prometheus.Counter
	APIErrors       prometheus.Counter
	TrackersSkipped prometheus.Counter
	AlertsFired     *prometheus.CounterVec
	Deliveries      *prometheus.CounterVec
	HistoryEntries  prometheus.Gauge
	LastCycle       prometheus.Gauge
	CycleSeconds    prometheus.Histogram
	Mutex           sync.Mutex
}

// New creates the tracker metrics and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycles_total",
			Help:      "The total number of completed poll cycles",
		}),
		APIErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "api_errors",
			Help:      "The total number of failed marketplace requests",
		}),
		TrackersSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "trackers_skipped",
			Help:      "The total number of trackers skipped because of invalid config or API errors",
		}),
		AlertsFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "alerts_fired",
				Help:      "The total number of alerts produced per kind",
			},
			[]string{"kind"},
		),
		Deliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "deliveries",
				Help:      "The total number of delivery attempts per channel and result",
			},
			[]string{"channel", "result"},
		),
		HistoryEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "history_entries",
			Help:      "The number of item sides with a last notified price",
		}),
		LastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "last_cycle_timestamp",
			Help:      "Unix time the last cycle finished",
		}),
		CycleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cycle_seconds",
			Help:      "Duration of a poll cycle",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
	}

	reg.MustRegister(
		m.Cycles,
		m.APIErrors,
		m.TrackersSkipped,
		m.AlertsFired,
		m.Deliveries,
		m.HistoryEntries,
		m.LastCycle,
		m.CycleSeconds,
	)

	return m
}

// Delivered counts one delivery attempt on channel
func (m *Metrics) Delivered(channel string, ok bool) {
	result := "success"
	if !ok {
		result = "failure"
	}
	m.Deliveries.WithLabelValues(channel, result).Inc()
}

// LoadFromDB restores the counters saved by SaveToDB
func (m *Metrics) LoadFromDB(db *database.DB) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	// Load non-labeled metrics
	cycles, _ := db.GetMetric("cycles_total")
	apiErrors, _ := db.GetMetric("api_errors")
	skipped, _ := db.GetMetric("trackers_skipped")

	m.Cycles.Add(cycles)
	m.APIErrors.Add(apiErrors)
	m.TrackersSkipped.Add(skipped)

	// Load labeled metrics
	loadLabeledMetrics(db, "alerts_fired", func(_, kind string, value float64) {
		m.AlertsFired.WithLabelValues(kind).Add(value)
	})

	loadLabeledMetrics(db, "deliveries", func(channel, result string, value float64) {
		m.Deliveries.WithLabelValues(channel, result).Add(value)
	})

	log.Println("Metrics loaded from database.")
}

func loadLabeledMetrics(db *database.DB, metricName string, callback func(labelKey, labelValue string, value float64)) {
	metricsWithLabels, err := db.GetMetricsWithLabels(metricName)
	if err != nil {
		log.Errorf("Failed to load metric %s: %v", metricName, err)
		return
	}
	for labelKey, labelValues := range metricsWithLabels {
		for labelValue, value := range labelValues {
			callback(labelKey, labelValue, value)
		}
	}
}

// SaveToDB snapshots the counters so a restart continues from them
func (m *Metrics) SaveToDB(db *database.DB) {
	m.Mutex.Lock()
	defer m.Mutex.Unlock()

	// Save non-labeled metrics
	saveMetric(db, "cycles_total", GetMetricValue(m.Cycles))
	saveMetric(db, "api_errors", GetMetricValue(m.APIErrors))
	saveMetric(db, "trackers_skipped", GetMetricValue(m.TrackersSkipped))

	// Save labeled metrics
	collectLabeled(m.AlertsFired, func(labels map[string]string, value float64) {
		saveLabeledMetric(db, "alerts_fired", "kind", labels["kind"], value)
	})
	collectLabeled(m.Deliveries, func(labels map[string]string, value float64) {
		saveLabeledMetric(db, "deliveries", labels["channel"], labels["result"], value)
	})

	log.Println("Metrics saved to database.")
}

func saveMetric(db *database.DB, name string, value float64) {
	if err := db.SaveMetric(name, value); err != nil {
		log.Errorf("Failed to save metric %s: %v", name, err)
	}
}

func saveLabeledMetric(db *database.DB, name, labelKey, labelValue string, value float64) {
	if err := db.SaveMetricWithLabels(name, labelKey, labelValue, value); err != nil {
		log.Errorf("Failed to save metric %s: %v", name, err)
	}
}

func collectLabeled(vec *prometheus.CounterVec, callback func(labels map[string]string, value float64)) {
	metricChan := make(chan prometheus.Metric, 1)
	go func() {
		vec.Collect(metricChan)
		close(metricChan)
	}()

	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Printf("Failed to read labelled metric: %v", err)
			continue
		}
		labels := make(map[string]string, len(metricProto.Label))
		for _, label := range metricProto.Label {
			labels[label.GetName()] = label.GetValue()
		}
		callback(labels, metricProto.Counter.GetValue())
	}
}

func GetMetricValue(metric prometheus.Collector) float64 {
	var metricValue float64
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Printf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		metricValue = metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		metricValue = metricProto.Gauge.GetValue()
	}
	return metricValue
}
