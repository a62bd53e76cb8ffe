package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"tp-tracker/internal/database"
)

func TestSaveAndLoadFromDB(t *testing.T) {
	db, err := database.InitDB(":memory:")
	require.NoError(t, err)
	defer db.Close()

	m := New(prometheus.NewRegistry())
	m.Cycles.Add(3)
	m.APIErrors.Inc()
	m.AlertsFired.WithLabelValues("low_price").Add(2)
	m.AlertsFired.WithLabelValues("new_price").Inc()
	m.Delivered("webhook", true)
	m.Delivered("webhook", false)
	m.Delivered("webhook", false)
	m.SaveToDB(db)

	restored := New(prometheus.NewRegistry())
	restored.LoadFromDB(db)

	require.Equal(t, 3.0, GetMetricValue(restored.Cycles))
	require.Equal(t, 1.0, GetMetricValue(restored.APIErrors))
	require.Zero(t, GetMetricValue(restored.TrackersSkipped))
	require.Equal(t, 2.0, GetMetricValue(restored.AlertsFired.WithLabelValues("low_price")))
	require.Equal(t, 1.0, GetMetricValue(restored.AlertsFired.WithLabelValues("new_price")))
	require.Equal(t, 1.0, GetMetricValue(restored.Deliveries.WithLabelValues("webhook", "success")))
	require.Equal(t, 2.0, GetMetricValue(restored.Deliveries.WithLabelValues("webhook", "failure")))
}

func TestGetMetricValue_Gauge(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.HistoryEntries.Set(7)
	require.Equal(t, 7.0, GetMetricValue(m.HistoryEntries))
}
