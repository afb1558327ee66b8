package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Drop reasons for RowsDropped.
	ReasonBadDate         = "bad_date"
	ReasonUnresolvedState = "unresolved_state"
)

var (
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "uidai_lake_build_info",
		Help: "Build information of the uidai-lake pipeline",
	}, []string{"version", "commit", "date"})

	ShardsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uidai_lake_shards_processed_total", Help: "Total CSV shard files processed.",
	}, []string{"dataset"})
	ChunksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uidai_lake_chunks_processed_total", Help: "Total bounded chunks processed.",
	}, []string{"dataset"})

	RowsRead = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uidai_lake_rows_read_total", Help: "Total raw rows read from shard files.",
	}, []string{"dataset"})
	RowsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uidai_lake_rows_dropped_total", Help: "Rows excluded by data-quality policy.",
	}, []string{"dataset", "reason"})
	ValuesCoerced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uidai_lake_values_coerced_total", Help: "Corrupt numeric cells coerced to zero.",
	}, []string{"dataset"})

	GroupKeys = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "uidai_lake_group_keys", Help: "Distinct group keys in the combined aggregate.",
	}, []string{"dataset"})

	OrphanUpdateKeys = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "uidai_lake_orphan_update_keys_total", Help: "Update keys with no matching enrolment key, dropped by the merge.",
	}, []string{"dataset"})
)
