package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/fulldump/pivotdb/pivot"
)

var (
	keysScanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pivotdb_scan_keys_scanned_total",
			Help: "Keys read by table scans",
		},
		[]string{"table"},
	)
	keysSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pivotdb_scan_keys_skipped_total",
			Help: "Keys read by table scans that did not match the table pattern",
		},
		[]string{"table"},
	)
	rowsReturned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pivotdb_scan_rows_returned_total",
			Help: "Rows produced by table scans",
		},
		[]string{"table"},
	)
	keyOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pivotdb_key_operations_total",
			Help: "Key operations committed by table mutations",
		},
		[]string{"table", "op"},
	)
	mutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pivotdb_mutations_total",
			Help: "Row mutations by operation",
		},
		[]string{"table", "operation"},
	)
	rawKeyOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pivotdb_raw_key_operations_total",
			Help: "Direct key operations",
		},
		[]string{"op"},
	)
)

func observeScan(table string, stats pivot.ScanStats) {
	keysScanned.WithLabelValues(table).Add(float64(stats.KeysScanned))
	keysSkipped.WithLabelValues(table).Add(float64(stats.KeysSkipped))
	rowsReturned.WithLabelValues(table).Add(float64(stats.RowsReturned))
}

func observeMutation(table, operation string, batch pivot.WriteBatch) {
	mutations.WithLabelValues(table, operation).Inc()
	for _, kind := range []pivot.OpKind{pivot.OpPut, pivot.OpDelete} {
		if n := batch.Count(kind); n > 0 {
			keyOperations.WithLabelValues(table, kind.String()).Add(float64(n))
		}
	}
}
