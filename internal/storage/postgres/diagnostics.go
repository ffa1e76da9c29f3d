package postgres

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"

	"github.com/gravadigital/eventsoft-api/internal/logger"
)

// Diagnostics reads PostgreSQL statistics for the eventsoft tables
type Diagnostics struct {
	db  *gorm.DB
	log *log.Logger
}

func NewDiagnostics(db *gorm.DB) *Diagnostics {
	return &Diagnostics{
		db:  db,
		log: logger.Repository("diagnostics"),
	}
}

// Hint is one maintenance suggestion
type Hint struct {
	Table      string `json:"table"`
	Operation  string `json:"operation"`
	Suggestion string `json:"suggestion"`
	Priority   string `json:"priority"`
}

// IndexUsage counts index and sequential scans of one index's table
type IndexUsage struct {
	TableName  string  `json:"table_name"`
	IndexName  string  `json:"index_name"`
	IndexUsed  int64   `json:"index_used"`
	TableScans int64   `json:"table_scans"`
	Efficiency float64 `json:"efficiency"`
}

// TableStats describes the size and upkeep of one table
type TableStats struct {
	TableName    string     `json:"table_name"`
	LiveRows     int64      `json:"live_rows"`
	DeadRows     int64      `json:"dead_rows"`
	TableSize    string     `json:"table_size"`
	LastAnalyzed *time.Time `json:"last_analyzed"`
}

// Report is the result of one diagnostics run
type Report struct {
	Indexes []IndexUsage `json:"indexes"`
	Tables  []TableStats `json:"tables"`
	Hints   []Hint       `json:"hints"`
}

// Run collects index and table statistics. A failing query is logged and its section left empty.
func (d *Diagnostics) Run(ctx context.Context) *Report {
	r := &Report{}

	indexes, err := d.indexUsage(ctx)
	if err != nil {
		d.log.Warn("Failed to read index usage", "error", err)
	}
	r.Indexes = indexes

	tables, err := d.tableStats(ctx)
	if err != nil {
		d.log.Warn("Failed to read table statistics", "error", err)
	}
	r.Tables = tables

	r.Hints = hintsFor(r.Indexes, r.Tables, time.Now())
	d.log.Info("Database diagnostics completed",
		"indexes", len(r.Indexes),
		"tables", len(r.Tables),
		"hints", len(r.Hints))
	return r
}

func (d *Diagnostics) indexUsage(ctx context.Context) ([]IndexUsage, error) {
	var usage []IndexUsage
	err := d.db.WithContext(ctx).Raw(`
		SELECT
			put.relname AS table_name,
			pui.indexrelname AS index_name,
			pui.idx_scan AS index_used,
			put.seq_scan AS table_scans,
			CASE
				WHEN pui.idx_scan + put.seq_scan = 0 THEN 0
				ELSE ROUND((pui.idx_scan::numeric / (pui.idx_scan + put.seq_scan)) * 100, 2)
			END AS efficiency
		FROM pg_stat_user_indexes pui
		JOIN pg_stat_user_tables put ON pui.relid = put.relid
		WHERE put.relname IN ?
		ORDER BY efficiency ASC, index_used DESC
	`, tableNames).Scan(&usage).Error
	return usage, err
}

func (d *Diagnostics) tableStats(ctx context.Context) ([]TableStats, error) {
	var stats []TableStats
	err := d.db.WithContext(ctx).Raw(`
		SELECT
			relname AS table_name,
			n_live_tup AS live_rows,
			n_dead_tup AS dead_rows,
			pg_size_pretty(pg_total_relation_size(relid)) AS table_size,
			GREATEST(last_analyze, last_autoanalyze) AS last_analyzed
		FROM pg_stat_user_tables
		WHERE relname IN ?
		ORDER BY pg_total_relation_size(relid) DESC
	`, tableNames).Scan(&stats).Error
	return stats, err
}

// busyTables are read on every registration, transition and score submission
var busyTables = []string{"enrollments", "scores", "events"}

func hintsFor(indexes []IndexUsage, tables []TableStats, now time.Time) []Hint {
	var hints []Hint

	for _, ix := range indexes {
		if ix.IndexUsed == 0 && ix.TableScans > 1000 {
			hints = append(hints, Hint{
				Table:      ix.TableName,
				Operation:  "DROP_INDEX",
				Suggestion: fmt.Sprintf("index %s on %s is never used", ix.IndexName, ix.TableName),
				Priority:   "low",
			})
		}
	}

	for _, t := range tables {
		if t.LastAnalyzed == nil || now.Sub(*t.LastAnalyzed) > 7*24*time.Hour {
			priority := "medium"
			if slices.Contains(busyTables, t.TableName) {
				priority = "high"
			}
			hints = append(hints, Hint{
				Table:      t.TableName,
				Operation:  "ANALYZE",
				Suggestion: fmt.Sprintf("%s has not been analyzed in the last week", t.TableName),
				Priority:   priority,
			})
		}
		// the sweeper deletes unconfirmed enrollments in bulk
		if t.LiveRows > 0 && t.DeadRows > t.LiveRows/5 {
			hints = append(hints, Hint{
				Table:      t.TableName,
				Operation:  "VACUUM",
				Suggestion: fmt.Sprintf("%s holds %d dead rows for %d live ones", t.TableName, t.DeadRows, t.LiveRows),
				Priority:   "medium",
			})
		}
	}

	return hints
}
