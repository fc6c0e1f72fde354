// Package report renders a run's Statistics, plus per-core cache and
// cycle figures, as CSV or as an aligned human-readable table.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/smpsim/coresim/internal/core"
	"github.com/smpsim/coresim/internal/scheduler"
	"github.com/smpsim/coresim/internal/stats"
)

// CoreRow is one core's contribution to the report: cache behavior plus
// busy/idle cycles.
type CoreRow struct {
	CoreID      int
	BusyCycles  uint64
	IdleCycles  uint64
	CacheHits   uint64
	CacheMisses uint64
}

// HitRate returns hits / (hits+misses), or 0 if there were no accesses.
func (r CoreRow) HitRate() float64 {
	total := r.CacheHits + r.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(r.CacheHits) / float64(total)
}

// Run bundles a single run's Statistics with its per-core rows and the
// policy/core-count that produced them, the shape DESIGN.md requires
// from the report sink.
type Run struct {
	Policy scheduler.PolicyKind
	Cores  int
	Stats  stats.Statistics
	Rows   []CoreRow
}

// CollectRows builds per-core rows from the cores that ran a Scheduler.
// Per-core cache_hits/cache_misses come from each core's own private L1,
// which only observes that core's own traffic — by design the shared
// hierarchy keeps no per-core breakdown of its own global counters.
func CollectRows(cores []*core.Core) []CoreRow {
	rows := make([]CoreRow, len(cores))
	for i, c := range cores {
		rows[i] = CoreRow{
			CoreID:      c.ID,
			BusyCycles:  c.BusyCycles(),
			IdleCycles:  c.IdleCycles(),
			CacheHits:   c.L1().Hits(),
			CacheMisses: c.L1().Misses(),
		}
	}
	return rows
}

// WriteText renders run as an aligned, human-readable table.
func WriteText(w io.Writer, run Run) error {
	fmt.Fprintf(w, "policy=%s cores=%d\n", run.Policy, run.Cores)
	fmt.Fprintf(w, "  total=%d finished=%d failed=%d context_switches=%d\n",
		run.Stats.TotalCount, run.Stats.FinishedCount, run.Stats.FailedCount, run.Stats.ContextSwitches)
	fmt.Fprintf(w, "  avg_wait=%s avg_turnaround=%s avg_response=%s\n",
		run.Stats.AvgWait, run.Stats.AvgTurnaround, run.Stats.AvgResponse)
	fmt.Fprintf(w, "  cpu_utilization=%.4f throughput=%.4f/s\n",
		run.Stats.CPUUtilization, run.Stats.Throughput)
	fmt.Fprintln(w, "  core  busy  idle  cache_hits  cache_misses  hit_rate")
	for _, r := range run.Rows {
		fmt.Fprintf(w, "  %4d  %4d  %4d  %10d  %12d  %.4f\n",
			r.CoreID, r.BusyCycles, r.IdleCycles, r.CacheHits, r.CacheMisses, r.HitRate())
	}
	return nil
}

// WriteCSV renders one row per core, repeating the scheduler-wide
// statistics on every row, matching the flat shape DESIGN.md specifies:
// {policy, cores, cache_hits, cache_misses, hit_rate} alongside the
// statistics fields.
func WriteCSV(w io.Writer, run Run) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{
		"policy", "cores", "core_id", "busy_cycles", "idle_cycles",
		"cache_hits", "cache_misses", "hit_rate",
		"avg_wait_ns", "avg_turnaround_ns", "avg_response_ns",
		"cpu_utilization", "throughput_per_sec", "context_switches",
		"total_count", "finished_count", "failed_count",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range run.Rows {
		row := []string{
			string(run.Policy),
			strconv.Itoa(run.Cores),
			strconv.Itoa(r.CoreID),
			strconv.FormatUint(r.BusyCycles, 10),
			strconv.FormatUint(r.IdleCycles, 10),
			strconv.FormatUint(r.CacheHits, 10),
			strconv.FormatUint(r.CacheMisses, 10),
			strconv.FormatFloat(r.HitRate(), 'f', 4, 64),
			strconv.FormatInt(int64(run.Stats.AvgWait), 10),
			strconv.FormatInt(int64(run.Stats.AvgTurnaround), 10),
			strconv.FormatInt(int64(run.Stats.AvgResponse), 10),
			strconv.FormatFloat(run.Stats.CPUUtilization, 'f', 4, 64),
			strconv.FormatFloat(run.Stats.Throughput, 'f', 4, 64),
			strconv.FormatUint(run.Stats.ContextSwitches, 10),
			strconv.Itoa(run.Stats.TotalCount),
			strconv.Itoa(run.Stats.FinishedCount),
			strconv.Itoa(run.Stats.FailedCount),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}
