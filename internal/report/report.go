// Package report renders the end-of-run summary, both for humans on
// stdout and as a structured log line.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/edirooss/lfg-sim/internal/dungeon"
)

// Render writes the final summary table to w. It is called for
// interrupted runs too, in which case the books show the run so far.
func Render(w io.Writer, sum *dungeon.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "=== QUEUE FINISHED: FINAL SUMMARY ===")
	fmt.Fprintf(w, "run %s, elapsed %s\n", sum.RunID, sum.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "parties formed: %d, leftover players: %d tanks / %d healers / %d dps\n\n",
		sum.Composed, sum.LeftTanks, sum.LeftHealers, sum.LeftDPS)

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Instance", "Status", "Parties Served", "Time Served"})
	for _, s := range sum.Slots {
		table.Append([]string{
			strconv.Itoa(s.ID),
			s.Status.String(),
			strconv.Itoa(s.PartiesServed),
			s.TimeServed.Round(time.Millisecond).String(),
		})
	}
	table.Append([]string{
		"TOTAL",
		"",
		strconv.Itoa(sum.TotalServed),
		sum.TotalTime.Round(time.Millisecond).String(),
	})
	table.Render()
}

// Recap logs the headline numbers so the summary also lands in the
// structured log stream.
func Recap(log *zap.Logger, sum *dungeon.Summary) {
	log.Info("run summary",
		zap.String("run_id", sum.RunID),
		zap.Duration("elapsed", sum.Elapsed),
		zap.Int64("parties_formed", sum.Composed),
		zap.Int("parties_served", sum.TotalServed),
		zap.Duration("dungeon_time", sum.TotalTime),
		zap.Int("leftover_tanks", sum.LeftTanks),
		zap.Int("leftover_healers", sum.LeftHealers),
		zap.Int("leftover_dps", sum.LeftDPS))
}
