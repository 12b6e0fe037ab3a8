package pipeline

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

// WriteSummary renders the end-of-run counters as a table.
func WriteSummary(w io.Writer, stats domain.RunStats) error {
	table := tablewriter.NewWriter(w)
	table.Header("Metric", "Value")

	rows := [][]string{
		{"Wallets processed", strconv.Itoa(stats.WalletsProcessed)},
	}
	for _, p := range domain.AllPlatforms() {
		rows = append(rows,
			[]string{fmt.Sprintf("%s fetched", p), strconv.Itoa(stats.Fetched[p])},
			[]string{fmt.Sprintf("%s inserted", p), strconv.Itoa(stats.Inserted[p])},
		)
	}
	rows = append(rows,
		[]string{"Total inserted", strconv.Itoa(stats.TotalInserted())},
		[]string{"Errors", strconv.Itoa(stats.Errors)},
		[]string{"Elapsed", stats.Elapsed.Round(time.Millisecond).String()},
	)

	for _, row := range rows {
		if err := table.Append(row[0], row[1]); err != nil {
			return fmt.Errorf("pipeline: render summary: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("pipeline: render summary: %w", err)
	}
	return nil
}
