package present

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

// Render writes view as plain text: the metric line, the table, the chart
// hint and the summary statistics.
func Render(w io.Writer, view View) error {
	if view.Metric != nil {
		if _, err := fmt.Fprintf(w, "%s: %s\n\n", view.Metric.Label, view.Metric.Formatted); err != nil {
			return err
		}
	}
	if view.Kind == KindEmpty {
		_, err := fmt.Fprintln(w, "(no rows)")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(view.Columns, "\t")); err != nil {
		return err
	}
	for _, row := range view.Rows {
		cells := make([]string, len(row))
		for i, value := range row {
			column := ""
			if i < len(view.Columns) {
				column = view.Columns[i]
			}
			cells[i] = FormatValue(column, value)
		}
		if _, err := fmt.Fprintln(tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if view.Chart != nil {
		if _, err := fmt.Fprintf(w, "\nchart: %s %s by %s\n", view.Chart.Type, view.Chart.Y, view.Chart.X); err != nil {
			return err
		}
	}
	if len(view.Summary) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "column\tcount\tmean\tstd\tmin\t25%\t50%\t75%\tmax"); err != nil {
		return err
	}
	for _, s := range view.Summary {
		if _, err := fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\n",
			s.Column, s.Count, s.Mean, s.Std, s.Min, s.P25, s.P50, s.P75, s.Max); err != nil {
			return err
		}
	}
	return tw.Flush()
}
