package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"heartrisk/patient"
)

// RenderText writes the record preview and, when prediction is non-nil, the
// verdict and probability as plain text.
func (p *Presenter) RenderText(w io.Writer, record patient.Record, prediction *Prediction) error {
	fmt.Fprintln(w, "Patient Data")
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, entry := range record.Entries() {
		fmt.Fprintf(tw, "  %s\t%s\n", entry.Name, p.FormatValue(entry.Value))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if prediction == nil {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Prediction")
	fmt.Fprintf(w, "  %s\n", prediction.Verdict.Message)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Prediction Probability")
	_, err := fmt.Fprintf(w, "  %s\n", prediction.ProbabilityText)
	return err
}

// RenderChartText draws a chart with '#' bars scaled to width columns.
func RenderChartText(w io.Writer, chart Chart, width int) error {
	fmt.Fprintln(w, chart.Title)
	labelWidth := 0
	for _, bar := range chart.Bars {
		if len(bar.Label) > labelWidth {
			labelWidth = len(bar.Label)
		}
	}
	for _, bar := range chart.Bars {
		n := int(chart.Width(bar.Value, float64(width)) + 0.5)
		if _, err := fmt.Fprintf(w, "  %-*s %s %.4g\n", labelWidth, bar.Label, strings.Repeat("#", n), bar.Value); err != nil {
			return err
		}
	}
	return nil
}
