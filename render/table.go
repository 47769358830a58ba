package render

import (
	"fmt"
	"io"
	"strconv"

	forecaster "github.com/aouyang1/go-demandcast"
	"github.com/aouyang1/go-demandcast/production"
	"github.com/aouyang1/go-demandcast/stats"
	"github.com/aouyang1/go-demandcast/timedataset"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

func newTable(w io.Writer, headers ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	return table
}

func render(table *tablewriter.Table, rows [][]string) error {
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("unable to fill table, %w", err)
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("unable to render table, %w", err)
	}
	return nil
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// tail returns the start index of the last n of total rows. Non positive n keeps every row.
func tail(total, n int) int {
	if n <= 0 || n >= total {
		return 0
	}
	return total - n
}

// SummaryTable writes the last n rows of the forecast as ds, yhat, yhat_lower and yhat_upper
func SummaryTable(w io.Writer, res *forecaster.Results, n int) error {
	if err := validResults(res); err != nil {
		return err
	}
	format := timeFormat(res.T)
	if format == DateTimeFormat {
		format = "2006-01-02 15:04:05"
	}

	start := tail(res.Len(), n)
	rows := make([][]string, 0, res.Len()-start)
	for i := start; i < res.Len(); i++ {
		rows = append(rows, []string{
			res.T[i].Format(format),
			fmtFloat(res.Forecast[i]),
			fmtFloat(res.Lower[i]),
			fmtFloat(res.Upper[i]),
		})
	}
	return render(newTable(w, "ds", "yhat", "yhat_lower", "yhat_upper"), rows)
}

// DescribeTable writes one row per summary statistic
func DescribeTable(w io.Writer, name string, s stats.Summary) error {
	labels, values := s.Rows()
	rows := make([][]string, len(labels))
	for i, label := range labels {
		rows[i] = []string{label, fmtFloat(values[i])}
	}
	return render(newTable(w, "", name), rows)
}

// SeriesTable writes the first n points of the dataset. NaN values are written as NaN.
func SeriesTable(w io.Writer, name string, td *timedataset.TimeDataset, n int) error {
	if td.Len() == 0 {
		return ErrNoData
	}
	end := td.Len()
	if n > 0 && n < end {
		end = n
	}
	format := timeFormat(td.T)
	rows := make([][]string, 0, end)
	for i := 0; i < end; i++ {
		rows = append(rows, []string{td.T[i].Format(format), fmtFloat(td.Y[i])})
	}
	return render(newTable(w, "date", name), rows)
}

// GroupTable writes the per product totals
func GroupTable(w io.Writer, groups []production.Group) error {
	rows := make([][]string, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, []string{
			g.Product,
			strconv.FormatFloat(g.TotalProduced, 'f', -1, 64),
			fmtFloat(g.MeanDefects),
		})
	}
	return render(newTable(w, production.ColProduct, production.ColTotalProduced, production.ColMeanDefects), rows)
}
