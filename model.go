package forecaster

import (
	"fmt"
	"io"

	"github.com/aouyang1/go-demandcast/forecast"
)

// Model is the serializeable form of a fit Forecaster
type Model struct {
	Options  *Options       `json:"options"`
	Series   forecast.Model `json:"series_model"`
	Residual forecast.Model `json:"residual_model"`
}

// TablePrint writes the series and uncertainty models as human readable tables
func (m Model) TablePrint(w io.Writer) error {
	if m.Options != nil {
		if _, err := fmt.Fprintf(w, "Mode: %s    Smoothness: %.4f    Interval Width: %.2f\n",
			m.Options.Mode, m.Options.Smoothness, m.Options.IntervalWidth); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w, "Series Model:"); err != nil {
		return err
	}
	if err := m.Series.TablePrint(w, "  ", "  "); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "Uncertainty Model:"); err != nil {
		return err
	}
	return m.Residual.TablePrint(w, "  ", "  ")
}
