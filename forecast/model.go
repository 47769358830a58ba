package forecast

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aouyang1/go-demandcast/feature"
	"github.com/aouyang1/go-demandcast/forecast/options"
	"github.com/goccy/go-json"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

var ErrUnknownFeatureType = errors.New("unknown feature type")

// Model represents a serializeable format of a forecast storing the forecast options, fit scores,
// and coefficients. Coefficients are stored in the scaled units of the fit and YScale converts
// them back to the original units.
type Model struct {
	TrainStartTime time.Time        `json:"train_start_time"`
	TrainEndTime   time.Time        `json:"train_end_time"`
	TrainFrequency time.Duration    `json:"train_frequency"`
	YScale         float64          `json:"y_scale"`
	Lambda         float64          `json:"lambda"`
	Options        *options.Options `json:"options"`
	Scores         *Scores          `json:"scores"`
	Weights        Weights          `json:"weights"`
}

func indentExpand(indent string, growth int) string {
	return strings.Repeat(indent, growth)
}

func newTable(w io.Writer) *tablewriter.Table {
	tbl := tablewriter.NewWriter(w)
	tbl.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	return tbl
}

// TablePrint writes a human readable summary of the model
func (m Model) TablePrint(w io.Writer, prefix, indent string) error {
	if _, err := fmt.Fprintf(w, "%s%sForecast:\n", prefix, indentExpand(indent, 0)); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%s%sTraining Window: %s - %s\n", prefix, indentExpand(indent, 1), m.TrainStartTime, m.TrainEndTime); err != nil {
		return err
	}

	if m.Options != nil {
		if _, err := fmt.Fprintf(w, "%s%sLog Fit: %t    Changepoint Prior Scale: %.3f    Lambda: %.5f\n",
			prefix, indentExpand(indent, 1),
			m.Options.UseLog, m.Options.ChangepointOptions.PriorScale, m.Lambda); err != nil {
			return err
		}

		if err := m.tablePrintSeasonality(w, prefix, indent); err != nil {
			return err
		}
		if err := m.tablePrintChangepoints(w, prefix, indent); err != nil {
			return err
		}
		holidays := m.Options.EventOptions.Holidays
		if holidays == "" {
			holidays = "None"
		}
		if _, err := fmt.Fprintf(w, "%s%sHolidays: %s\n", prefix, indentExpand(indent, 1), holidays); err != nil {
			return err
		}
	}

	if m.Scores != nil {
		if _, err := fmt.Fprintf(w, "%s%sScores:\n", prefix, indentExpand(indent, 0)); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s%sMAPE: %.3f    MSE: %.3f    R2: %.3f\n",
			prefix, indentExpand(indent, 1),
			m.Scores.MAPE,
			m.Scores.MSE,
			m.Scores.R2,
		); err != nil {
			return err
		}
	}

	return m.Weights.tablePrint(w, prefix, indent, 0, m.yScale())
}

func (m Model) yScale() float64 {
	if m.YScale == 0 {
		return 1.0
	}
	return m.YScale
}

func (m Model) tablePrintSeasonality(w io.Writer, prefix, indent string) error {
	cfgs := m.Options.SeasonalityOptions.SeasonalityConfigs
	if len(cfgs) == 0 {
		_, err := fmt.Fprintf(w, "%s%sSeasonality: None\n", prefix, indentExpand(indent, 1))
		return err
	}
	if _, err := fmt.Fprintf(w, "%s%sSeasonality:\n", prefix, indentExpand(indent, 1)); err != nil {
		return err
	}
	rows := make([][]string, 0, len(cfgs))
	for _, cfg := range cfgs {
		rows = append(rows, []string{cfg.Name, cfg.Period.String(), strconv.Itoa(cfg.Orders)})
	}
	tbl := newTable(w)
	tbl.Header("Name", "Period", "Orders")
	if err := tbl.Bulk(rows); err != nil {
		return err
	}
	return tbl.Render()
}

func (m Model) tablePrintChangepoints(w io.Writer, prefix, indent string) error {
	chpts := m.Options.ChangepointOptions.Changepoints
	if _, err := fmt.Fprintf(w, "%s%sChangepoints: %d\n", prefix, indentExpand(indent, 1), len(chpts)); err != nil {
		return err
	}
	return nil
}

// Weights stores the coefficients for the forecast model
type Weights struct {
	Coef []FeatureWeight `json:"coefficients"`
}

// FeatureLabels returns all of the feature labels in the same order as the coefficients
func (w *Weights) FeatureLabels() ([]feature.Feature, error) {
	labels := make([]feature.Feature, 0, len(w.Coef))
	for _, fw := range w.Coef {
		feat, err := fw.ToFeature()
		if err != nil {
			return nil, err
		}
		labels = append(labels, feat)
	}
	return labels, nil
}

// Coefficients returns a slice copy of the coefficients
func (w *Weights) Coefficients() []float64 {
	coef := make([]float64, 0, len(w.Coef))
	for _, fw := range w.Coef {
		coef = append(coef, fw.Value)
	}
	return coef
}

func (w Weights) tablePrint(wr io.Writer, prefix, indent string, indentGrowth int, scale float64) error {
	if _, err := fmt.Fprintf(wr, "%s%sWeights:\n", prefix, indentExpand(indent, indentGrowth)); err != nil {
		return err
	}
	rows := make([][]string, 0, len(w.Coef))
	for _, fw := range w.Coef {
		labelOut, err := json.Marshal(fw.Labels)
		if err != nil {
			return err
		}
		val := fmt.Sprintf("%.3f", fw.Value*scale)
		if fw.Value == 0 {
			val = "..."
		}
		rows = append(rows, []string{fw.Type.String(), string(labelOut), val})
	}
	tbl := newTable(wr)
	tbl.Header("Type", "Labels", "Value")
	if err := tbl.Bulk(rows); err != nil {
		return err
	}
	return tbl.Render()
}

// FeatureWeight represents a feature described with a type e.g. changepoint, labels and the value
type FeatureWeight struct {
	Labels map[string]string   `json:"labels"`
	Type   feature.FeatureType `json:"type"`
	Value  float64             `json:"value"`
}

func NewFeatureWeight(f feature.Feature, val float64) FeatureWeight {
	return FeatureWeight{
		Labels: f.Decode(),
		Type:   f.Type(),
		Value:  val,
	}
}

// ToFeature transforms the Type and Labels into a feature type
func (fw *FeatureWeight) ToFeature() (feature.Feature, error) {
	if fw == nil {
		return nil, ErrUnknownFeatureType
	}

	bytes, err := json.Marshal(fw.Labels)
	if err != nil {
		return nil, err
	}

	var feat feature.Feature
	switch fw.Type {
	case feature.FeatureTypeChangepoint:
		feat = new(feature.Changepoint)
	case feature.FeatureTypeSeasonality:
		feat = new(feature.Seasonality)
	case feature.FeatureTypeEvent:
		feat = new(feature.Event)
	case feature.FeatureTypeGrowth:
		feat = new(feature.Growth)
	default:
		return nil, fmt.Errorf("type %d, %w", fw.Type, ErrUnknownFeatureType)
	}
	if err := json.Unmarshal(bytes, feat); err != nil {
		return nil, err
	}
	return feat, nil
}
