package feature

import (
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

type ChangepointComp string

const ChangepointCompSlope ChangepointComp = "slope"

// Changepoint is a trend rate change starting at a point in time. The regressor is a ramp that
// is zero before the changepoint and grows linearly after it.
type Changepoint struct {
	Name            string          `json:"name"`
	ChangepointComp ChangepointComp `json:"changepoint_component"`
}

func NewChangepoint(name string, comp ChangepointComp) *Changepoint {
	return &Changepoint{name, comp}
}

func (c Changepoint) String() string {
	return fmt.Sprintf("chpnt_%s_%s", c.Name, c.ChangepointComp)
}

func (c Changepoint) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return c.Name, true
	case "changepoint_component":
		return string(c.ChangepointComp), true
	}
	return "", false
}

func (c Changepoint) Type() FeatureType {
	return FeatureTypeChangepoint
}

func (c Changepoint) Decode() map[string]string {
	res := make(map[string]string)
	res["name"] = c.Name
	res["changepoint_component"] = string(c.ChangepointComp)
	return res
}

func (c *Changepoint) UnmarshalJSON(data []byte) error {
	var labelStr struct {
		Name            string          `json:"name"`
		ChangepointComp ChangepointComp `json:"changepoint_component"`
	}
	if err := json.Unmarshal(data, &labelStr); err != nil {
		return err
	}
	c.Name = labelStr.Name
	c.ChangepointComp = labelStr.ChangepointComp
	return nil
}

// Generate computes max(0, t - chpt) in the same scaled time units as the linear growth
// feature so the coefficient is a change in slope per training window.
func (c Changepoint) Generate(epoch []float64, chpt, trainStart, trainEnd time.Time) []float64 {
	res := make([]float64, len(epoch))
	span := trainEnd.Sub(trainStart).Seconds()
	if span <= 0 {
		return res
	}
	chptEpoch := float64(chpt.UnixNano()) / 1e9
	for i, e := range epoch {
		if e < chptEpoch {
			continue
		}
		res[i] = (e - chptEpoch) / span
	}
	return res
}
