// Package presenter turns a decoded AssessmentResult into a RenderModel: the
// formatted strings, styling tier and attribution rows a page or tool shows.
package presenter

import (
	"fmt"
	"math"

	"github.com/smart-disease-client/internal/domain"
)

// Placeholder is rendered wherever a number is missing or unusable.
const Placeholder = "-"

// Tier is the styling band derived from a risk label.
type Tier string

const (
	TierHigh     Tier = "high"
	TierModerate Tier = "moderate"
	TierLow      Tier = "low"
	TierNeutral  Tier = "neutral"
)

// Direction tells whether a feature pushed the risk up or down.
type Direction string

const (
	Increasing Direction = "increasing"
	Reducing   Direction = "reducing"
)

// Style is a set of CSS utility classes.
type Style struct {
	Background string `json:"background"`
	Text       string `json:"text"`
	Border     string `json:"border"`
}

// AttributionRow is one rendered explanation entry.
type AttributionRow struct {
	Feature     string    `json:"feature"`
	Label       string    `json:"label"`
	Value       string    `json:"value"`
	Impact      string    `json:"impact"`
	BarWidth    float64   `json:"bar_width"`
	Direction   Direction `json:"direction"`
	BarColor    string    `json:"bar_color"`
	ImpactColor string    `json:"impact_color"`
	Background  string    `json:"background"`
}

// RenderModel is everything needed to draw a result.
type RenderModel struct {
	DiseaseName     string           `json:"disease_name"`
	RiskPercent     string           `json:"risk_percent"`
	RiskLabel       string           `json:"risk_label"`
	Tier            Tier             `json:"tier"`
	Style           Style            `json:"style"`
	ShowAdvice      bool             `json:"show_advice"`
	Advice          string           `json:"advice,omitempty"`
	ShowExplanation bool             `json:"show_explanation"`
	Attributions    []AttributionRow `json:"attributions,omitempty"`
}

var tierStyles = map[Tier]Style{
	TierHigh:     {Background: "bg-red-50", Text: "text-red-700", Border: "border-red-200"},
	TierModerate: {Background: "bg-yellow-50", Text: "text-yellow-700", Border: "border-yellow-200"},
	TierLow:      {Background: "bg-green-50", Text: "text-green-700", Border: "border-green-200"},
	TierNeutral:  {Background: "bg-slate-50", Text: "text-slate-700", Border: "border-slate-200"},
}

// TierFor maps a risk label to its styling tier. Unknown labels are neutral.
func TierFor(label domain.RiskLabel) Tier {
	switch label {
	case domain.RiskHigh:
		return TierHigh
	case domain.RiskModerate:
		return TierModerate
	case domain.RiskLow:
		return TierLow
	default:
		return TierNeutral
	}
}

// StyleFor returns the fixed classes of a tier.
func StyleFor(t Tier) Style {
	if s, ok := tierStyles[t]; ok {
		return s
	}
	return tierStyles[TierNeutral]
}

// Present renders a result. A nil result renders as an empty neutral model.
func Present(result *domain.AssessmentResult) RenderModel {
	if result == nil {
		return RenderModel{RiskPercent: Placeholder, Tier: TierNeutral, Style: StyleFor(TierNeutral)}
	}

	tier := TierFor(result.RiskLabel)
	model := RenderModel{
		DiseaseName: result.DiseaseName,
		RiskPercent: FormatPercent(result.RiskScore),
		RiskLabel:   string(result.RiskLabel),
		Tier:        tier,
		Style:       StyleFor(tier),
	}

	if result.Advice != nil && *result.Advice != "" {
		model.ShowAdvice = true
		model.Advice = *result.Advice
	}

	if len(result.Explanation) > 0 {
		model.ShowExplanation = true
		model.Attributions = make([]AttributionRow, 0, len(result.Explanation))
		for _, item := range result.Explanation {
			model.Attributions = append(model.Attributions, attributionRow(item))
		}
	}

	return model
}

func attributionRow(item domain.AttributionItem) AttributionRow {
	row := AttributionRow{
		Feature:  item.Feature,
		Label:    LabelFor(item.Feature),
		Value:    FormatValue(item.Value),
		Impact:   FormatValue(item.ShapValue),
		BarWidth: BarWidth(item.ShapValue),
	}
	if item.ShapValue.Valid && item.ShapValue.Value > 0 {
		row.Direction = Increasing
		row.BarColor = "bg-red-500"
		row.ImpactColor = "text-red-600"
		row.Background = "bg-red-50"
	} else {
		row.Direction = Reducing
		row.BarColor = "bg-green-500"
		row.ImpactColor = "text-green-600"
		row.Background = "bg-green-50"
	}
	return row
}

// FormatPercent renders a 0..1 score as a percentage with one decimal.
func FormatPercent(score domain.OptionalNumber) string {
	if !usable(score) {
		return Placeholder
	}
	// Half-up rounding, matching Math.round.
	pct := math.Floor(score.Value*1000+0.5) / 10
	return fmt.Sprintf("%.1f%%", pct)
}

// FormatValue renders a number with three decimals or the placeholder.
func FormatValue(n domain.OptionalNumber) string {
	if !usable(n) {
		return Placeholder
	}
	return fmt.Sprintf("%.3f", n.Value)
}

// BarWidth is the attribution bar width in percent, clamped to 100.
func BarWidth(shap domain.OptionalNumber) float64 {
	if !usable(shap) {
		return 0
	}
	return math.Min(math.Abs(shap.Value)*100, 100)
}

func usable(n domain.OptionalNumber) bool {
	return n.Valid && !math.IsNaN(n.Value) && !math.IsInf(n.Value, 0)
}
