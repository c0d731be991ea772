// Package schema holds the closed table of disease variants: each variant's
// ordered input fields, its defaults and the builder that turns a form into
// the typed request the prediction service expects.
package schema

import (
	"math"
	"strconv"
	"strings"

	"github.com/smart-disease-client/internal/domain"
)

type arm struct {
	title       string
	description string
	fields      func() []domain.FieldSpec
	build       func(form domain.FormState) domain.AssessmentRequest
}

var order = []domain.DiseaseVariant{domain.Diabetes, domain.Hypertension, domain.Stroke}

var arms = map[domain.DiseaseVariant]arm{
	domain.Diabetes: {
		title:       "Type 2 Diabetes",
		description: "Assess your risk for Type 2 Diabetes based on health metrics",
		fields:      diabetesFields,
		build: func(f domain.FormState) domain.AssessmentRequest {
			return domain.DiabetesRequest{
				DiseaseName: domain.Diabetes,
				Age:         Coerce(f["age"]),
				BMI:         Coerce(f["bmi"]),
				HighBP:      Coerce(f["highbp"]),
				HighChol:    Coerce(f["highchol"]),
				GenHlth:     Coerce(f["genhlth"]),
				DiffWalk:    Coerce(f["diffwalk"]),
			}
		},
	},
	domain.Hypertension: {
		title:       "Hypertension",
		description: "Check your blood pressure and cardiovascular health risk",
		fields:      hypertensionFields,
		build: func(f domain.FormState) domain.AssessmentRequest {
			return domain.HypertensionRequest{
				DiseaseName: domain.Hypertension,
				Age:         Coerce(f["age"]),
				Sex:         Coerce(f["sex"]),
				TrestBPS:    Coerce(f["trestbps"]),
				Chol:        Coerce(f["chol"]),
				FBS:         Coerce(f["fbs"]),
				RestECG:     Coerce(f["restecg"]),
				Exang:       Coerce(f["exang"]),
				Slope:       Coerce(f["slope"]),
			}
		},
	},
	domain.Stroke: {
		title:       "Stroke Risk",
		description: "Evaluate your stroke risk using advanced ML models",
		fields:      strokeFields,
		build: func(f domain.FormState) domain.AssessmentRequest {
			return domain.StrokeRequest{
				DiseaseName:     domain.Stroke,
				Age:             Coerce(f["age"]),
				Hypertension:    Coerce(f["hypertension"]),
				HeartDisease:    Coerce(f["heart_disease"]),
				AvgGlucoseLevel: Coerce(f["avg_glucose_level"]),
				BMI:             Coerce(f["bmi"]),
				SmokingStatus:   Coerce(f["smoking_status"]),
				EverMarried:     Coerce(f["ever_married"]),
			}
		},
	},
}

func yesNo() []domain.Option {
	return []domain.Option{{Value: "0", Label: "No"}, {Value: "1", Label: "Yes"}}
}

func numeric(name, label, unit, step string) domain.FieldSpec {
	return domain.FieldSpec{Name: name, Label: label, Kind: domain.FieldNumeric, Unit: unit, Step: step}
}

func categorical(name, label, def string, options []domain.Option) domain.FieldSpec {
	return domain.FieldSpec{Name: name, Label: label, Kind: domain.FieldCategorical, Options: options, Default: def}
}

func diabetesFields() []domain.FieldSpec {
	return []domain.FieldSpec{
		numeric("age", "Age (years)", "years", "1"),
		numeric("bmi", "BMI", "kg/m²", "0.1"),
		categorical("highbp", "High Blood Pressure", "0", yesNo()),
		categorical("highchol", "High Cholesterol", "0", yesNo()),
		categorical("genhlth", "General Health", "1", []domain.Option{
			{Value: "1", Label: "Excellent"},
			{Value: "2", Label: "Very Good"},
			{Value: "3", Label: "Good"},
			{Value: "4", Label: "Fair"},
			{Value: "5", Label: "Poor"},
		}),
		categorical("diffwalk", "Difficulty Walking/Stairs", "0", yesNo()),
	}
}

func hypertensionFields() []domain.FieldSpec {
	return []domain.FieldSpec{
		numeric("age", "Age (years)", "years", "1"),
		categorical("sex", "Sex", "1", []domain.Option{
			{Value: "0", Label: "Female"},
			{Value: "1", Label: "Male"},
		}),
		numeric("trestbps", "Resting BP (mm Hg)", "mm Hg", "any"),
		numeric("chol", "Cholesterol (mg/dL)", "mg/dL", "any"),
		categorical("fbs", "Fasting Blood Sugar > 120 mg/dL", "0", yesNo()),
		categorical("restecg", "Resting ECG", "0", []domain.Option{
			{Value: "0", Label: "Normal"},
			{Value: "1", Label: "ST-T Abnormality"},
			{Value: "2", Label: "LV Hypertrophy"},
		}),
		categorical("exang", "Exercise-Induced Angina", "0", yesNo()),
		categorical("slope", "Slope of ST Segment", "1", []domain.Option{
			{Value: "0", Label: "Upsloping"},
			{Value: "1", Label: "Flat"},
			{Value: "2", Label: "Downsloping"},
		}),
	}
}

func strokeFields() []domain.FieldSpec {
	return []domain.FieldSpec{
		numeric("age", "Age (years)", "years", "1"),
		categorical("hypertension", "Hypertension", "0", yesNo()),
		categorical("heart_disease", "Heart Disease", "0", yesNo()),
		numeric("avg_glucose_level", "Average Glucose Level (mg/dL)", "mg/dL", "any"),
		numeric("bmi", "BMI", "kg/m²", "0.1"),
		categorical("smoking_status", "Smoking Status", "0", []domain.Option{
			{Value: "0", Label: "Never Smoked"},
			{Value: "1", Label: "Formerly Smoked"},
			{Value: "2", Label: "Smokes"},
		}),
		categorical("ever_married", "Ever Married", "0", yesNo()),
	}
}

func lookup(v domain.DiseaseVariant) arm {
	a, ok := arms[v]
	if !ok {
		// Variants are parsed at the boundary; reaching here is a programming error.
		panic("schema: no arm for variant " + string(v))
	}
	return a
}

// Variants returns the supported variants in display order.
func Variants() []domain.DiseaseVariant {
	out := make([]domain.DiseaseVariant, len(order))
	copy(out, order)
	return out
}

// SchemaFor returns a fresh copy of the variant's ordered field list.
func SchemaFor(v domain.DiseaseVariant) []domain.FieldSpec {
	return lookup(v).fields()
}

// DefaultsFor returns a fresh form whose keys are exactly the variant's field names.
func DefaultsFor(v domain.DiseaseVariant) domain.FormState {
	fields := SchemaFor(v)
	form := make(domain.FormState, len(fields))
	for _, f := range fields {
		form[f.Name] = f.Default
	}
	return form
}

// HasField reports whether name belongs to the variant's schema.
func HasField(v domain.DiseaseVariant, name string) bool {
	for _, f := range SchemaFor(v) {
		if f.Name == name {
			return true
		}
	}
	return false
}

// BuildRequest coerces every field of form into the variant's typed request.
func BuildRequest(v domain.DiseaseVariant, form domain.FormState) domain.AssessmentRequest {
	return lookup(v).build(form)
}

// Title is the human-readable name of the variant.
func Title(v domain.DiseaseVariant) string {
	return lookup(v).title
}

// Description is the one-line summary shown on the landing page.
func Description(v domain.DiseaseVariant) string {
	return lookup(v).description
}

// Coerce converts a raw form string to a number. Empty or non-numeric input
// yields NaN, which reaches the service as null.
func Coerce(raw string) domain.Number {
	s := strings.TrimSpace(raw)
	if s == "" {
		return domain.Number(math.NaN())
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return domain.Number(math.NaN())
	}
	return domain.Number(f)
}
