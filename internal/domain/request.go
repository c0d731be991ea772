package domain

import (
	"encoding/json"
	"math"
)

// Number is a coerced form value. Non-finite values encode as JSON null so the
// prediction service sees the same payload a browser would have sent.
type Number float64

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(f)
}

// AssessmentRequest is the typed payload for one variant. The set of
// implementations is closed to this package.
type AssessmentRequest interface {
	Disease() DiseaseVariant
	assessmentRequest()
}

// DiabetesRequest is the type-2 diabetes payload.
type DiabetesRequest struct {
	DiseaseName DiseaseVariant `json:"disease"`
	Age         Number         `json:"age"`
	BMI         Number         `json:"bmi"`
	HighBP      Number         `json:"highbp"`
	HighChol    Number         `json:"highchol"`
	GenHlth     Number         `json:"genhlth"`
	DiffWalk    Number         `json:"diffwalk"`
}

func (DiabetesRequest) Disease() DiseaseVariant { return Diabetes }
func (DiabetesRequest) assessmentRequest()      {}

// HypertensionRequest is the hypertension payload.
type HypertensionRequest struct {
	DiseaseName DiseaseVariant `json:"disease"`
	Age         Number         `json:"age"`
	Sex         Number         `json:"sex"`
	TrestBPS    Number         `json:"trestbps"`
	Chol        Number         `json:"chol"`
	FBS         Number         `json:"fbs"`
	RestECG     Number         `json:"restecg"`
	Exang       Number         `json:"exang"`
	Slope       Number         `json:"slope"`
}

func (HypertensionRequest) Disease() DiseaseVariant { return Hypertension }
func (HypertensionRequest) assessmentRequest()      {}

// StrokeRequest is the stroke payload.
type StrokeRequest struct {
	DiseaseName     DiseaseVariant `json:"disease"`
	Age             Number         `json:"age"`
	Hypertension    Number         `json:"hypertension"`
	HeartDisease    Number         `json:"heart_disease"`
	AvgGlucoseLevel Number         `json:"avg_glucose_level"`
	BMI             Number         `json:"bmi"`
	SmokingStatus   Number         `json:"smoking_status"`
	EverMarried     Number         `json:"ever_married"`
}

func (StrokeRequest) Disease() DiseaseVariant { return Stroke }
func (StrokeRequest) assessmentRequest()      {}
