// Package domain contains the core types of the disease risk assessment client:
// disease variants and their input field specifications, the form state a user
// edits, the typed requests sent to the prediction service and the results it
// returns.
package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// DiseaseVariant identifies the condition being assessed and selects its schema.
type DiseaseVariant string

const (
	Diabetes     DiseaseVariant = "diabetes"
	Hypertension DiseaseVariant = "hypertension"
	Stroke       DiseaseVariant = "stroke"
)

// ErrUnknownVariant is returned when a variant name is outside the supported set.
var ErrUnknownVariant = errors.New("unknown disease variant")

// IsValid reports whether v is one of the supported variants.
func (v DiseaseVariant) IsValid() bool {
	switch v {
	case Diabetes, Hypertension, Stroke:
		return true
	default:
		return false
	}
}

// String returns the wire representation of the variant.
func (v DiseaseVariant) String() string {
	return string(v)
}

// ParseDiseaseVariant normalises user input into a supported variant.
func ParseDiseaseVariant(s string) (DiseaseVariant, error) {
	v := DiseaseVariant(strings.ToLower(strings.TrimSpace(s)))
	if !v.IsValid() {
		return "", ErrUnknownVariant
	}
	return v, nil
}

// FieldKind distinguishes free numeric inputs from coded choices.
type FieldKind string

const (
	FieldNumeric     FieldKind = "numeric"
	FieldCategorical FieldKind = "categorical"
)

// Option is one integer-coded choice of a categorical field. Value is the
// trained-model feature code and must reach the prediction service unchanged.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// FieldSpec describes a single input of a variant's schema.
type FieldSpec struct {
	Name    string    `json:"name" yaml:"name"`
	Label   string    `json:"label" yaml:"label"`
	Kind    FieldKind `json:"kind" yaml:"kind"`
	Unit    string    `json:"unit,omitempty" yaml:"unit,omitempty"`
	Step    string    `json:"step,omitempty" yaml:"step,omitempty"`
	Options []Option  `json:"options,omitempty" yaml:"options,omitempty"`
	Default string    `json:"default" yaml:"default"`
}

// FormState maps field names to the raw strings the user entered.
type FormState map[string]string

// Clone returns an independent copy of the form.
func (f FormState) Clone() FormState {
	out := make(FormState, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// SessionStatus is the lifecycle state of an assessment session.
type SessionStatus string

const (
	StatusIdle       SessionStatus = "idle"
	StatusSubmitting SessionStatus = "submitting"
	StatusSucceeded  SessionStatus = "succeeded"
	StatusFailed     SessionStatus = "failed"
)

// String returns the status name.
func (s SessionStatus) String() string {
	return string(s)
}

// RiskLabel is the coarse risk band reported by the prediction service.
// Labels outside the three known bands are kept verbatim.
type RiskLabel string

const (
	RiskLow      RiskLabel = "Low"
	RiskModerate RiskLabel = "Moderate"
	RiskHigh     RiskLabel = "High"
)

// OptionalNumber is a numeric value that may be missing or unusable in a
// service response. Numeric strings are accepted the way a browser's Number()
// would accept them; anything else decodes as absent rather than failing.
type OptionalNumber struct {
	Value float64
	Valid bool
}

// Some returns a present OptionalNumber.
func Some(v float64) OptionalNumber {
	return OptionalNumber{Value: v, Valid: true}
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *OptionalNumber) UnmarshalJSON(data []byte) error {
	*n = OptionalNumber{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Some(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
			*n = Some(f)
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler; absent values encode as null.
func (n OptionalNumber) MarshalJSON() ([]byte, error) {
	if !n.Valid || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// AttributionItem is one feature's signed contribution to a risk score.
type AttributionItem struct {
	Feature   string         `json:"feature"`
	Value     OptionalNumber `json:"value"`
	ShapValue OptionalNumber `json:"shap_value"`
}

// AssessmentResult is a decoded prediction. Advice and Explanation are nil
// when the service did not provide them.
type AssessmentResult struct {
	DiseaseName string            `json:"disease_name"`
	RiskScore   OptionalNumber    `json:"risk_score"`
	RiskLabel   RiskLabel         `json:"risk_label"`
	Advice      *string           `json:"advice,omitempty"`
	Explanation []AttributionItem `json:"explanation,omitempty"`
}

// ChatReply is the supportive-chat response relayed from the service.
type ChatReply struct {
	BotName             string         `json:"bot_name"`
	SentimentLabel      string         `json:"sentiment_label"`
	SentimentScore      OptionalNumber `json:"sentiment_score"`
	Reply               string         `json:"bot_reply"`
	SuggestedActivities []string       `json:"suggested_activities,omitempty"`
}
