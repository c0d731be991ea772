package domain

import (
	"encoding/json"
	"math"
	"testing"
)

func TestParseDiseaseVariant(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    DiseaseVariant
		wantErr bool
	}{
		{"Diabetes", "diabetes", Diabetes, false},
		{"Hypertension mixed case", "  HyperTension ", Hypertension, false},
		{"Stroke", "stroke", Stroke, false},
		{"Unknown", "asthma", "", true},
		{"Empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDiseaseVariant(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDiseaseVariant(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestOptionalNumberUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
		value float64
	}{
		{"Number", `0.72`, true, 0.72},
		{"Negative", `-0.3`, true, -0.3},
		{"Numeric string", `"0.25"`, true, 0.25},
		{"Null", `null`, false, 0},
		{"Word", `"high"`, false, 0},
		{"Empty string", `""`, false, 0},
		{"Object", `{"a":1}`, false, 0},
		{"Bool", `true`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var n OptionalNumber
			if err := json.Unmarshal([]byte(tt.input), &n); err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if n.Valid != tt.valid {
				t.Errorf("Expected valid=%v, got %v", tt.valid, n.Valid)
			}
			if n.Valid && math.Abs(n.Value-tt.value) > 1e-9 {
				t.Errorf("Expected %v, got %v", tt.value, n.Value)
			}
		})
	}
}

func TestOptionalNumberMarshal(t *testing.T) {
	data, err := json.Marshal([]OptionalNumber{Some(1.5), {}, Some(math.NaN())})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(data) != `[1.5,null,null]` {
		t.Errorf("Unexpected encoding %s", data)
	}
}

func TestFormStateClone(t *testing.T) {
	original := FormState{"age": "45"}
	clone := original.Clone()
	clone["age"] = "50"

	if original["age"] != "45" {
		t.Errorf("Clone must not alias the original, got %s", original["age"])
	}
}
