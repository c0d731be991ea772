package presenter

var featureLabels = map[string]string{
	"age":               "Age",
	"sex":               "Sex",
	"bmi":               "BMI",
	"highbp":            "High Blood Pressure",
	"highchol":          "High Cholesterol",
	"genhlth":           "General Health",
	"diffwalk":          "Difficulty Walking",
	"trestbps":          "Resting BP",
	"chol":              "Cholesterol",
	"fbs":               "Fasting Blood Sugar",
	"restecg":           "Resting ECG",
	"exang":             "Exercise Angina",
	"slope":             "ST Slope",
	"hypertension":      "Hypertension",
	"heart_disease":     "Heart Disease",
	"avg_glucose_level": "Avg Glucose",
	"smoking_status":    "Smoking Status",
	"ever_married":      "Ever Married",
}

// LabelFor returns the display label of a model feature, or the raw name.
func LabelFor(feature string) string {
	if label, ok := featureLabels[feature]; ok {
		return label
	}
	return feature
}
