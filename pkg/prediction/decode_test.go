package prediction

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smart-disease-client/internal/domain"
)

func TestDecodeResult_FallsBackToDiseaseKey(t *testing.T) {
	result, err := DecodeResult([]byte(`{"disease":"Stroke","risk_score":"0.3","risk_label":"Low","advice":"Stay active"}`))
	require.NoError(t, err)

	assert.Equal(t, "Stroke", result.DiseaseName)
	assert.Equal(t, domain.Some(0.3), result.RiskScore)
	require.NotNil(t, result.Advice)
	assert.Equal(t, "Stay active", *result.Advice)
	assert.Nil(t, result.Explanation)
}

func TestDecodeResult_NullDiseaseNameFallsBack(t *testing.T) {
	result, err := DecodeResult([]byte(`{"disease_name":null,"disease":"Hypertension","risk_score":0.5,"risk_label":"Moderate","advice":null}`))
	require.NoError(t, err)

	assert.Equal(t, "Hypertension", result.DiseaseName)
	assert.Nil(t, result.Advice)
}

func TestDecodeResult_MalformedMembersDegrade(t *testing.T) {
	result, err := DecodeResult([]byte(`{
		"disease_name": 42,
		"risk_score": "high",
		"risk_label": null,
		"advice": {"text": "x"},
		"explanation": [
			{"feature": "age", "value": "n/a", "shap_value": null},
			"garbage",
			{"feature": "chol", "value": 230, "shap_value": -0.05}
		]
	}`))
	require.NoError(t, err)

	assert.Empty(t, result.DiseaseName)
	assert.False(t, result.RiskScore.Valid)
	assert.Empty(t, result.RiskLabel)
	assert.Nil(t, result.Advice)
	require.Len(t, result.Explanation, 2)
	assert.Equal(t, "age", result.Explanation[0].Feature)
	assert.False(t, result.Explanation[0].Value.Valid)
	assert.Equal(t, "chol", result.Explanation[1].Feature)
	assert.Equal(t, domain.Some(-0.05), result.Explanation[1].ShapValue)
}

func TestDecodeResult_EmptyExplanationKept(t *testing.T) {
	result, err := DecodeResult([]byte(`{"risk_label":"High","explanation":[]}`))
	require.NoError(t, err)
	assert.NotNil(t, result.Explanation)
	assert.Empty(t, result.Explanation)
}

func TestDecodeChatReply_NotObject(t *testing.T) {
	_, err := DecodeChatReply([]byte(`"hello"`))
	assert.Equal(t, domain.FailureDecode, domain.KindOf(err))
}
