package prediction

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/smart-disease-client/internal/domain"
)

type object map[string]json.RawMessage

func decodeObject(data []byte) (object, bool) {
	var obj object
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func (o object) str(key string) (string, bool) {
	raw, ok := o[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func (o object) number(key string) domain.OptionalNumber {
	var n domain.OptionalNumber
	if raw, ok := o[key]; ok {
		_ = n.UnmarshalJSON(raw)
	}
	return n
}

func (o object) list(key string) ([]json.RawMessage, bool) {
	raw, ok := o[key]
	if !ok {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return nil, false
	}
	return items, true
}

// DecodeResult reads a prediction response. Only a body that is not a JSON
// object fails; missing or mistyped members decode as absent.
func DecodeResult(data []byte) (*domain.AssessmentResult, error) {
	obj, ok := decodeObject(data)
	if !ok {
		return nil, &domain.PredictionError{Kind: domain.FailureDecode, Message: "response is not a JSON object"}
	}

	result := &domain.AssessmentResult{
		RiskScore: obj.number("risk_score"),
	}

	if name, ok := obj.str("disease_name"); ok {
		result.DiseaseName = name
	} else if name, ok := obj.str("disease"); ok {
		result.DiseaseName = name
	}

	if label, ok := obj.str("risk_label"); ok {
		result.RiskLabel = domain.RiskLabel(label)
	}

	if advice, ok := obj.str("advice"); ok {
		result.Advice = &advice
	}

	if items, ok := obj.list("explanation"); ok {
		result.Explanation = make([]domain.AttributionItem, 0, len(items))
		for _, raw := range items {
			item, ok := decodeObject(raw)
			if !ok {
				continue
			}
			feature, _ := item.str("feature")
			result.Explanation = append(result.Explanation, domain.AttributionItem{
				Feature:   feature,
				Value:     item.number("value"),
				ShapValue: item.number("shap_value"),
			})
		}
	}

	return result, nil
}

// DecodeChatReply reads a chat response.
func DecodeChatReply(data []byte) (*domain.ChatReply, error) {
	obj, ok := decodeObject(data)
	if !ok {
		return nil, &domain.PredictionError{Kind: domain.FailureDecode, Message: "chat response is not a JSON object"}
	}

	reply := &domain.ChatReply{}
	reply.BotName, _ = obj.str("bot_name")
	reply.Reply, _ = obj.str("bot_reply")

	if raw, ok := obj["sentiment"]; ok {
		if sentiment, ok := decodeObject(raw); ok {
			reply.SentimentLabel, _ = sentiment.str("label")
			reply.SentimentScore = sentiment.number("score")
		}
	}

	if items, ok := obj.list("suggested_activities"); ok {
		for _, raw := range items {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
				reply.SuggestedActivities = append(reply.SuggestedActivities, s)
			}
		}
	}

	return reply, nil
}
