package audit

import (
	"encoding/json"
	"io"
	"time"

	"github.com/smart-disease-client/internal/domain"
)

func writeExport(writer io.Writer, events []*domain.AssessmentEvent) error {
	if events == nil {
		events = []*domain.AssessmentEvent{}
	}
	export := EventExport{
		Version:    exportVersion,
		ExportedAt: time.Now().UTC(),
		Count:      len(events),
		Events:     events,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}
