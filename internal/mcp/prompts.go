package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/smart-disease-client/internal/domain"
	"github.com/smart-disease-client/internal/schema"
)

const intakePromptName = "assessment_intake"

func (s *Server) registerPrompts() {
	s.MCPServer.AddPrompt(&sdkmcp.Prompt{
		Name:        intakePromptName,
		Description: "Guide a conversation that collects every input of one assessment and then calls assess_risk.",
		Arguments: []*sdkmcp.PromptArgument{
			{Name: "variant", Description: "diabetes, hypertension or stroke", Required: true},
		},
	}, s.handleIntakePrompt)
}

func (s *Server) handleIntakePrompt(_ context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	raw := req.Params.Arguments["variant"]
	v, err := domain.ParseDiseaseVariant(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", err, raw)
	}

	return &sdkmcp.GetPromptResult{
		Description: schema.Title(v) + " risk intake",
		Messages: []*sdkmcp.PromptMessage{
			{Role: "user", Content: &sdkmcp.TextContent{Text: intakeText(v)}},
		},
	}, nil
}

// intakeText lists each field with its unit or its accepted codes.
func intakeText(v domain.DiseaseVariant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Help me estimate my %s risk. %s.\n\n", strings.ToLower(schema.Title(v)), schema.Description(v))
	b.WriteString("Ask me for each of the following, one at a time:\n")

	for _, f := range schema.SchemaFor(v) {
		fmt.Fprintf(&b, "- %s (`%s`)", f.Label, f.Name)
		if f.Unit != "" {
			fmt.Fprintf(&b, ", in %s", f.Unit)
		}
		if len(f.Options) > 0 {
			codes := make([]string, 0, len(f.Options))
			for _, o := range f.Options {
				codes = append(codes, fmt.Sprintf("%s = %s", o.Value, o.Label))
			}
			fmt.Fprintf(&b, ", one of: %s", strings.Join(codes, "; "))
		}
		fmt.Fprintf(&b, ". Default %s.\n", f.Default)
	}

	fmt.Fprintf(&b, "\nThen call the assess_risk tool with variant %q and the collected values as strings, "+
		"using the numeric code for coded answers. Explain the risk level and the strongest contributing factors "+
		"in plain language, and remind me that this is not a diagnosis.", v.String())
	return b.String()
}
