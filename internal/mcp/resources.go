package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/smart-disease-client/internal/domain"
	"github.com/smart-disease-client/internal/schema"
)

const schemaURIPrefix = "risk://schema/"

// registerResources publishes one read-only schema document per variant.
func (s *Server) registerResources() {
	for _, v := range schema.Variants() {
		s.MCPServer.AddResource(&sdkmcp.Resource{
			URI:         schemaURIPrefix + v.String(),
			Name:        v.String() + "-schema",
			Description: schema.Title(v) + " assessment fields, units, codes and defaults",
			MIMEType:    "application/json",
		}, s.handleSchemaResource)
	}
}

func (s *Server) handleSchemaResource(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
	uri := req.Params.URI
	v, err := domain.ParseDiseaseVariant(strings.TrimPrefix(uri, schemaURIPrefix))
	if err != nil {
		return nil, fmt.Errorf("resource not found: %s", uri)
	}

	data, err := json.MarshalIndent(describeVariantOutput{
		Variant: v.String(),
		Title:   schema.Title(v),
		Fields:  schema.SchemaFor(v),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}

	return &sdkmcp.ReadResourceResult{
		Contents: []*sdkmcp.ResourceContents{
			{URI: uri, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}
