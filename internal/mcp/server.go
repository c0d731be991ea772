// Package mcp exposes the assessment workflow over the Model Context Protocol:
// tools to list, describe and assess, an intake prompt and per-variant schema
// resources.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/smart-disease-client/internal/domain"
	"github.com/smart-disease-client/internal/presenter"
	"github.com/smart-disease-client/internal/schema"
	"github.com/smart-disease-client/internal/session"
)

// Server wraps the SDK server. Every assess_risk call runs on its own
// short-lived session controller.
type Server struct {
	MCPServer *sdkmcp.Server

	predictor domain.Predictor
	recorder  domain.EventRecorder
	logger    *logrus.Logger
}

// NewServer creates the server and registers its tools. recorder may be nil.
func NewServer(cfg domain.MCPConfig, predictor domain.Predictor, recorder domain.EventRecorder, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	name := cfg.ServerName
	if name == "" {
		name = "risk-client"
	}
	version := cfg.ServerVersion
	if version == "" {
		version = "dev"
	}

	s := &Server{
		MCPServer: sdkmcp.NewServer(&sdkmcp.Implementation{Name: name, Version: version}, nil),
		predictor: predictor,
		recorder:  recorder,
		logger:    logger,
	}
	s.registerTools()
	s.registerPrompts()
	s.registerResources()
	return s
}

// Run serves over stdio until ctx is done or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Starting MCP server on stdio")
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_variants",
		Description: "List the diseases that can be assessed, with their titles and descriptions.",
	}, s.handleListVariants)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "describe_variant",
		Description: "Describe the input fields of one disease assessment, including units, coded options and defaults.",
	}, s.handleDescribeVariant)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "assess_risk",
		Description: "Submit one assessment to the prediction service. Unspecified fields keep their defaults. Returns the risk percentage, band, advice and ranked feature contributions.",
	}, s.handleAssessRisk)
}

type variantSummary struct {
	Variant     string `json:"variant"`
	Title       string `json:"title"`
	Description string `json:"description"`
	FieldCount  int    `json:"field_count"`
}

type listVariantsInput struct{}

type listVariantsOutput struct {
	Variants []variantSummary `json:"variants"`
}

type describeVariantInput struct {
	Variant string `json:"variant" jsonschema:"disease to describe: diabetes, hypertension or stroke"`
}

type describeVariantOutput struct {
	Variant string             `json:"variant"`
	Title   string             `json:"title"`
	Fields  []domain.FieldSpec `json:"fields"`
}

type assessRiskInput struct {
	Variant string            `json:"variant" jsonschema:"disease to assess: diabetes, hypertension or stroke"`
	Fields  map[string]string `json:"fields,omitempty" jsonschema:"field values keyed by field name; categorical fields take their numeric code"`
}

type assessRiskOutput struct {
	Variant string                `json:"variant"`
	Inputs  map[string]string     `json:"inputs"`
	Result  presenter.RenderModel `json:"result"`
}

func (s *Server) handleListVariants(_ context.Context, _ *sdkmcp.CallToolRequest, _ listVariantsInput) (*sdkmcp.CallToolResult, listVariantsOutput, error) {
	var out listVariantsOutput
	for _, v := range schema.Variants() {
		out.Variants = append(out.Variants, variantSummary{
			Variant:     v.String(),
			Title:       schema.Title(v),
			Description: schema.Description(v),
			FieldCount:  len(schema.SchemaFor(v)),
		})
	}
	return nil, out, nil
}

func (s *Server) handleDescribeVariant(_ context.Context, _ *sdkmcp.CallToolRequest, input describeVariantInput) (*sdkmcp.CallToolResult, describeVariantOutput, error) {
	v, err := domain.ParseDiseaseVariant(input.Variant)
	if err != nil {
		return nil, describeVariantOutput{}, fmt.Errorf("%w: %q", err, input.Variant)
	}
	return nil, describeVariantOutput{
		Variant: v.String(),
		Title:   schema.Title(v),
		Fields:  schema.SchemaFor(v),
	}, nil
}

func (s *Server) handleAssessRisk(ctx context.Context, _ *sdkmcp.CallToolRequest, input assessRiskInput) (*sdkmcp.CallToolResult, assessRiskOutput, error) {
	v, err := domain.ParseDiseaseVariant(input.Variant)
	if err != nil {
		return nil, assessRiskOutput{}, fmt.Errorf("%w: %q", err, input.Variant)
	}

	ctrl := session.NewController("mcp-"+uuid.New().String(), v, s.predictor, s.recorder, s.logger)
	defer ctrl.Close()

	if err := ctrl.SetFields(input.Fields); err != nil {
		if errors.Is(err, domain.ErrUnknownField) {
			return nil, assessRiskOutput{}, fmt.Errorf("%w; accepted fields: %v", err, fieldNames(v))
		}
		return nil, assessRiskOutput{}, err
	}

	snap, err := ctrl.Submit(ctx)
	if err != nil {
		return nil, assessRiskOutput{}, err
	}
	if snap.Status == domain.StatusFailed {
		return nil, assessRiskOutput{}, errors.New(snap.ErrorMessage)
	}

	return nil, assessRiskOutput{
		Variant: v.String(),
		Inputs:  snap.Form,
		Result:  presenter.Present(snap.Result),
	}, nil
}

func fieldNames(v domain.DiseaseVariant) []string {
	specs := schema.SchemaFor(v)
	names := make([]string, 0, len(specs))
	for _, f := range specs {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}
