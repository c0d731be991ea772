package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/smart-disease-client/internal/domain"
	"github.com/smart-disease-client/internal/schema"
)

var schemaFlags struct {
	format string
}

var schemaCmd = &cobra.Command{
	Use:   "schema [variant...]",
	Short: "Print the input fields of one or all assessments",
	RunE:  runSchema,
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaFlags.format, "format", "f", "yaml", "output format: yaml or json")
}

type variantDoc struct {
	Variant     domain.DiseaseVariant `json:"variant" yaml:"variant"`
	Title       string                `json:"title" yaml:"title"`
	Description string                `json:"description" yaml:"description"`
	Fields      []domain.FieldSpec    `json:"fields" yaml:"fields"`
}

func runSchema(cmd *cobra.Command, args []string) error {
	variants, err := parseVariants(args)
	if err != nil {
		return err
	}
	if len(variants) == 0 {
		variants = schema.Variants()
	}

	docs := make([]variantDoc, 0, len(variants))
	for _, v := range variants {
		docs = append(docs, variantDoc{
			Variant:     v,
			Title:       schema.Title(v),
			Description: schema.Description(v),
			Fields:      schema.SchemaFor(v),
		})
	}

	out := cmd.OutOrStdout()
	switch schemaFlags.format {
	case "yaml", "yml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(docs); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	default:
		return fmt.Errorf("unsupported format %q (want yaml or json)", schemaFlags.format)
	}
}
