package api

import (
	"embed"
	"html/template"

	"github.com/smart-disease-client/internal/domain"
)

//go:embed templates/*.tmpl static/*
var assets embed.FS

var templateFuncs = template.FuncMap{
	"isCategorical": func(k domain.FieldKind) bool { return k == domain.FieldCategorical },
}
