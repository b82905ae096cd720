package tables

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	apperrors "mysql-db-export/internal/errors"
)

// DefinerMode controls how DEFINER clauses in view definitions are written
type DefinerMode string

const (
	DefinerStrip   DefinerMode = "strip"
	DefinerKeep    DefinerMode = "keep"
	DefinerReplace DefinerMode = "replace"
)

var (
	definerWithSpace = regexp.MustCompile("(?i)DEFINER\\s*=\\s*`[^`]+`@`[^`]+`\\s*")
	definerClause    = regexp.MustCompile("(?i)DEFINER\\s*=\\s*`[^`]+`@`[^`]+`")
)

// ViewDefinition is the re-creatable DDL of one view
type ViewDefinition struct {
	Name      string
	Statement string
}

// ViewExporter reads view definitions and rewrites their DEFINER clause
type ViewExporter struct {
	catalog     Catalog
	mode        DefinerMode
	replaceWith string
}

// NewViewExporter creates a view exporter. An empty mode strips definers and
// an empty replacement defaults to CURRENT_USER.
func NewViewExporter(catalog Catalog, mode DefinerMode, replaceWith string) (*ViewExporter, error) {
	switch mode {
	case "":
		mode = DefinerStrip
	case DefinerStrip, DefinerKeep, DefinerReplace:
	default:
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("unknown view definer mode %q", mode), nil)
	}
	if replaceWith == "" {
		replaceWith = "CURRENT_USER"
	}
	return &ViewExporter{catalog: catalog, mode: mode, replaceWith: replaceWith}, nil
}

// Export returns the definitions of views in order. Views without a
// definition are skipped.
func (e *ViewExporter) Export(ctx context.Context, views []string) ([]ViewDefinition, error) {
	defs := make([]ViewDefinition, 0, len(views))
	for _, view := range views {
		stmt, ok, err := e.catalog.ShowCreateView(ctx, view)
		if err != nil {
			return nil, err
		}
		if !ok || stmt == "" {
			continue
		}
		defs = append(defs, ViewDefinition{Name: view, Statement: e.Process(view, stmt)})
	}
	return defs, nil
}

// Process applies the definer mode and prefixes a DROP VIEW statement
func (e *ViewExporter) Process(view, stmt string) string {
	switch e.mode {
	case DefinerStrip:
		stmt = definerWithSpace.ReplaceAllString(stmt, "")
	case DefinerReplace:
		stmt = definerClause.ReplaceAllLiteralString(stmt, "DEFINER = "+e.replaceWith)
	}
	stmt = strings.TrimRight(strings.TrimSpace(stmt), ";")
	return DropViewStatement(view) + "\n" + stmt + ";"
}

// DropViewStatement returns DROP VIEW IF EXISTS for view
func DropViewStatement(view string) string {
	return fmt.Sprintf("DROP VIEW IF EXISTS `%s`;", strings.ReplaceAll(view, "`", "``"))
}

// Script joins definitions into one SQL fragment
func Script(defs []ViewDefinition) string {
	if len(defs) == 0 {
		return ""
	}
	var b strings.Builder
	for _, def := range defs {
		b.WriteString(def.Statement)
		b.WriteString("\n")
	}
	return b.String()
}
