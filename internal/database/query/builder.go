// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

package query

import (
	"fmt"
	"strings"
)

// WhereBuilder constructs SQL WHERE clauses with parameterized arguments.
//
// Example usage:
//
//	wb := query.NewWhereBuilder()
//	wb.AddClause("approved = ?", true)
//	wb.AddInts("id", []int{1, 2})
//	whereClause, args := wb.Build()
//	// approved = ? AND id IN (?, ?)
type WhereBuilder struct {
	clauses []string
	args    []any
}

// NewWhereBuilder creates a new WhereBuilder instance.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		clauses: []string{},
		args:    []any{},
	}
}

// AddClause adds a raw WHERE clause with its arguments.
//
// Parameters:
//   - clause: SQL condition fragment (e.g., "level = ?")
//   - args: Arguments to bind to placeholders in the clause
func (wb *WhereBuilder) AddClause(clause string, args ...any) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddIn adds "column IN (?, ...)". An empty values slice is skipped.
func (wb *WhereBuilder) AddIn(column string, values []any) *WhereBuilder {
	if len(values) == 0 {
		return wb
	}
	placeholders := make([]string, len(values))
	for i := range values {
		placeholders[i] = "?"
	}
	wb.clauses = append(wb.clauses, fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")))
	wb.args = append(wb.args, values...)
	return wb
}

// AddInts adds an IN clause over integer values.
func (wb *WhereBuilder) AddInts(column string, values []int) *WhereBuilder {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return wb.AddIn(column, vals)
}

// AddStrings adds an IN clause over string values.
func (wb *WhereBuilder) AddStrings(column string, values []string) *WhereBuilder {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	return wb.AddIn(column, vals)
}

// AddNone adds a clause that matches no rows.
func (wb *WhereBuilder) AddNone() *WhereBuilder {
	wb.clauses = append(wb.clauses, "1=0")
	return wb
}

// Build constructs the final WHERE clause and returns it with arguments.
// Clauses are joined with "AND". Returns ("1=1", []) if no clauses were added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.clauses) == 0 {
		return "1=1", []any{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix returns the WHERE clause with "WHERE " prefix.
func (wb *WhereBuilder) BuildWithPrefix() (string, []any) {
	whereClause, args := wb.Build()
	return "WHERE " + whereClause, args
}

// Count returns the number of clauses added to the builder.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty returns true if no clauses have been added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}
