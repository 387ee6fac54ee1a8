// Papertrail - Exam Paper Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/papertrail

// Package query provides SQL query building utilities for the database package.
//
// The WhereBuilder is the primary component, providing a fluent interface for
// constructing WHERE clauses with parameterized arguments:
//
//	wb := query.NewWhereBuilder()
//	wb.AddClause("approved = ?", true)
//	wb.AddIn("level", []any{"L1", "L2"})
//	whereClause, args := wb.Build()
//	// Result: "approved = ? AND level IN (?, ?)"
//	// Args: [true, "L1", "L2"]
//
// # Available Filter Methods
//
//   - AddClause: custom condition with parameters
//   - AddIn: IN clause over arbitrary values
//   - AddInts: IN clause over integer ids
//   - AddStrings: IN clause over strings
//
// Empty value lists are skipped. AddNone adds a clause that matches no rows.
//
// # Thread Safety
//
// WhereBuilder instances are not thread-safe. Create a new instance per query.
package query
