// Package ir provides the foundational value and schema types for the data
// service.
//
// This package contains type definitions and their canonical encodings only.
// All other internal packages import ir; ir imports nothing internal. This
// keeps IR the bottom layer with no circular dependencies.
//
// Key design constraints:
//   - NO float types anywhere - fractional numbers are IRDecimal
//   - Schemas are ordered; column order is the row layout handed to consumers
//   - Column lookup is exact and case-sensitive, never folded
//   - All JSON tags use snake_case
package ir
