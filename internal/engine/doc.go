// Package engine implements the data service.
//
// The engine owns a registry of services backed by a store and answers
// SELECT statements over them:
//
//  1. sqlparse.ParseSelect splits the statement into clauses
//  2. the plan cache is consulted, keyed by ir.ClauseHash of the clauses
//  3. on a miss the field list and WHERE clause are parsed against the
//     service schema and compiled by querysql
//  4. the compiled statement runs on the store
//  5. the query is stamped with an ID and a logical seq and logged
//
// Parsing is pure and happens outside the engine lock. The registry and
// the plan cache are the only shared state.
//
// Logging uses log/slog: "query parsed" and "plan cache hit" at Debug,
// "query executed" at Info.
package engine
