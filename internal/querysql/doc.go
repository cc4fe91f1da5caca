// Package querysql compiles parsed SELECT lists and WHERE trees into
// parameterized SQLite statements.
//
// Values never appear in the SQL text; every literal becomes a ? parameter
// typed by the column it is compared with. IN lists are decoded from their
// ";"-joined form and expanded to one placeholder per element.
// PARAMETER('name') = 'value' bindings do not filter rows: they compile to
// 1 = 1 and are reported in Compiled.Parameters.
package querysql
