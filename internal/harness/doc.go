// Package harness provides conformance testing for the data service.
//
// The harness registers services, loads rows, runs SELECT statements and
// clause parses through the real engine, and compares what they produce
// with expectations written in YAML.
//
// # Scenario Format
//
//	name: scenario_name
//	description: "What this scenario validates"
//	id_prefix: q               # query ids become q-0001, q-0002, ...
//	services:
//	  - fixture: sales         # test4, sales or customers
//	  - name: Orders           # or an inline definition
//	    columns:
//	      - {name: id, type: integer}
//	queries:
//	  - {name: big, service: Orders, fields: "id", where: "id > 10"}
//	rows:
//	  Orders:
//	    - {id: 1}
//	steps:
//	  - query: "SELECT id FROM Orders WHERE id = 1"
//	    expect:
//	      columns: [id]
//	      rows: [[1]]
//	  - run: big
//	    expect: {row_count: 0}
//	  - parse: {service: Orders, where: "id > 1 OR id IS NULL"}
//	    expect: {where: "id > '1' OR id IS NULL"}
//	  - query: "SELECT id FROM Nowhere"
//	    expect: {error: UNKNOWN_SERVICE}
//	assertions:
//	  - {type: row_count, step: 0, count: 1}
//	  - {type: history_count, service: Orders, count: 2}
//
// # Assertion Types
//
//   - row_count: a step produced exactly N rows
//   - contains_row: some row matches the named columns
//   - path_equals: a value inside the step output, addressed by a dotted path
//   - parameter: a PARAMETER('name') binding of the step's WHERE clause
//   - history_count: the number of logged queries against a service
//
// # Golden Files
//
// Step outputs are serialized as canonical JSON and compared with
// testdata/golden/<name>.golden through RunWithGolden or AssertGolden.
// Query ids come from a sequential generator and seqs from a fresh clock,
// so reruns are byte-identical.
package harness
