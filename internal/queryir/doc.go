// Package queryir provides the parse-tree intermediate representation (IR)
// for the data service's SQL subset.
//
// The IR is the contract between the clause parsers (package sqlparse) and
// every consumer of a parsed query: the SQLite backend (package querysql),
// the engine, the conformance harness, and the CLI.
//
//	[WHERE text]  -> sqlparse.ParseCondition -> *Condition -> [evaluator]
//	[SELECT text] -> sqlparse.ParseFields    -> Fields     -> [evaluator]
//
// CONDITION TREES:
//
// Every node of a condition tree has the same outer shape: a Condition
// carrying a Join (how it combines with its previous sibling) and a Negated
// flag. The payload is a sealed Node, either a *Leaf (one atomic predicate)
// or a *Group (an ordered list of child conditions).
//
//	switch n := cond.Node.(type) {
//	case *Leaf:
//	    // atomic predicate: n.Left, n.Function, n.Right
//	case *Group:
//	    // composite: n.Children, joined left to right
//	}
//
// Invariants (checked by Validate):
//   - A Group has at least one child
//   - The first child of a Group carries JoinNone; later children carry
//     JoinAnd or JoinOr
//   - Any node, leaf or group, may be negated
//   - Same-precedence chains are flat: A AND B AND C is one Group with three
//     children, never a binary tree
//
// IN LISTS:
//
// An IN_LIST leaf carries its elements in Right as one string, joined by
// ";". A literal ";" inside an element is written as "\;". EncodeInList and
// DecodeInList are the two halves of that wire contract; no other escape
// sequence exists.
//
// FIELDS:
//
// Fields is the ordered SELECT list. Order is significant: consumers emit
// output columns in exactly this order.
//
// Trees are built once by a parser and are immutable afterwards. String
// renders a tree back into clause text that re-parses to an equal tree;
// ToIR projects it onto ir values for canonical JSON and fingerprints.
package queryir
