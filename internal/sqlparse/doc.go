// Package sqlparse turns the WHERE clause and SELECT list of the data
// service's SQL subset into queryir trees.
//
// The supported subset:
//
//	SELECT <field> [, <field>...] FROM <service> [[AS] alias] [WHERE <condition>]
//
//	condition := orExpr
//	orExpr    := andExpr ( OR andExpr )*
//	andExpr   := notExpr ( AND notExpr )*
//	notExpr   := [NOT] primary
//	primary   := '(' orExpr ')' | comparison
//	comparison:= operand cmpOp operand
//	           | operand [NOT] IN '(' literal (',' literal)* ')'
//	           | operand [NOT] LIKE literal
//	           | operand [NOT] REGEX literal
//	           | operand IS [NOT] NULL
//	           | PARAMETER '(' literal ')' cmpOp literal
//
//	field     := expr [[AS] alias]
//	expr      := column | constant
//	           | SUM|AVG|MIN|MAX|COUNT '(' [DISTINCT] column | '*' ')'
//	           | IIF '(' condition ',' expr ',' expr ')'
//	           | CASE WHEN condition THEN expr [ELSE expr] END
//
// Keywords are case-insensitive. Identifiers may be double-quoted and may
// carry a qualifier naming the service ("Service"."A", Service.A); the
// qualifier is stripped when it matches the service name.
//
// Every entry point is a pure function of its arguments. Parsers share no
// state and never mutate the schema or field list they are given, so they
// are safe for concurrent use. A clause either parses fully or fails with a
// *ParseError; there are no partial results.
package sqlparse
