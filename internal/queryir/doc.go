// Package queryir provides a small query representation for selecting
// stored tickets.
//
// A Query is built in code or parsed from the filter syntax accepted by the
// tickets command, validated, and compiled to SQL by internal/querysql:
//
//	[--where text] → Parse → [Query IR] → querysql.Compile → SQLite
//
// FILTER SYNTAX:
//
// A filter is a list of terms joined by whitespace or commas. Every term
// must hold; there is no OR.
//
//	kind=deadlock round>=2 detail~"lock b"
//
// Operators:
//   - =, != : equality, on every field
//   - <, <=, >, >= : ordering, on integer fields (round, seq)
//   - ~ : substring, on text fields
//   - ^ : prefix, on text fields (id^ea547d89)
//
// Values may be double-quoted to include spaces or commas. ~ and ^ ignore
// the case of ASCII letters.
//
// SEALED INTERFACES:
//
// Query and Predicate are sealed interfaces using the marker method pattern.
// Only types in this package implement them, so the SQL compiler can switch
// over every case.
package queryir
