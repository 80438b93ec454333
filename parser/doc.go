// Package parser turns native test tool output into counts and failure records.
//
// Structured parsers (JUnit/Surefire XML and MSTest TRX) return a *types.ParseError
// for malformed input so callers can fall back to the console scrapers. The
// console scrapers are pure functions of the captured text and never fail: text
// they cannot interpret yields an empty result.
package parser
