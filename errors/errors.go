// Package errors defines the discriminable error taxonomy surfaced by the
// query engine (spec section 7). Each kind is a gopkg.in/src-d/go-errors.v1
// Kind, the same pattern the pack's auth package uses for its own error
// kinds: construct with a printf-style message, raise with Kind.New, and
// discriminate with Kind.Is.
package errors

import goerrors "gopkg.in/src-d/go-errors.v1"

var (
	// FileNotFound is raised when a format adapter cannot open its path.
	FileNotFound = goerrors.NewKind("file not found: %s")

	// InvalidFormat is raised when a format adapter cannot parse its document.
	InvalidFormat = goerrors.NewKind("invalid format in %s: %s")

	// ParseError is raised on an unknown token or unexpected keyword in SQL text.
	ParseError = goerrors.NewKind("parse error at %s: %s")

	// AliasError is raised for a duplicate, empty, or misplaced alias.
	AliasError = goerrors.NewKind("alias error: %s")

	// JoinError is raised when ON is used without a prior join, or a join
	// key can't be resolved against either side at build time.
	JoinError = goerrors.NewKind("join error: %s")

	// SortError is raised for an unknown sort mode or an invalid ordering.
	SortError = goerrors.NewKind("sort error: %s")

	// MissingField is raised by strict path access to an absent key, and by
	// HAVING references to a finalName that wasn't projected.
	MissingField = goerrors.NewKind("missing field: %s")

	// TypeError is raised when a non-numeric value is used where a numeric
	// value is required, or another coercion fails.
	TypeError = goerrors.NewKind("type error: %s")

	// UnexpectedValue is the catch-all for internal invariant violations.
	UnexpectedValue = goerrors.NewKind("unexpected value: %s")
)
