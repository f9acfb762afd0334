package prover

import "errors"

// Hard proof-generation failures. Inputs that trip these could never
// produce a satisfiable witness, so the caller's aggregation branch is
// aborted instead of retried.
var (
	// ErrUnknownInput is returned when GenerateProof receives an input
	// kind it has no dispatch for.
	ErrUnknownInput = errors.New("unknown circuit input kind")

	// ErrWrongFamily is returned when a child proof comes from a
	// different circuit family than the aggregating node expects.
	ErrWrongFamily = errors.New("child proof from wrong circuit family")

	// ErrMissingChild is returned when a required child proof is nil.
	ErrMissingChild = errors.New("missing child proof")

	// ErrNoChildren is returned for a branch input with no children.
	ErrNoChildren = errors.New("branch needs at least one child")

	// ErrTooManyChildren is returned when a branch input exceeds the
	// largest supported arity.
	ErrTooManyChildren = errors.New("too many branch children")
)
