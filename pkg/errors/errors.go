// Package errors provides structured error handling for the Weft engine.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindStructure indicates an invalid node tree (duplicate identities,
	// mismatched roots).
	KindStructure
	// KindMutation indicates a failed or rejected state mutation.
	KindMutation
	// KindEvaluator indicates a failure inside an application-supplied
	// evaluator function.
	KindEvaluator
	// KindLifecycle indicates an operation against an engine or container
	// in the wrong lifecycle phase.
	KindLifecycle
	// KindScene indicates a scene file parsing or validation failure.
	KindScene
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindStructure:
		return "structure"
	case KindMutation:
		return "mutation"
	case KindEvaluator:
		return "evaluator"
	case KindLifecycle:
		return "lifecycle"
	case KindScene:
		return "scene"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// WeftError represents a structured error in the Weft engine.
type WeftError struct {
	// Op is the operation that failed (e.g., "engine.SetRoot").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *WeftError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *WeftError) Unwrap() error {
	return e.Err
}

// DuplicateIdentityError reports two siblings carrying the same identity.
// The offending tree is rejected; the error is not recoverable locally.
type DuplicateIdentityError struct {
	// Identity is the rendered identity shared by the colliding siblings.
	Identity string
	// ParentKind is the kind of the node owning the sibling list.
	ParentKind string
}

func (e *DuplicateIdentityError) Error() string {
	if e.ParentKind != "" {
		return fmt.Sprintf("duplicate identity %q among children of %q", e.Identity, e.ParentKind)
	}
	return fmt.Sprintf("duplicate identity %q among siblings", e.Identity)
}

// TornDownError reports a mutation against a container whose subtree has
// already been removed from the tree. The mutation is dropped; the engine
// keeps running.
type TornDownError struct {
	// Owner is the rendered identity the container was attached to.
	Owner string
}

func (e *TornDownError) Error() string {
	return fmt.Sprintf("state container for %q is torn down", e.Owner)
}

// EvaluatorError represents a failure inside an application-supplied
// evaluator. The owning container's state value is left at its pre-mutation
// value.
type EvaluatorError struct {
	// Owner is the rendered identity of the container whose evaluator failed.
	Owner string
	// Err is the error returned by the evaluator (nil for panics).
	Err error
	// Recovered is the panic value (nil for regular errors).
	Recovered any
	// StackTrace contains the call stack at the time of the failure.
	StackTrace string
	// Timestamp is when the failure occurred.
	Timestamp time.Time
}

func (e *EvaluatorError) Error() string {
	if e.Recovered != nil {
		return fmt.Sprintf("panic in evaluator for %q: %v", e.Owner, e.Recovered)
	}
	return fmt.Sprintf("evaluator for %q failed: %v", e.Owner, e.Err)
}

func (e *EvaluatorError) Unwrap() error {
	return e.Err
}

// ErrorHandler receives errors reported by the engine.
type ErrorHandler interface {
	// HandleError is called when an engine error occurs.
	HandleError(err *WeftError)
	// HandleEvaluatorError is called when an evaluator fails or panics.
	HandleEvaluatorError(err *EvaluatorError)
}
