// Package errors provides custom error types for the cartograph engine.
// These errors enable programmatic error checking and distinguish per-entity
// failures (recovered locally, build continues) from build-stage failures
// (the whole snapshot is aborted).
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is reports whether any error in err's chain matches target.
// It's an alias for the standard library errors.Is for convenience.
var Is = errors.Is

// As finds the first error in err's chain that matches target.
// It's an alias for the standard library errors.As for convenience.
var As = errors.As

// Common sentinel errors for the cartograph engine
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownBoundaryType indicates a boundary type with no registered authority
	ErrUnknownBoundaryType = errors.New("unknown boundary type")

	// ErrConflictUnresolved indicates resolution was attempted with zero claims
	ErrConflictUnresolved = errors.New("conflict unresolved")

	// ErrDuplicateAmbiguity indicates a duplicate decision in the borderline band
	ErrDuplicateAmbiguity = errors.New("duplicate ambiguity")

	// ErrCapacityExceeded indicates more entities than the tree can hold
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrMerkleIntegrity indicates the hash primitive failed its self-test
	ErrMerkleIntegrity = errors.New("merkle integrity")

	// ErrReadOnly indicates an attempt to modify an immutable record
	ErrReadOnly = errors.New("read only")

	// ErrReviewRequired indicates a snapshot is blocked from publication
	// pending human confirmation
	ErrReviewRequired = errors.New("review required")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a malformed claim or entity. The affected
// entity is skipped and the build continues.
type ValidationError struct {
	EntityID string
	Field    string
	Message  string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("validation failed for entity %s (field %s): %s", e.EntityID, e.Field, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(entityID, field, message string) *ValidationError {
	return &ValidationError{EntityID: entityID, Field: field, Message: message}
}

// UnknownBoundaryTypeError indicates an entity references a boundary type
// with no registered authority. Fatal for that entity only.
type UnknownBoundaryTypeError struct {
	BoundaryType string
	EntityID     string
}

// Error implements the error interface
func (e *UnknownBoundaryTypeError) Error() string {
	if e.EntityID != "" {
		return fmt.Sprintf("unknown boundary type %q for entity %s", e.BoundaryType, e.EntityID)
	}
	return fmt.Sprintf("unknown boundary type %q", e.BoundaryType)
}

// Is implements errors.Is support
func (e *UnknownBoundaryTypeError) Is(target error) bool {
	return target == ErrUnknownBoundaryType
}

// NewUnknownBoundaryTypeError creates a new UnknownBoundaryTypeError
func NewUnknownBoundaryTypeError(boundaryType, entityID string) *UnknownBoundaryTypeError {
	return &UnknownBoundaryTypeError{BoundaryType: boundaryType, EntityID: entityID}
}

// ConflictUnresolvedError indicates resolve was called with zero claims.
// This is an upstream programming error, never a normal condition.
type ConflictUnresolvedError struct {
	EntityID string
	Message  string
}

// Error implements the error interface
func (e *ConflictUnresolvedError) Error() string {
	return fmt.Sprintf("cannot resolve entity %s: %s", e.EntityID, e.Message)
}

// Is implements errors.Is support
func (e *ConflictUnresolvedError) Is(target error) bool {
	return target == ErrConflictUnresolved
}

// NewConflictUnresolvedError creates a new ConflictUnresolvedError
func NewConflictUnresolvedError(entityID, message string) *ConflictUnresolvedError {
	return &ConflictUnresolvedError{EntityID: entityID, Message: message}
}

// DuplicateAmbiguityError indicates two entities fall in the borderline
// similarity band where neither a merge nor a keep is safe automatically.
// Both entities are excluded from the build pending manual review.
type DuplicateAmbiguityError struct {
	KeptID         string
	CandidateID    string
	IoU            float64
	NameSimilarity float64
}

// Error implements the error interface
func (e *DuplicateAmbiguityError) Error() string {
	return fmt.Sprintf("ambiguous duplicate between %s and %s (IoU=%.3f, name similarity=%.3f): manual review required",
		e.KeptID, e.CandidateID, e.IoU, e.NameSimilarity)
}

// Is implements errors.Is support
func (e *DuplicateAmbiguityError) Is(target error) bool {
	return target == ErrDuplicateAmbiguity
}

// NewDuplicateAmbiguityError creates a new DuplicateAmbiguityError
func NewDuplicateAmbiguityError(keptID, candidateID string, iou, nameSimilarity float64) *DuplicateAmbiguityError {
	return &DuplicateAmbiguityError{
		KeptID:         keptID,
		CandidateID:    candidateID,
		IoU:            iou,
		NameSimilarity: nameSimilarity,
	}
}

// CapacityExceededError indicates the canonical entity list does not fit the
// fixed Merkle capacity. Fatal for the whole build: truncation would corrupt
// every proof that should have included the dropped boundary.
type CapacityExceededError struct {
	Entities int
	Capacity int
}

// Error implements the error interface
func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("%d entities exceed merkle capacity %d: build halted", e.Entities, e.Capacity)
}

// Is implements errors.Is support
func (e *CapacityExceededError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// NewCapacityExceededError creates a new CapacityExceededError
func NewCapacityExceededError(entities, capacity int) *CapacityExceededError {
	return &CapacityExceededError{Entities: entities, Capacity: capacity}
}

// MerkleIntegrityError indicates the supplied hash primitive failed its
// determinism or non-commutativity self-test. The build refuses to start.
type MerkleIntegrityError struct {
	Check   string
	Message string
}

// Error implements the error interface
func (e *MerkleIntegrityError) Error() string {
	return fmt.Sprintf("hash primitive failed %s self-test: %s", e.Check, e.Message)
}

// Is implements errors.Is support
func (e *MerkleIntegrityError) Is(target error) bool {
	return target == ErrMerkleIntegrity
}

// NewMerkleIntegrityError creates a new MerkleIntegrityError
func NewMerkleIntegrityError(check, message string) *MerkleIntegrityError {
	return &MerkleIntegrityError{Check: check, Message: message}
}

// IOError represents an error during store I/O operations
type IOError struct {
	Operation string // "read", "write", "open", "close", "delete"
	Path      string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("IO error during %s: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}

// ParseError represents an error when parsing configuration or store data
type ParseError struct {
	Format  string // "yaml", "json"
	File    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, File: file, Message: err.Error(), Err: err}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsUnknownBoundaryType checks if an error is an unknown boundary type error
func IsUnknownBoundaryType(err error) bool {
	return errors.Is(err, ErrUnknownBoundaryType)
}

// IsDuplicateAmbiguity checks if an error is a duplicate ambiguity error
func IsDuplicateAmbiguity(err error) bool {
	return errors.Is(err, ErrDuplicateAmbiguity)
}

// IsCapacityExceeded checks if an error is a capacity error
func IsCapacityExceeded(err error) bool {
	return errors.Is(err, ErrCapacityExceeded)
}

// IsMerkleIntegrity checks if an error is a merkle integrity error
func IsMerkleIntegrity(err error) bool {
	return errors.Is(err, ErrMerkleIntegrity)
}

// IsFatal reports whether an error must abort the entire build rather than
// skip a single entity.
func IsFatal(err error) bool {
	return errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrMerkleIntegrity) ||
		errors.Is(err, ErrConflictUnresolved)
}
