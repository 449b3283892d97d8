/*
errors.go - Centralized error types for the rule engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match on the sentinels with errors.Is and extract details with
  errors.As on the structured types.

ERROR CATEGORIES:
  1. Evaluation errors - a fact the rule needs is not in the Grunnlag
  2. Resolution errors - no rule variant is in force at the requested date
  3. Construction errors - malformed version sets or registries (init time)
  4. Log errors - calculation log lookups and duplicates

RETRIES:
  Evaluation is pure. The same (rule, grunnlag, dato) reproduces the same
  error, so nothing here is retryable.

USAGE:
  trace, err := regler.Evaluate(rule, grunnlag)
  var missing *regler.MissingFactError
  if errors.As(err, &missing) {
      log.Printf("indeterminate: %s (%s)", missing.Description, missing.Reference.ID)
  }
*/
package regler

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingFact is returned when a fact accessor finds no value in the Grunnlag.
	ErrMissingFact = errors.New("missing fact")

	// ErrNoApplicableRuleVersion is returned when no variant of a rule is in
	// force at the requested date.
	ErrNoApplicableRuleVersion = errors.New("no applicable rule version")

	// ErrDuplicateEffectiveFrom is returned when two variants of the same
	// logical rule share an effective-from date.
	ErrDuplicateEffectiveFrom = errors.New("duplicate effective-from date")

	// ErrDuplicateReference is returned when two variants of the same
	// logical rule carry the same reference id.
	ErrDuplicateReference = errors.New("duplicate rule reference")

	// ErrNoVariants is returned when a version set is built without variants.
	ErrNoVariants = errors.New("version set has no variants")

	// ErrDuplicateLogicalID is returned when a registry gets the same logical id twice.
	ErrDuplicateLogicalID = errors.New("duplicate logical rule id")

	// ErrUnknownRule is returned when a registry has no rule with the given id.
	ErrUnknownRule = errors.New("unknown rule")

	// ErrRuleTypeMismatch is returned when a registry rule is requested with
	// a different Grunnlag or value type than it was registered with.
	ErrRuleTypeMismatch = errors.New("rule type mismatch")

	// ErrInvalidReference is returned for reference ids that are not uppercase dash-separated codes.
	ErrInvalidReference = errors.New("invalid rule reference")

	// ErrDivisionByZero is the panic value of Beregningstall.Divide with a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrBeregningNotFound is returned when a stored calculation does not exist.
	ErrBeregningNotFound = errors.New("beregning not found")

	// ErrDuplicateBeregning is returned when a calculation id is appended twice.
	ErrDuplicateBeregning = errors.New("duplicate beregning")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MissingFactError names the accessor rule that found nothing.
type MissingFactError struct {
	Reference   Reference
	Description string
}

func (e *MissingFactError) Error() string {
	return fmt.Sprintf("missing fact for %q (%s)", e.Description, e.Reference.ID)
}

func (e *MissingFactError) Unwrap() error {
	return ErrMissingFact
}

// NoApplicableRuleVersionError names the logical rule and the requested date.
type NoApplicableRuleVersionError struct {
	LogicalID string
	Date      Dato
	Earliest  Dato // effective-from of the oldest variant
}

func (e *NoApplicableRuleVersionError) Error() string {
	return fmt.Sprintf("no version of %s applies at %s (earliest variant from %s)",
		e.LogicalID, e.Date, e.Earliest)
}

func (e *NoApplicableRuleVersionError) Unwrap() error {
	return ErrNoApplicableRuleVersion
}

// DuplicateEffectiveFromError names the colliding variants.
type DuplicateEffectiveFromError struct {
	LogicalID     string
	EffectiveFrom Dato
	First         Reference
	Second        Reference
}

func (e *DuplicateEffectiveFromError) Error() string {
	return fmt.Sprintf("%s: variants %s and %s both effective from %s",
		e.LogicalID, e.First.ID, e.Second.ID, e.EffectiveFrom)
}

func (e *DuplicateEffectiveFromError) Unwrap() error {
	return ErrDuplicateEffectiveFrom
}

// DuplicateReferenceError names the reference id shared by two variants.
type DuplicateReferenceError struct {
	LogicalID string
	First     Reference
	Second    Reference
}

func (e *DuplicateReferenceError) Error() string {
	return fmt.Sprintf("%s: reference %s is used by more than one variant", e.LogicalID, e.First.ID)
}

func (e *DuplicateReferenceError) Unwrap() error {
	return ErrDuplicateReference
}

// RuleTypeMismatchError reports the registered and requested types.
type RuleTypeMismatchError struct {
	LogicalID string
	Have      string
	Want      string
}

func (e *RuleTypeMismatchError) Error() string {
	return fmt.Sprintf("rule %s is %s, requested as %s", e.LogicalID, e.Have, e.Want)
}

func (e *RuleTypeMismatchError) Unwrap() error {
	return ErrRuleTypeMismatch
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsMissingFact returns true if the calculation is indeterminate for lack of input.
func IsMissingFact(err error) bool {
	return errors.Is(err, ErrMissingFact)
}

// IsClientError returns true if the error is caused by the caller's input
// (grunnlag contents or requested date), not by the rule set.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingFact) ||
		errors.Is(err, ErrNoApplicableRuleVersion)
}

// IsNotFound returns true if the error indicates a missing rule or calculation.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownRule) ||
		errors.Is(err, ErrBeregningNotFound)
}
