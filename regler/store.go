/*
store.go - Calculation log (persisted audit artifacts)

PURPOSE:
  Every benefit figure that leaves the engine is stored together with the
  trace that produced it and the legal reference it rests on. The log is what
  a case worker opens when asked "why this number", and what an appeal is
  checked against.

APPEND-ONLY CONTRACT:
  - Append(): the ONLY write operation
  - NO Update() or Delete() methods exist
  A corrected calculation is a new Beregning, never an edit.

INTEGRITY:
  Each Beregning carries the fingerprint of its trace. Verify() recomputes
  it from the stored trace, so a record that was altered outside the engine
  is detected on read.

IMPLEMENTATIONS:
  - regler/store/memory.go: In-memory for tests and dev
  - store/sqlite/sqlite.go: SQLite
*/
package regler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrFingerprintMismatch is returned by Verify when a stored trace no longer
// matches its fingerprint.
var ErrFingerprintMismatch = errors.New("trace fingerprint mismatch")

// Beregning is one persisted calculation.
type Beregning struct {
	ID                 string
	LogicalID          string // e.g. BP-BELOEP
	Ytelse             string // e.g. barnepensjon
	Virkningstidspunkt Dato
	Reference          string          // reference id of the resolved variant
	Value              json.RawMessage // same encoding as Trace.Value in the node
	Trace              Node
	Fingerprint        string
	CreatedAt          time.Time
}

// NewBeregning captures trace as a loggable calculation.
func NewBeregning[V any](id, logicalID, ytelse string, virkningstidspunkt Dato, trace Trace[V], createdAt time.Time) (Beregning, error) {
	n, err := trace.Node()
	if err != nil {
		return Beregning{}, err
	}
	fp, err := Fingerprint(n)
	if err != nil {
		return Beregning{}, err
	}
	return Beregning{
		ID:                 id,
		LogicalID:          logicalID,
		Ytelse:             ytelse,
		Virkningstidspunkt: virkningstidspunkt,
		Reference:          n.Reference,
		Value:              n.Value,
		Trace:              n,
		Fingerprint:        fp,
		CreatedAt:          createdAt,
	}, nil
}

// Clone returns a deep copy. Stores hand out clones so callers cannot
// change a logged calculation in place.
func (b Beregning) Clone() Beregning {
	c := b
	c.Value = bytes.Clone(b.Value)
	c.Trace = b.Trace.Clone()
	return c
}

// Verify recomputes the trace fingerprint and compares it with the stored one.
func (b Beregning) Verify() error {
	fp, err := Fingerprint(b.Trace)
	if err != nil {
		return err
	}
	if fp != b.Fingerprint {
		return fmt.Errorf("%w: beregning %s", ErrFingerprintMismatch, b.ID)
	}
	return nil
}

// BeregningStore persists calculations. Implementations must be safe for concurrent use.
type BeregningStore interface {
	// Append stores b. Fails with ErrDuplicateBeregning if b.ID exists.
	Append(ctx context.Context, b Beregning) error

	// Get returns the calculation with id, or ErrBeregningNotFound.
	Get(ctx context.Context, id string) (Beregning, error)

	// ListByLogicalID returns calculations of one logical rule, oldest first.
	ListByLogicalID(ctx context.Context, logicalID string) ([]Beregning, error)
}
