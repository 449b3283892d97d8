/*
trace.go - Serialized trace shape and helpers

WIRE SHAPE:
  {
    "reference":     "BP-BEREGNING-1967-TRYGDETIDSFAKTOR",
    "description":   "Trygdetidsfaktor",
    "effectiveFrom": "1967-01-01",
    "value":         "0.7000",
    "children":      [ <same shape>, ... ]
  }

  Beregningstall values are JSON strings (scale preserved). Other value
  types use their own JSON encoding.

REPLAY:
  Node is the decoded, untyped form. Value stays as raw JSON, so decoding
  a serialized trace into a Node and encoding it again yields the same bytes.

FINGERPRINT:
  Fingerprint hashes the RFC 8785 canonical form of the trace. Persisted
  calculations keep it so a replayed trace can be checked against the
  original without comparing byte layouts.
*/
package regler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gowebpki/jcs"
)

// Node is the untyped, serializable form of a trace.
type Node struct {
	Reference     string          `json:"reference"`
	Description   string          `json:"description"`
	EffectiveFrom Dato            `json:"effectiveFrom"`
	Value         json.RawMessage `json:"value"`
	Children      []Node          `json:"children"`
}

// Node converts the trace to its serializable form.
func (t Trace[V]) Node() (Node, error) {
	value, err := json.Marshal(t.Value)
	if err != nil {
		return Node{}, fmt.Errorf("encode value of %s: %w", t.Header.Reference.ID, err)
	}
	n := Node{
		Reference:     t.Header.Reference.ID,
		Description:   t.Header.Description,
		EffectiveFrom: t.Header.EffectiveFrom,
		Value:         value,
		Children:      make([]Node, 0, len(t.Children)),
	}
	for _, c := range t.Children {
		cn, err := c.Node()
		if err != nil {
			return Node{}, err
		}
		n.Children = append(n.Children, cn)
	}
	return n, nil
}

func (t Trace[V]) MarshalJSON() ([]byte, error) {
	n, err := t.Node()
	if err != nil {
		return nil, err
	}
	return json.Marshal(n)
}

// UnmarshalJSON keeps Children non-nil so that an empty list re-encodes as [].
func (n *Node) UnmarshalJSON(data []byte) error {
	type plain Node
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Children == nil {
		p.Children = []Node{}
	}
	*n = Node(p)
	return nil
}

// Clone returns a deep copy sharing no slices with n.
func (n Node) Clone() Node {
	c := n
	c.Value = bytes.Clone(n.Value)
	if n.Children != nil {
		c.Children = make([]Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// DecodeNode parses a serialized trace.
func DecodeNode(data []byte) (Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return Node{}, fmt.Errorf("decode trace: %w", err)
	}
	return n, nil
}

// References lists the distinct reference ids in the tree, depth first,
// root first. This is the set of provisions a calculation relied on.
func (n Node) References() []string {
	seen := make(map[string]bool)
	var out []string
	var walk func(Node)
	walk = func(n Node) {
		if !seen[n.Reference] {
			seen[n.Reference] = true
			out = append(out, n.Reference)
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(n)
	return out
}

// Find returns the first node with the given reference id, depth first.
func (n Node) Find(referenceID string) (Node, bool) {
	if n.Reference == referenceID {
		return n, true
	}
	for _, c := range n.Children {
		if found, ok := c.Find(referenceID); ok {
			return found, true
		}
	}
	return Node{}, false
}

// Explain writes an indented, human-readable rendering for case workers:
//
//	BP-BEREGNING-1967-TRYGDETIDSFAKTOR = 0.7000  Trygdetidsfaktor (fra 1967-01-01)
//	  MAKS-TRYGDETID = 40  Maksimal trygdetid (fra 1967-01-01)
func (n Node) Explain(w io.Writer) error {
	return n.explain(w, 0)
}

func (n Node) explain(w io.Writer, depth int) error {
	value := string(n.Value)
	var s string
	if err := json.Unmarshal(n.Value, &s); err == nil {
		value = s
	}
	if _, err := fmt.Fprintf(w, "%s%s = %s  %s (fra %s)\n",
		strings.Repeat("  ", depth), n.Reference, value, n.Description, n.EffectiveFrom); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := c.explain(w, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// Fingerprint returns the hex SHA-256 of the canonical (RFC 8785) JSON of v.
// v is typically a Trace or a Node; both give the same fingerprint.
func Fingerprint(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("fingerprint: canonicalize: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
