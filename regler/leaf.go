package regler

// =============================================================================
// LEAF RULES - Constants and fact accessors
// =============================================================================

type constantRule[G, V any] struct {
	header Header
	value  V
}

// Constant returns a rule that ignores its Grunnlag and always yields value.
// Used for legally fixed parameters such as maximum trygdetid.
func Constant[G, V any](effectiveFrom Dato, description string, reference Reference, value V) Rule[G, V] {
	h := NewHeader(effectiveFrom, description, reference)
	h.validate()
	return constantRule[G, V]{header: h, value: value}
}

func (r constantRule[G, V]) Header() Header { return r.header }
func (r constantRule[G, V]) Kind() Kind     { return KindConstant }

func (r constantRule[G, V]) evaluate(G) (Trace[V], error) {
	return Trace[V]{Header: r.header, Kind: KindConstant, Value: r.value}, nil
}

// factRule reads a record out of the Grunnlag, then a field out of the record.
type factRule[G, R, V any] struct {
	header        Header
	extractRecord func(G) *R
	extractField  func(R) (V, bool)
}

// FactFromBase returns a rule that reads extractField(*extractRecord(g)).
// A nil record fails evaluation with MissingFactError; there is no default.
func FactFromBase[G, R, V any](effectiveFrom Dato, description string, reference Reference,
	extractRecord func(G) *R, extractField func(R) V) Rule[G, V] {
	return FactOptional(effectiveFrom, description, reference, extractRecord,
		func(r R) (V, bool) { return extractField(r), true })
}

// FactOptional is FactFromBase for fields that may themselves be absent,
// such as pointer or map fields. extractField reports presence.
func FactOptional[G, R, V any](effectiveFrom Dato, description string, reference Reference,
	extractRecord func(G) *R, extractField func(R) (V, bool)) Rule[G, V] {
	h := NewHeader(effectiveFrom, description, reference)
	h.validate()
	return factRule[G, R, V]{header: h, extractRecord: extractRecord, extractField: extractField}
}

func (r factRule[G, R, V]) Header() Header { return r.header }
func (r factRule[G, R, V]) Kind() Kind     { return KindFact }

func (r factRule[G, R, V]) evaluate(g G) (Trace[V], error) {
	rec := r.extractRecord(g)
	if rec == nil {
		return Trace[V]{}, r.missing()
	}
	v, ok := r.extractField(*rec)
	if !ok {
		return Trace[V]{}, r.missing()
	}
	return Trace[V]{Header: r.header, Kind: KindFact, Value: v}, nil
}

func (r factRule[G, R, V]) missing() error {
	return &MissingFactError{Reference: r.header.Reference, Description: r.header.Description}
}
