package nodegraph

import (
	"fmt"
	"iter"
	"slices"
)

// PinType is the type tag of the plain [PinBase] pin.
const PinType = "pin"

// Pin is a typed connection endpoint owned by exactly one node.
//
// Concrete variants embed [PinBase], override TypeTag, and override Encode
// and Decode when they carry extra state. All link bookkeeping lives on the
// embedded base, reachable through Base.
type Pin interface {
	// Base returns the shared pin state.
	Base() *PinBase
	// TypeTag names the variant in serialized records and in lookups
	// such as [NodeBase.PinByType].
	TypeTag() string
	// IsEmpty reports whether this is the [EmptyPin] sentinel.
	IsEmpty() bool
	// Encode writes the pin to a record. The caller fills in Type.
	Encode() PinRecord
	// Decode restores the pin from a record.
	Decode(rec PinRecord) error
}

// PinKey is the identity of a pin for equality and map keys. Two pins with
// the same id and direction compare equal regardless of labels or links.
type PinKey struct {
	ID int
	IO IO
}

// PinBase holds the state every pin variant shares.
//
// Links are stored by pin id, never by reference: ToLinks lists pins this
// pin feeds, FromLinks lists pins feeding this one. The graph keeps the two
// lists mirrored, so for every id B in A's ToLinks, A appears in B's
// FromLinks. Resolving an id back to a pin needs the owning [Graph].
//
// The zero value is not ready for use; build bases with [NewPinBase].
type PinBase struct {
	Label      string  // Display label, also used by [NodeBase.PinByLabel]
	Kind       PinKind // Value category
	IO         IO      // Direction
	LabelColor Color
	BaseColor  Color
	InnerColor Color

	id        int
	nodeID    int
	toLinks   []int
	fromLinks []int
	empty     bool
}

// NewPinBase returns an unattached pin base with default colours.
func NewPinBase(label string, io IO, kind PinKind) PinBase {
	return PinBase{
		Label:      label,
		Kind:       kind,
		IO:         io,
		LabelColor: DefaultLabelColor,
		BaseColor:  DefaultBaseColor,
		InnerColor: DefaultInnerColor,
		id:         NoID,
		nodeID:     NoID,
	}
}

// NewPin returns a plain pin of the base type.
func NewPin(label string, io IO, kind PinKind) *PinBase {
	p := NewPinBase(label, io, kind)
	return &p
}

// EmptyPin is returned by lookups that find nothing. Its ids are [NoID]
// and every mutating method on it is a no-op.
var EmptyPin Pin = &PinBase{id: NoID, nodeID: NoID, empty: true}

// Base returns p.
func (p *PinBase) Base() *PinBase { return p }

// TypeTag returns [PinType].
func (p *PinBase) TypeTag() string { return PinType }

// IsEmpty reports whether p is the empty sentinel.
func (p *PinBase) IsEmpty() bool { return p == nil || p.empty }

// ID returns the pin id, or [NoID] before the owning node joins a graph.
func (p *PinBase) ID() int { return p.id }

// NodeID returns the id of the owning node.
func (p *PinBase) NodeID() int { return p.nodeID }

// Key returns the identity used by [PinBase.Equal].
func (p *PinBase) Key() PinKey { return PinKey{ID: p.id, IO: p.IO} }

// Equal reports whether two pins share id and direction.
func (p *PinBase) Equal(other Pin) bool {
	if other == nil {
		return false
	}
	return p.Key() == other.Base().Key()
}

// =============================================================================
// Link access
// =============================================================================

// To returns the i-th outgoing link id, or [NoID] when i is out of range.
func (p *PinBase) To(i int) int {
	if i < 0 || i >= len(p.toLinks) {
		return NoID
	}
	return p.toLinks[i]
}

// From returns the i-th incoming link id, or [NoID] when i is out of range.
func (p *PinBase) From(i int) int {
	if i < 0 || i >= len(p.fromLinks) {
		return NoID
	}
	return p.fromLinks[i]
}

// ToPin resolves the i-th outgoing link through g. It returns [EmptyPin]
// when i is out of range or the id no longer resolves.
func (p *PinBase) ToPin(i int, g *Graph) Pin {
	return g.FindPin(p.To(i))
}

// FromPin resolves the i-th incoming link through g.
func (p *PinBase) FromPin(i int, g *Graph) Pin {
	return g.FindPin(p.From(i))
}

// ToCount returns the number of outgoing links, counting duplicates.
func (p *PinBase) ToCount() int { return len(p.toLinks) }

// FromCount returns the number of incoming links, counting duplicates.
func (p *PinBase) FromCount() int { return len(p.fromLinks) }

// HasToLinks reports whether the pin feeds anything.
func (p *PinBase) HasToLinks() bool { return len(p.toLinks) > 0 }

// HasFromLinks reports whether anything feeds the pin.
func (p *PinBase) HasFromLinks() bool { return len(p.fromLinks) > 0 }

// ToLinks iterates the outgoing link ids in insertion order.
//
// The sequence reads the live list. Mutating the pin's links while ranging
// is allowed but the iteration then reflects the list as it was when each
// step ran.
func (p *PinBase) ToLinks() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := 0; i < len(p.toLinks); i++ {
			if !yield(p.toLinks[i]) {
				return
			}
		}
	}
}

// FromLinks iterates the incoming link ids in insertion order.
func (p *PinBase) FromLinks() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := 0; i < len(p.fromLinks); i++ {
			if !yield(p.fromLinks[i]) {
				return
			}
		}
	}
}

// ToPins iterates outgoing links resolved through g. Ids that no longer
// resolve yield [EmptyPin].
func (p *PinBase) ToPins(g *Graph) iter.Seq[Pin] {
	return func(yield func(Pin) bool) {
		for id := range p.ToLinks() {
			if !yield(g.FindPin(id)) {
				return
			}
		}
	}
}

// FromPins iterates incoming links resolved through g.
func (p *PinBase) FromPins(g *Graph) iter.Seq[Pin] {
	return func(yield func(Pin) bool) {
		for id := range p.FromLinks() {
			if !yield(g.FindPin(id)) {
				return
			}
		}
	}
}

// =============================================================================
// Link mutation
// =============================================================================

// AddLink records a link from p to other and mirrors it into other's
// incoming list. It returns the index of the new entry in p's outgoing
// list, or [NoID] when p is the empty sentinel.
//
// Nothing stops duplicate links or self links; callers that care should
// check [PinBase.IsLinkedTo] first. When other is [EmptyPin] only the
// outgoing entry is written.
func (p *PinBase) AddLink(other Pin) int {
	if p.IsEmpty() || other == nil {
		return NoID
	}
	o := other.Base()
	p.toLinks = append(p.toLinks, o.id)
	if !other.IsEmpty() {
		o.fromLinks = append(o.fromLinks, p.id)
	}
	return len(p.toLinks) - 1
}

// AddLinkID resolves id through g and links to it. It returns [NoID] when
// the id does not resolve.
func (p *PinBase) AddLinkID(id int, g *Graph) int {
	other := g.FindPin(id)
	if other.IsEmpty() {
		return NoID
	}
	return p.AddLink(other)
}

// RemoveLink removes one occurrence of the link from p to other.
//
// Both halves must be present for the removal to happen: if p lists other
// but other does not list p back, the one-sided entry is left as it is and
// RemoveLink returns false. When other is [EmptyPin] only p's outgoing
// list is searched, using the sentinel's id.
func (p *PinBase) RemoveLink(other Pin) bool {
	if p.IsEmpty() || other == nil {
		return false
	}
	o := other.Base()
	to := slices.Index(p.toLinks, o.id)
	if other.IsEmpty() {
		if to < 0 {
			return false
		}
		p.toLinks = slices.Delete(p.toLinks, to, to+1)
		return true
	}
	from := slices.Index(o.fromLinks, p.id)
	if to < 0 || from < 0 {
		return false
	}
	p.toLinks = slices.Delete(p.toLinks, to, to+1)
	o.fromLinks = slices.Delete(o.fromLinks, from, from+1)
	return true
}

// RemoveLinkID resolves id through g and removes the link to it.
func (p *PinBase) RemoveLinkID(id int, g *Graph) bool {
	other := g.FindPin(id)
	if other.IsEmpty() {
		return false
	}
	return p.RemoveLink(other)
}

// ClearLinks detaches p from every peer. Each peer loses exactly one mirror
// entry per link, then both of p's lists are emptied. Peers that no longer
// resolve through g are skipped.
func (p *PinBase) ClearLinks(g *Graph) {
	if p.IsEmpty() {
		return
	}
	for _, id := range slices.Clone(p.toLinks) {
		if target := g.FindPin(id); !target.IsEmpty() {
			t := target.Base()
			t.fromLinks = removeFirst(t.fromLinks, p.id)
		}
	}
	for _, id := range slices.Clone(p.fromLinks) {
		if source := g.FindPin(id); !source.IsEmpty() {
			s := source.Base()
			s.toLinks = removeFirst(s.toLinks, p.id)
		}
	}
	p.toLinks = nil
	p.fromLinks = nil
}

// IsLinkedTo reports whether other's id is in p's outgoing list.
func (p *PinBase) IsLinkedTo(other Pin) bool {
	return other != nil && slices.Contains(p.toLinks, other.Base().id)
}

// IsLinkedToID reports whether id is in p's outgoing list.
func (p *PinBase) IsLinkedToID(id int) bool {
	return slices.Contains(p.toLinks, id)
}

// IsLinkedFrom reports whether other's id is in p's incoming list.
func (p *PinBase) IsLinkedFrom(other Pin) bool {
	return other != nil && slices.Contains(p.fromLinks, other.Base().id)
}

// IsLinkedFromID reports whether id is in p's incoming list.
func (p *PinBase) IsLinkedFromID(id int) bool {
	return slices.Contains(p.fromLinks, id)
}

func removeFirst(s []int, v int) []int {
	if i := slices.Index(s, v); i >= 0 {
		return slices.Delete(s, i, i+1)
	}
	return s
}

// =============================================================================
// Serialization
// =============================================================================

// Encode writes the shared pin state. Variants call it and then add their
// own Props.
func (p *PinBase) Encode() PinRecord {
	return PinRecord{
		NodeID:     p.nodeID,
		PinID:      p.id,
		Label:      p.Label,
		Kind:       p.Kind,
		IO:         p.IO,
		LabelColor: p.LabelColor,
		BaseColor:  p.BaseColor,
		InnerColor: p.InnerColor,
		ToLinks:    append([]int{}, p.toLinks...),
		FromLinks:  append([]int{}, p.fromLinks...),
	}
}

// Decode restores the shared pin state. The empty sentinel is never
// overwritten.
func (p *PinBase) Decode(rec PinRecord) error {
	if p.IsEmpty() {
		return ErrEmptyTarget
	}
	p.nodeID = rec.NodeID
	p.id = rec.PinID
	p.Label = rec.Label
	p.Kind = rec.Kind
	p.IO = rec.IO
	p.LabelColor = rec.LabelColor
	p.BaseColor = rec.BaseColor
	p.InnerColor = rec.InnerColor
	p.toLinks = append([]int(nil), rec.ToLinks...)
	p.fromLinks = append([]int(nil), rec.FromLinks...)
	return nil
}

// String renders the pin for debugging, for example
// "pin#3(value output float node=1 to=[5] from=[])".
func (p *PinBase) String() string {
	if p.IsEmpty() {
		return "pin(empty)"
	}
	return fmt.Sprintf("pin#%d(%s %s %s node=%d to=%v from=%v)",
		p.id, p.Label, p.IO, p.Kind, p.nodeID, p.toLinks, p.fromLinks)
}

var _ Pin = (*PinBase)(nil)
