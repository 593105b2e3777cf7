package protocol

import (
	"errors"
	"fmt"

	fberrors "github.com/vango-dev/fibers/internal/errors"
)

// PatchOp is the type of patch operation.
type PatchOp uint8

// Patch operation constants.
const (
	PatchCreate       PatchOp = 0x01 // Announce a detached node
	PatchAppend       PatchOp = 0x02 // Attach as last child
	PatchInsertBefore PatchOp = 0x03 // Attach before a sibling
	PatchRemove       PatchOp = 0x04 // Detach from parent
	PatchSetProp      PatchOp = 0x05 // Set attribute
	PatchRemoveProp   PatchOp = 0x06 // Remove attribute
	PatchListen       PatchOp = 0x07 // Subscribe to event
	PatchUnlisten     PatchOp = 0x08 // Unsubscribe from event
)

// String returns the string representation of the patch operation.
func (op PatchOp) String() string {
	switch op {
	case PatchCreate:
		return "Create"
	case PatchAppend:
		return "Append"
	case PatchInsertBefore:
		return "InsertBefore"
	case PatchRemove:
		return "Remove"
	case PatchSetProp:
		return "SetProp"
	case PatchRemoveProp:
		return "RemoveProp"
	case PatchListen:
		return "Listen"
	case PatchUnlisten:
		return "Unlisten"
	default:
		return "Unknown"
	}
}

// NodeKind distinguishes element nodes from text nodes in Create patches.
type NodeKind uint8

const (
	NodeElement NodeKind = 0
	NodeText    NodeKind = 1
)

// ErrInvalidPatchOp is returned when decoding an unknown patch op.
var ErrInvalidPatchOp = errors.New("protocol: invalid patch op")

// Patch is one host mutation on the wire.
type Patch struct {
	Op     PatchOp
	ID     uint64   // Target node
	Parent uint64   // Append, InsertBefore, Remove
	Before uint64   // InsertBefore
	Kind   NodeKind // Create
	Tag    string   // Create
	Key    string   // Prop or event name
	Value  any      // SetProp; decoded as nil, string, int64, float64 or bool
}

// String returns a short description for logs and test failures.
func (p Patch) String() string {
	switch p.Op {
	case PatchCreate:
		return fmt.Sprintf("Create #%d <%s>", p.ID, p.Tag)
	case PatchAppend:
		return fmt.Sprintf("Append #%d to #%d", p.ID, p.Parent)
	case PatchInsertBefore:
		return fmt.Sprintf("InsertBefore #%d in #%d before #%d", p.ID, p.Parent, p.Before)
	case PatchRemove:
		return fmt.Sprintf("Remove #%d from #%d", p.ID, p.Parent)
	case PatchSetProp:
		return fmt.Sprintf("SetProp #%d %s=%v", p.ID, p.Key, p.Value)
	default:
		return fmt.Sprintf("%s #%d %s", p.Op, p.ID, p.Key)
	}
}

// PatchesFrame is a batch of patches with a sequence number.
type PatchesFrame struct {
	Seq     uint64
	Patches []Patch
}

// Frame wraps the encoded batch in a frame of type ft.
func (pf *PatchesFrame) Frame(ft FrameType) *Frame {
	return NewFrame(ft, EncodePatches(pf))
}

// EncodePatches encodes a patches frame payload.
func EncodePatches(pf *PatchesFrame) []byte {
	e := NewEncoder()
	EncodePatchesTo(e, pf)
	return e.Bytes()
}

// EncodePatchesTo encodes a patches frame payload using e.
func EncodePatchesTo(e *Encoder, pf *PatchesFrame) {
	e.WriteUvarint(pf.Seq)
	e.WriteUvarint(uint64(len(pf.Patches)))
	for i := range pf.Patches {
		encodePatch(e, &pf.Patches[i])
	}
}

func encodePatch(e *Encoder, p *Patch) {
	e.WriteByte(byte(p.Op))
	e.WriteUvarint(p.ID)

	switch p.Op {
	case PatchCreate:
		e.WriteByte(byte(p.Kind))
		e.WriteString(p.Tag)
	case PatchAppend, PatchRemove:
		e.WriteUvarint(p.Parent)
	case PatchInsertBefore:
		e.WriteUvarint(p.Parent)
		e.WriteUvarint(p.Before)
	case PatchSetProp:
		e.WriteString(p.Key)
		writeValue(e, p.Value)
	case PatchRemoveProp, PatchListen, PatchUnlisten:
		e.WriteString(p.Key)
	}
}

// DecodePatches decodes a patches frame payload. Errors are E030 coded.
func DecodePatches(data []byte) (*PatchesFrame, error) {
	pf, err := DecodePatchesFrom(NewDecoder(data))
	if err != nil {
		return nil, fberrors.New("E030").Wrap(err)
	}
	return pf, nil
}

// DecodePatchesFrom decodes a patches frame payload from d.
func DecodePatchesFrom(d *Decoder) (*PatchesFrame, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCount()
	if err != nil {
		return nil, err
	}

	patches := make([]Patch, count)
	for i := range patches {
		if err := decodePatch(d, &patches[i]); err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}
	}
	return &PatchesFrame{Seq: seq, Patches: patches}, nil
}

func decodePatch(d *Decoder, p *Patch) error {
	op, err := d.ReadByte()
	if err != nil {
		return err
	}
	p.Op = PatchOp(op)

	if p.ID, err = d.ReadUvarint(); err != nil {
		return err
	}

	switch p.Op {
	case PatchCreate:
		var kind byte
		if kind, err = d.ReadByte(); err != nil {
			return err
		}
		p.Kind = NodeKind(kind)
		p.Tag, err = d.ReadString()

	case PatchAppend, PatchRemove:
		p.Parent, err = d.ReadUvarint()

	case PatchInsertBefore:
		if p.Parent, err = d.ReadUvarint(); err != nil {
			return err
		}
		p.Before, err = d.ReadUvarint()

	case PatchSetProp:
		if p.Key, err = d.ReadString(); err != nil {
			return err
		}
		p.Value, err = readValue(d)

	case PatchRemoveProp, PatchListen, PatchUnlisten:
		p.Key, err = d.ReadString()

	default:
		return fmt.Errorf("%w: 0x%02x", ErrInvalidPatchOp, op)
	}
	return err
}
