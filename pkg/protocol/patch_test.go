package protocol

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	fberrors "github.com/vango-dev/fibers/internal/errors"
)

type label string

func TestPatchesRoundTrip(t *testing.T) {
	in := &PatchesFrame{
		Seq: 42,
		Patches: []Patch{
			{Op: PatchCreate, ID: 2, Kind: NodeElement, Tag: "div"},
			{Op: PatchSetProp, ID: 2, Key: "id", Value: "foo"},
			{Op: PatchSetProp, ID: 2, Key: "tabindex", Value: 3},
			{Op: PatchSetProp, ID: 2, Key: "ratio", Value: float32(0.5)},
			{Op: PatchSetProp, ID: 2, Key: "hidden", Value: false},
			{Op: PatchSetProp, ID: 2, Key: "role", Value: label("main")},
			{Op: PatchSetProp, ID: 2, Key: "empty", Value: nil},
			{Op: PatchListen, ID: 2, Key: "click"},
			{Op: PatchAppend, ID: 2, Parent: 1},
			{Op: PatchCreate, ID: 3, Kind: NodeText, Tag: "#text"},
			{Op: PatchInsertBefore, ID: 3, Parent: 2, Before: 4},
			{Op: PatchRemoveProp, ID: 2, Key: "hidden"},
			{Op: PatchUnlisten, ID: 2, Key: "click"},
			{Op: PatchRemove, ID: 3, Parent: 2},
		},
	}

	out, err := DecodePatches(EncodePatches(in))
	if err != nil {
		t.Fatalf("DecodePatches() error: %v", err)
	}

	// Values come back in their wire types.
	want := *in
	want.Patches = append([]Patch(nil), in.Patches...)
	want.Patches[2].Value = int64(3)
	want.Patches[3].Value = float64(0.5)
	want.Patches[5].Value = "main"

	if diff := cmp.Diff(&want, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodePatchesErrors(t *testing.T) {
	good := EncodePatches(&PatchesFrame{Seq: 1, Patches: []Patch{
		{Op: PatchSetProp, ID: 1, Key: "a", Value: "b"},
	}})

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"truncated", good[:len(good)-1], nil},
		{"unknown op", []byte{0x01, 0x01, 0x7f, 0x01}, ErrInvalidPatchOp},
		{"unknown value", []byte{0x01, 0x01, byte(PatchSetProp), 0x01, 0x01, 'k', 0x09}, ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePatches(tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, fberrors.Code("E030")) {
				t.Errorf("error %v is not E030", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("error %v does not wrap %v", err, tt.want)
			}
		})
	}
}

func TestPatchesFrameWrapsPayload(t *testing.T) {
	pf := &PatchesFrame{Seq: 7, Patches: []Patch{{Op: PatchRemove, ID: 5, Parent: 1}}}
	f, err := DecodeFrame(pf.Frame(FramePatches).Encode())
	if err != nil {
		t.Fatalf("DecodeFrame() error: %v", err)
	}
	got, err := DecodePatches(f.Payload)
	if err != nil {
		t.Fatalf("DecodePatches() error: %v", err)
	}
	if diff := cmp.Diff(pf, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestErrorMessage(t *testing.T) {
	src := fberrors.New("E010").WithDetail("<b>")
	em := NewError(src)
	if em.Code != "E010" {
		t.Errorf("Code = %q, want E010", em.Code)
	}

	f, err := DecodeFrame(em.Frame().Encode())
	if err != nil || f.Type != FrameError {
		t.Fatalf("DecodeFrame() = %v, %v", f, err)
	}
	got, err := DecodeErrorMessage(f.Payload)
	if err != nil {
		t.Fatalf("DecodeErrorMessage() error: %v", err)
	}
	if diff := cmp.Diff(em, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if NewError(nil) != nil {
		t.Error("NewError(nil) should be nil")
	}
	if plain := NewError(errors.New("x")); plain.Code != "" || plain.Message != "x" {
		t.Errorf("plain error = %+v", plain)
	}
}

func TestPatchString(t *testing.T) {
	tests := map[string]Patch{
		"Create #2 <div>":                 {Op: PatchCreate, ID: 2, Tag: "div"},
		"InsertBefore #3 in #1 before #4": {Op: PatchInsertBefore, ID: 3, Parent: 1, Before: 4},
		"SetProp #2 id=x":                 {Op: PatchSetProp, ID: 2, Key: "id", Value: "x"},
		"Listen #2 click":                 {Op: PatchListen, ID: 2, Key: "click"},
	}
	for want, p := range tests {
		if got := p.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
