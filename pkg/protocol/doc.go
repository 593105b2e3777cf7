// Package protocol implements the binary wire format used to stream
// committed host mutations to remote viewers.
//
// # Wire Format
//
// Every message is a frame with a 6-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (4 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameSnapshot (0x01): the whole tree, as patches from an empty mirror
//   - FramePatches (0x02): one committed batch
//   - FrameError (0x05): a failed render pass
//
// # Encoding
//
//   - Varint: compact encoding for node IDs, counts and sequence numbers
//   - ZigZag: signed integers encoded as unsigned varints
//   - Length-prefixed: strings prefixed with their varint length
//   - Tagged values: one type byte followed by the value
//
// # Patches
//
// A patch mirrors one host mutation. Nodes are addressed by numeric ID. A
// node is announced with PatchCreate before it is first attached; its
// initial attributes and listeners follow as SetProp and Listen patches.
//
//	[Op: 1 byte][ID: varint][op-specific fields]
//
// A PatchesFrame carries a sequence number and a batch of patches. Viewers
// apply frames in sequence order; Mirror is a reference viewer.
package protocol
