// Package server streams a memory host's committed tree to WebSocket
// viewers.
//
// A Hub observes the host. Every applied batch is translated into protocol
// patches and broadcast as one patches frame with the next sequence
// number. Nodes are announced with a Create patch, followed by their
// attributes and listeners, the first time they are attached, so a viewer
// never sees a node id it cannot resolve. A viewer that connects receives
// a snapshot frame describing the current tree before any patches frame.
//
// Render failures reported to Hub.Error go out as error frames. The tree
// a viewer holds stays on the last successful commit.
//
// Mirror is the reference viewer. It applies snapshot and patches frames
// and reproduces the host tree as a memory.Tree, which is what
// `fibers watch` prints.
//
// # HTTP Routes
//
//	GET /         HTML page with the current tree
//	GET /tree     current tree as HTML, or JSON with ?format=json
//	GET /ws       WebSocket stream of binary frames
//	GET /metrics  Prometheus metrics
//	GET /healthz  liveness probe
//
// # Consistency
//
// The hub must observe batches and build snapshots on the goroutine that
// drives the engine, otherwise a viewer could receive a batch its snapshot
// already contains. Pass idle.Loop.Post as the Exec option when the engine
// runs on an idle.Loop.
package server
