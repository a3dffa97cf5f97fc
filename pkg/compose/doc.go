// Package compose defines the incus-composer document model and its
// strict parsing front ends.
//
// # Overview
//
// The compose package turns a declarative topology document into a typed,
// immutable model: containers and virtual machines, the networks, storage
// pools, and profiles they reference, the devices attached to them, and
// the dependency edges between them. Semantic validation of the model
// (reference integrity, cycles, start ordering) lives in pkg/engine; this
// package only guarantees the document is structurally well formed.
//
// # Features
//
//   - Strict YAML decoding over the yaml.Node tree: every structural error
//     carries a document path and the source line/column
//   - Unknown and duplicate fields rejected at every nesting level
//   - CUE front end with an embedded closed schema
//   - Starlark front end for programmatic documents
//   - Typed device variants (disk, nic, proxy, gpu, usb) behind a single
//     Device interface
//   - Defaults applied once, during construction
//
// # Document Structure
//
// A minimal document:
//
//	version: "1.0"
//	containers:
//	  web:
//	    image: ubuntu/22.04
//	    networks: [frontend]
//	    depends_on: [db]
//	  db:
//	    image: ubuntu/22.04
//	    memory:
//	      limit: "2GiB"
//	networks:
//	  frontend:
//	    type: bridge
//	    config:
//	      ipv4.address: "10.10.10.1/24"
//
// # Error Handling
//
// Structural errors are fatal and reported one at a time, each satisfying
// the ParseError interface:
//
//	doc, err := compose.Parse(data)
//	var perr compose.ParseError
//	if errors.As(err, &perr) {
//	    line, col := perr.Position()
//	    fmt.Printf("%s:%d:%d: %v\n", path, line, col, perr)
//	}
//
// Missing per-variant device fields are deliberately not structural
// errors: the semantic validator reports them as accumulated violations so
// a single run surfaces every incomplete device.
//
// # Front Ends
//
// Load selects the front end by file extension. .cue documents are
// validated against the embedded schema and exported; .star programs are
// evaluated under a timeout with load() disabled and must define a global
// compose dict. Both converge on the same strict decode path as plain
// YAML, so defaults and error semantics never diverge between front ends.
//
// # Thread Safety
//
// Parsed documents are immutable; share them freely. Parse, Load, and
// Marshal are safe for concurrent use.
package compose
