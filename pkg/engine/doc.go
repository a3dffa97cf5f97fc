// Package engine validates parsed compose documents and turns clean ones
// into resolved models ready for rendering, locking and reporting.
//
// # Overview
//
// The engine is the second half of the document pipeline. pkg/compose
// guarantees a document is structurally sound; this package decides
// whether it describes a coherent, startable topology:
//
//  1. Reference integrity - every network, storage pool, profile and
//     depends_on name resolves against the document
//  2. Self dependencies - no container depends on itself
//  3. Cycle detection - depends_on forms a directed acyclic graph
//  4. Device shape - required device fields are present and non-empty,
//     on containers and on profile definitions
//  5. Resource sanity - cpu and memory limit values parse and are positive
//
// All five checks run in one pass and their violations accumulate, so a
// single validation reports every problem it can see.
//
// # Violations
//
// Semantic defects are Violation values, not errors: they carry typed
// fields (which container, which field, which target) and a stable kind
// from ViolationKinds. The Violations slice implements error for callers
// that want to treat an invalid document as a failure:
//
//	model, violations := engine.Resolve(doc)
//	if violations != nil {
//	    for _, v := range violations {
//	        fmt.Println(v.String())
//	    }
//	}
//
// # Resolved Models
//
// Resolve returns a model only for documents with zero violations. The
// model bundles the document with everything downstream consumers need:
//
//   - StartPlan: total start order plus concurrency levels. Dependencies
//     always precede dependents; ties break by descending boot_priority,
//     then name, so the plan is reproducible bit for bit.
//   - Effective configuration: each container's config, environment and
//     devices after profile application (profiles left to right, the
//     container's own values last, devices replaced whole by name).
//
// Resolving the same document twice yields identical models; there is no
// hidden state and no randomness.
//
// # Walking a Plan
//
// Walker executes an action once per container in plan order. Steps in
// the same level run concurrently under a parallelism bound, a step whose
// dependency failed is skipped, and nothing retries:
//
//	walker := engine.NewWalker(engine.WalkOptions{MaxParallel: 4})
//	report, err := walker.Walk(ctx, model, func(ctx context.Context, name string) error {
//	    return start(ctx, name)
//	})
//
// The report accounts for every container in the plan; ordinary step
// failures surface there rather than as a walk error.
//
// # Errors
//
// Operational failures (as opposed to semantic violations) are classified
// EngineError values with class, code, resource and operation context:
//
//	if engine.IsValidation(err) {
//	    // caller misuse, e.g. unknown container name
//	}
//
// # Determinism
//
// Every traversal in this package iterates containers in sorted name
// order and never leaks map iteration order into results. Violation
// lists, start plans and effective configurations are all reproducible
// for a given document.
package engine
