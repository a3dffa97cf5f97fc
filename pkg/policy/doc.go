// Package policy provides Open Policy Agent (OPA) guardrails for
// incus-composer documents.
//
// Policies are organizational rules layered on top of the validator's
// fixed semantic checks. The validator answers "is this document
// coherent"; policies answer "is this topology acceptable here". A
// policy violation never changes the validation result, it only blocks
// the operation when its severity is error or critical.
//
// # Architecture
//
// The package has three parts:
//
//  1. Engine - compiles Rego policies and evaluates them per container
//  2. Loader - reads .rego and .json policy files, with hot reload
//  3. Built-in policies - guardrails shipped with the tool
//
// # Usage
//
// Creating an engine and evaluating a resolved model:
//
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//
//	result, err := eng.Evaluate(ctx, model)
//	if err != nil {
//	    return err
//	}
//	if !result.Allowed {
//	    for _, v := range result.Violations {
//	        fmt.Printf("%s (%s): %s\n", v.Policy, v.Severity, v.Message)
//	    }
//	}
//
// Loading custom policies:
//
//	err = eng.LoadPolicies(ctx, []string{"policies/", "extra.rego"})
//
// # Built-in policies
//
//  1. container-naming - container names must be valid DNS labels
//  2. vm-memory-limit - virtual machines must declare a memory limit
//  3. privileged-containers - security.privileged=true is denied
//  4. nic-hwaddr-format - declared MAC addresses must be well formed
//
// # Policy input
//
// Each policy evaluates once per container. The input carries the
// container's declaration fields plus its effective configuration, so
// rules see values contributed by profiles:
//
//	package org.policies.images
//
//	import rego.v1
//
//	deny contains violation if {
//	    input.container
//	    not startswith(input.container.image_server, "images:")
//	    violation := {
//	        "message": sprintf("container %s pulls from an unapproved remote", [input.container.name]),
//	        "severity": "error",
//	        "container": input.container.name,
//	    }
//	}
//
// A deny result may be a plain string or an object with message,
// severity and container keys. Missing keys fall back to the policy's
// defaults.
//
// # Severity levels
//
//  - info: informational findings
//  - warning: findings to review, never blocking
//  - error: blocks the result
//  - critical: blocks the result
//
// # Hot reload
//
// The loader can watch policy paths and signal changes, debounced:
//
//	loader := policy.NewLoader(logger)
//	err = loader.Watch(ctx, paths, func() error {
//	    return eng.ReloadPolicies(ctx, paths)
//	})
package policy
