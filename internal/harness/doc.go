// Package harness runs trigger scenarios against the scheduler and checks
// the cause chains it produces.
//
// A scenario is a YAML file listing trigger steps and assertions:
//
//	name: deeply_nested
//	description: alternating upstream triggers between two projects
//	steps:
//	  - repeat: 15
//	    steps:
//	      - trigger: a
//	        as: a
//	        causes:
//	          - {kind: upstream, ref: b, optional: true}
//	      - trigger: b
//	        as: b
//	        causes:
//	          - {kind: upstream, ref: a}
//	assertions:
//	  - {type: contains_build, run: "b#5", build: "a#1"}
//	  - {type: max_depth, run: b, max: 10}
//
// Each scenario runs against a fresh in-memory store with a deterministic
// clock and sequential run IDs, so the same scenario always produces the
// same chains. RunWithGolden compares those chains against golden files
// in testdata/golden.
//
// Step fields:
//   - trigger: project to schedule; "{n}" is replaced by the repetition
//     index, starting at 1
//   - as: alias the scheduled run is recorded under
//   - repeat: number of times to run the step (or its nested steps)
//   - steps: nested steps, making the step a block
//   - causes: the causes the run is triggered with
//
// Cause kinds are manual, user, timer, remote, scm and upstream. An
// upstream cause references a run by alias (the latest run recorded under
// it) or as "project#number". With all: true it expands to one upstream
// cause per run recorded under the alias; with optional: true an
// unresolved reference is skipped.
//
// Assertion types:
//   - max_upstream_nodes: upstream causes at every level <= max
//   - max_depth: upstream nesting <= max
//   - max_roots: root causes <= max
//   - contains_build: the chain references build at some level (absent
//     inverts the check)
//   - renders: the tree rendering contains text
package harness
