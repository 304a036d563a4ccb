// Package ci schedules runs and attaches bounded cause chains to them.
//
// A Scheduler numbers runs per project, applies its cause.Policy to the
// causes a run was triggered with, and persists the result. Completed runs
// implement cause.Build, so a downstream trigger snapshots them with
// Scheduler.Upstream:
//
//	a1, _ := sched.Schedule(ctx, "a", cause.UserCause("alice"))
//	up, _ := sched.Upstream(a1)
//	b1, _ := sched.Schedule(ctx, "b", up)
//
// Every chain a Scheduler stores is within its policy. Runs read back with
// Lookup keep whatever chain was stored, including chains written under a
// looser policy by an older release.
package ci
