// Package core provides the fundamental types and interfaces for the jobstore package.
//
// This package contains:
//   - Job and trigger keys, group matchers and the job/trigger data models
//   - The sealed Schedule union carried by every trigger
//   - The trigger state machine and its external projection
//   - Storage, Signaler, TypeLoader and ScheduleEvaluator contracts
//   - Event and error types
//
// Most users should import the root package github.com/jdziat/simple-durable-jobstore
// instead of this package directly.
package core
