// Package schedule computes fire times for trigger schedules.
//
// This package includes:
//   - Evaluator, the core.ScheduleEvaluator for every schedule variant
//   - Simple repeat, cron, calendar-interval and daily-time-interval rules,
//     including their misfire instructions
//   - Builder for assembling triggers with their first fire time computed
//
// Cron expressions use six fields with optional seconds, in the style of
// "0 30 9 * * MON-FRI" or "30 9 * * *", plus descriptors such as "@daily".
//
// Most users should import the root package github.com/jdziat/simple-durable-jobstore
// which re-exports these functions.
package schedule
