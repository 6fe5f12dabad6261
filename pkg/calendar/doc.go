// Package calendar provides calendars that exclude time from trigger schedules.
//
// This package includes:
//   - Holiday: excludes whole dates
//   - Weekly: excludes days of the week
//   - Daily: excludes a time-of-day range (or everything outside it)
//   - Cron: excludes instants matched by a cron expression
//   - Registry: the core.TypeLoader that persists calendars as kind + JSON
//
// Most users should import the root package github.com/jdziat/simple-durable-jobstore
// which re-exports these functions.
package calendar
