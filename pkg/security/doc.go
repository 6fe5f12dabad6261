// Package security provides validation, sanitization, and limits for the jobstore package.
//
// This package includes:
//   - Validation of job/trigger keys, job types and calendar names
//   - Error message sanitization before messages reach listeners or logs
//   - Clamping of acquisition batch sizes
//
// Most users should import the root package github.com/jdziat/simple-durable-jobstore
// which re-exports these functions.
package security
