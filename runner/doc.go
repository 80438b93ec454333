// Package runner executes service units with their ecosystem's native tools.
//
// The main components are:
//   - StepExecutor: runs one native command as a child process with a timeout,
//     capturing its output and collecting any structured report files
//   - ServiceRunner: applies the has-tests check, executes a service's plan and
//     turns the executions into a ServiceResult, never failing outright
//   - ParallelExecutor: fans service units out to a bounded pool of workers and
//     hands each completed result to a single collector
//
// Failures local to one service always end up as recorded outcomes; only the
// caller decides whether a run as a whole failed.
package runner
