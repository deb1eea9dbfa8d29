// Package behaviortree implements a reactive behavior tree engine generic
// over a caller-supplied context type.
//
// Every node returns one of three statuses: StatusSuccess, StatusFailure or
// StatusRunning. StatusRunning means "call me again to continue", not an
// error. Leaves convert user function errors to StatusFailure; the error
// return of Node.Execute carries only cancellation and escaped
// infrastructure failures, and Executor is the top-level fault boundary
// that turns even those into a Failure result.
package behaviortree
