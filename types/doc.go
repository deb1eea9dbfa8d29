// Package types contains the shared error model used by both execution
// engines. It is the lowest-level package in the module and must not import
// any other agentcore package.
package types
