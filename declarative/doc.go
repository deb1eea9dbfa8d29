// Package declarative loads behavior trees and state machines from YAML or
// JSON definitions. Structure lives in the file; behavior stays in Go:
// definitions reference actions, conditions and guards by name, resolved
// against functions registered on a Factory.
package declarative
