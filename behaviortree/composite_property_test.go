package behaviortree

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func statusFromInt(n int) Status {
	switch n % 3 {
	case 0:
		return StatusSuccess
	case 1:
		return StatusFailure
	default:
		return StatusRunning
	}
}

func nodesFromInts(ns []int) []Node[*blackboard] {
	nodes := make([]Node[*blackboard], len(ns))
	for i, n := range ns {
		nodes[i] = &stubNode{name: "child", script: []Status{statusFromInt(n)}}
	}
	return nodes
}

func TestProperty_SequenceFoldsLeftToRight(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("sequence result is the first non-success child status", prop.ForAll(
		func(ns []int) bool {
			status, err := NewSequence("seq", nodesFromInts(ns)...).Execute(context.Background(), &blackboard{})
			if err != nil {
				return false
			}
			expected := StatusSuccess
			for _, n := range ns {
				if s := statusFromInt(n); s != StatusSuccess {
					expected = s
					break
				}
			}
			return status == expected
		},
		gen.SliceOf(gen.IntRange(0, 2)),
	))

	properties.TestingRun(t)
}

func TestProperty_SelectorFoldsLeftToRight(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("selector result is the first non-failure child status", prop.ForAll(
		func(ns []int) bool {
			status, err := NewSelector("sel", nodesFromInts(ns)...).Execute(context.Background(), &blackboard{})
			if err != nil {
				return false
			}
			expected := StatusFailure
			for _, n := range ns {
				if s := statusFromInt(n); s != StatusFailure {
					expected = s
					break
				}
			}
			return status == expected
		},
		gen.SliceOf(gen.IntRange(0, 2)),
	))

	properties.TestingRun(t)
}

func TestProperty_ParallelAggregation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("parallel aggregates all children with running precedence", prop.ForAll(
		func(ns []int, requireOne bool) bool {
			policy := RequireAll
			if requireOne {
				policy = RequireOne
			}
			status, err := NewParallel("par", policy, nodesFromInts(ns)).Execute(context.Background(), &blackboard{})
			if err != nil {
				return false
			}

			var succeeded, failed int
			running := false
			for _, n := range ns {
				switch statusFromInt(n) {
				case StatusSuccess:
					succeeded++
				case StatusFailure:
					failed++
				default:
					running = true
				}
			}
			expected := StatusSuccess
			switch {
			case len(ns) == 0:
				expected = StatusSuccess
			case running:
				expected = StatusRunning
			case requireOne && succeeded == 0:
				expected = StatusFailure
			case !requireOne && failed > 0:
				expected = StatusFailure
			}
			return status == expected
		},
		gen.SliceOf(gen.IntRange(0, 2)),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestProperty_DoubleInversionPreservesTerminalStatus(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("inverting twice restores the child's status", prop.ForAll(
		func(n int) bool {
			child := &stubNode{name: "child", script: []Status{statusFromInt(n)}}
			double := NewInverter[*blackboard]("outer", NewInverter[*blackboard]("inner", child))
			status, err := double.Execute(context.Background(), &blackboard{})
			return err == nil && status == statusFromInt(n)
		},
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t)
}
