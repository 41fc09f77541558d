// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

// Node is one step in a workflow tree. The set of implementations is
// closed; the engine matches on the concrete type.
type Node interface {
	isNode()
}

// Task runs a named function from the engine's task registry.
type Task struct {
	Name string
}

// AgentStep renders Input against the run state and drives one team member.
type AgentStep struct {
	Member string
	Input  string
}

// Set writes a value into the run state.
type Set struct {
	Key   string
	Value any
}

// Sequence runs children strictly in order; the first error aborts the
// remaining siblings.
type Sequence struct {
	Nodes []Node
}

// Parallel launches all children concurrently against the same context.
// Results are collected in declaration order and the first error found is
// returned, but running siblings are not cancelled.
type Parallel struct {
	Nodes []Node
}

// Conditional compares state[Key] (absent reads as null) structurally to
// Equals and runs exactly one branch. Else may be nil.
type Conditional struct {
	Key    string
	Equals any
	Then   Node
	Else   Node
}

// Loop runs Body, then compares state[Key] to Until, repeating until they
// are equal. Exceeding MaxIterations is a fatal error, never a silent
// early exit.
type Loop struct {
	Key           string
	Until         any
	Body          Node
	MaxIterations int
}

func (Task) isNode()        {}
func (AgentStep) isNode()   {}
func (Set) isNode()         {}
func (Sequence) isNode()    {}
func (Parallel) isNode()    {}
func (Conditional) isNode() {}
func (Loop) isNode()        {}

// Workflow is a reusable, named tree of nodes.
type Workflow struct {
	Name  string
	Nodes []Node
}
