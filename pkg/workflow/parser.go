// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package workflow

import (
	"gopkg.in/yaml.v3"

	"github.com/braidhq/braid/pkg/errors"
)

// workflowSpec is the YAML shape of a workflow definition file.
type workflowSpec struct {
	Name  string     `yaml:"name"`
	Steps []nodeSpec `yaml:"steps"`
}

// nodeSpec is the YAML shape of one node. Exactly one of the variant
// fields must be set.
type nodeSpec struct {
	Task        string           `yaml:"task,omitempty"`
	Agent       *agentSpec       `yaml:"agent,omitempty"`
	Set         *setSpec         `yaml:"set,omitempty"`
	Sequence    []nodeSpec       `yaml:"sequence,omitempty"`
	Parallel    []nodeSpec       `yaml:"parallel,omitempty"`
	Conditional *conditionalSpec `yaml:"conditional,omitempty"`
	Loop        *loopSpec        `yaml:"loop,omitempty"`
}

type agentSpec struct {
	Member string `yaml:"member"`
	Input  string `yaml:"input"`
}

type setSpec struct {
	Key   string `yaml:"key"`
	Value any    `yaml:"value"`
}

type conditionalSpec struct {
	Key    string    `yaml:"key"`
	Equals any       `yaml:"equals"`
	Then   *nodeSpec `yaml:"then"`
	Else   *nodeSpec `yaml:"else,omitempty"`
}

type loopSpec struct {
	Key           string    `yaml:"key"`
	Until         any       `yaml:"until"`
	Body          *nodeSpec `yaml:"body"`
	MaxIterations int       `yaml:"max_iterations"`
}

// ParseYAML loads a workflow definition from YAML.
func ParseYAML(data []byte) (*Workflow, error) {
	if len(data) == 0 {
		return nil, errors.New(errors.CodeProtocol, "empty workflow definition")
	}
	var spec workflowSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, errors.Wrap(errors.CodeProtocol, "parse workflow yaml", err)
	}
	if spec.Name == "" {
		return nil, errors.New(errors.CodeProtocol, "workflow name is required")
	}
	if len(spec.Steps) == 0 {
		return nil, errors.New(errors.CodeProtocol, "workflow has no steps")
	}

	nodes := make([]Node, 0, len(spec.Steps))
	for _, step := range spec.Steps {
		node, err := buildNode(step)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return &Workflow{Name: spec.Name, Nodes: nodes}, nil
}

func buildNode(spec nodeSpec) (Node, error) {
	variants := 0
	if spec.Task != "" {
		variants++
	}
	if spec.Agent != nil {
		variants++
	}
	if spec.Set != nil {
		variants++
	}
	if len(spec.Sequence) > 0 {
		variants++
	}
	if len(spec.Parallel) > 0 {
		variants++
	}
	if spec.Conditional != nil {
		variants++
	}
	if spec.Loop != nil {
		variants++
	}
	if variants != 1 {
		return nil, errors.New(errors.CodeProtocol, "workflow node must define exactly one variant")
	}

	switch {
	case spec.Task != "":
		return Task{Name: spec.Task}, nil

	case spec.Agent != nil:
		if spec.Agent.Member == "" {
			return nil, errors.New(errors.CodeProtocol, "agent node requires a member")
		}
		return AgentStep{Member: spec.Agent.Member, Input: spec.Agent.Input}, nil

	case spec.Set != nil:
		if spec.Set.Key == "" {
			return nil, errors.New(errors.CodeProtocol, "set node requires a key")
		}
		return Set{Key: spec.Set.Key, Value: spec.Set.Value}, nil

	case len(spec.Sequence) > 0:
		nodes, err := buildNodes(spec.Sequence)
		if err != nil {
			return nil, err
		}
		return Sequence{Nodes: nodes}, nil

	case len(spec.Parallel) > 0:
		nodes, err := buildNodes(spec.Parallel)
		if err != nil {
			return nil, err
		}
		return Parallel{Nodes: nodes}, nil

	case spec.Conditional != nil:
		if spec.Conditional.Then == nil {
			return nil, errors.New(errors.CodeProtocol, "conditional node requires a then branch")
		}
		then, err := buildNode(*spec.Conditional.Then)
		if err != nil {
			return nil, err
		}
		var elseNode Node
		if spec.Conditional.Else != nil {
			elseNode, err = buildNode(*spec.Conditional.Else)
			if err != nil {
				return nil, err
			}
		}
		return Conditional{
			Key:    spec.Conditional.Key,
			Equals: spec.Conditional.Equals,
			Then:   then,
			Else:   elseNode,
		}, nil

	default:
		if spec.Loop.Body == nil {
			return nil, errors.New(errors.CodeProtocol, "loop node requires a body")
		}
		if spec.Loop.MaxIterations < 1 {
			return nil, errors.New(errors.CodeProtocol, "loop node requires max_iterations >= 1")
		}
		body, err := buildNode(*spec.Loop.Body)
		if err != nil {
			return nil, err
		}
		return Loop{
			Key:           spec.Loop.Key,
			Until:         spec.Loop.Until,
			Body:          body,
			MaxIterations: spec.Loop.MaxIterations,
		}, nil
	}
}

func buildNodes(specs []nodeSpec) ([]Node, error) {
	nodes := make([]Node, 0, len(specs))
	for _, spec := range specs {
		node, err := buildNode(spec)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}
