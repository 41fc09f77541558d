// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

// Package governance provides role-based authorization and privacy
// redaction for agents, teams, and anything built on top of them.
package governance

import (
	"encoding/json"
	"sync"
)

// Role classifies a principal.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleUser    Role = "user"
	RoleService Role = "service"
)

// Principal is the identity on whose behalf an operation runs.
type Principal struct {
	ID     string `json:"id"`
	Role   Role   `json:"role"`
	Tenant string `json:"tenant,omitempty"`
}

// Anonymous is the default principal used when none is supplied.
func Anonymous() Principal {
	return Principal{ID: "anonymous", Role: RoleUser}
}

// ActionKind enumerates the closed set of authorizable operations.
type ActionKind string

const (
	KindSendMessage      ActionKind = "send_message"
	KindCallTool         ActionKind = "call_tool"
	KindReadTranscript   ActionKind = "read_transcript"
	KindManageDeployment ActionKind = "manage_deployment"
)

// Action is a decision target: an operation kind plus, for tool calls, the
// tool name.
type Action struct {
	Kind ActionKind
	Tool string
}

// SendMessage is the action of starting an agent exchange.
var SendMessage = Action{Kind: KindSendMessage}

// ReadTranscript is the action of reading a conversation transcript.
var ReadTranscript = Action{Kind: KindReadTranscript}

// ManageDeployment is the action of administering a deployment.
var ManageDeployment = Action{Kind: KindManageDeployment}

// CallTool is the action of invoking the named tool.
func CallTool(name string) Action {
	return Action{Kind: KindCallTool, Tool: name}
}

// PrivacyRule replaces a named top-level JSON field with redaction text.
type PrivacyRule struct {
	Field     string `json:"field"`
	Redaction string `json:"redaction"`
}

// AccessController maps roles to allowed actions and holds privacy rules.
// It is read-mostly and safe to share by reference across agents, teams,
// and servers. Authorize is pure and synchronous.
type AccessController struct {
	mu      sync.RWMutex
	rules   map[Role]map[Action]struct{}
	privacy []PrivacyRule
}

// NewAccessController creates a controller with the admin role pre-seeded
// for deployment management and transcript reads.
func NewAccessController() *AccessController {
	c := &AccessController{rules: make(map[Role]map[Action]struct{})}
	c.Allow(RoleAdmin, ManageDeployment)
	c.Allow(RoleAdmin, ReadTranscript)
	return c
}

// Allow grants an action to a role.
func (c *AccessController) Allow(role Role, action Action) {
	c.mu.Lock()
	defer c.mu.Unlock()
	actions, ok := c.rules[role]
	if !ok {
		actions = make(map[Action]struct{})
		c.rules[role] = actions
	}
	actions[action] = struct{}{}
}

// Authorize reports whether the principal's role is granted the action.
// Unknown roles are denied.
func (c *AccessController) Authorize(principal Principal, action Action) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	actions, ok := c.rules[principal.Role]
	if !ok {
		return false
	}
	_, ok = actions[action]
	return ok
}

// AddPrivacyRule appends a redaction rule.
func (c *AccessController) AddPrivacyRule(rule PrivacyRule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.privacy = append(c.privacy, rule)
}

// ScrubPayload applies the privacy rules to a JSON object payload,
// replacing matching top-level fields with their redaction text. Non-object
// payloads pass through unchanged.
func (c *AccessController) ScrubPayload(payload json.RawMessage) (json.RawMessage, error) {
	c.mu.RLock()
	rules := append([]PrivacyRule(nil), c.privacy...)
	c.mu.RUnlock()

	if len(rules) == 0 {
		return payload, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return payload, nil
	}
	changed := false
	for _, rule := range rules {
		if _, ok := obj[rule.Field]; ok {
			redacted, err := json.Marshal(rule.Redaction)
			if err != nil {
				return nil, err
			}
			obj[rule.Field] = redacted
			changed = true
		}
	}
	if !changed {
		return payload, nil
	}
	return json.Marshal(obj)
}
