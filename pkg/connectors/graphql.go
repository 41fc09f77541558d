// Copyright 2026 © The Braid Authors
// SPDX-License-Identifier: Apache-2.0

package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/tool"
)

// GraphQLSchema is the introspected shape the connector consumes.
type GraphQLSchema struct {
	QueryType    *GraphQLTypeRef `json:"queryType"`
	MutationType *GraphQLTypeRef `json:"mutationType"`
	Types        []GraphQLType   `json:"types"`
}

// GraphQLType describes one named type in the schema.
type GraphQLType struct {
	Kind   string         `json:"kind"`
	Name   string         `json:"name"`
	Fields []GraphQLField `json:"fields"`
}

// GraphQLField is a query or mutation root field.
type GraphQLField struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Args        []GraphQLArg `json:"args"`
}

// GraphQLArg is one argument of a root field.
type GraphQLArg struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Type         GraphQLTypeRef  `json:"type"`
	DefaultValue json.RawMessage `json:"defaultValue"`
}

// GraphQLTypeRef references a type, possibly wrapped in NON_NULL or
// LIST.
type GraphQLTypeRef struct {
	Kind   string          `json:"kind"`
	Name   string          `json:"name"`
	OfType *GraphQLTypeRef `json:"ofType"`
}

// GraphQLConnector derives one tool per query and mutation root field
// of a GraphQL endpoint.
type GraphQLConnector struct {
	endpoint string
	schema   *GraphQLSchema
	headers  map[string]string
	client   *http.Client
	prefix   string
	// selection is the field selection appended to generated
	// operations. Defaults to __typename.
	selection string
}

// GraphQLOption configures a GraphQLConnector.
type GraphQLOption func(*GraphQLConnector)

// WithGraphQLHeader adds a request header.
func WithGraphQLHeader(key, value string) GraphQLOption {
	return func(c *GraphQLConnector) { c.headers[key] = value }
}

// WithGraphQLBearerToken authenticates requests with a bearer token.
func WithGraphQLBearerToken(token string) GraphQLOption {
	return func(c *GraphQLConnector) { c.headers["Authorization"] = "Bearer " + token }
}

// WithGraphQLToolPrefix prefixes generated tool names.
func WithGraphQLToolPrefix(prefix string) GraphQLOption {
	return func(c *GraphQLConnector) { c.prefix = prefix }
}

// WithGraphQLSelection overrides the field selection used by generated
// operations.
func WithGraphQLSelection(selection string) GraphQLOption {
	return func(c *GraphQLConnector) { c.selection = selection }
}

// WithGraphQLHTTPClient overrides the HTTP client.
func WithGraphQLHTTPClient(client *http.Client) GraphQLOption {
	return func(c *GraphQLConnector) {
		if client != nil {
			c.client = client
		}
	}
}

// NewGraphQLConnector introspects the endpoint's schema and builds a
// connector over it.
func NewGraphQLConnector(ctx context.Context, endpoint string, opts ...GraphQLOption) (*GraphQLConnector, error) {
	c := newGraphQLConnector(endpoint, opts...)
	if err := c.introspect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// NewGraphQLConnectorFromSchema builds a connector over an already
// known schema, skipping introspection.
func NewGraphQLConnectorFromSchema(endpoint string, schema *GraphQLSchema, opts ...GraphQLOption) *GraphQLConnector {
	c := newGraphQLConnector(endpoint, opts...)
	c.schema = schema
	return c
}

func newGraphQLConnector(endpoint string, opts ...GraphQLOption) *GraphQLConnector {
	c := &GraphQLConnector{
		endpoint:  endpoint,
		headers:   make(map[string]string),
		client:    http.DefaultClient,
		selection: "__typename",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const introspectionQuery = `query {
  __schema {
    queryType { name }
    mutationType { name }
    types {
      kind name
      fields(includeDeprecated: false) {
        name description
        args {
          name description defaultValue
          type { kind name ofType { kind name ofType { kind name } } }
        }
      }
    }
  }
}`

func (c *GraphQLConnector) introspect(ctx context.Context) error {
	raw, err := c.post(ctx, introspectionQuery)
	if err != nil {
		return errors.Wrap(errors.CodeProtocol, "schema introspection failed", err)
	}
	var payload struct {
		Schema GraphQLSchema `json:"__schema"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return errors.Wrap(errors.CodeProtocol, "decode introspection result", err)
	}
	c.schema = &payload.Schema
	return nil
}

// Tools implements Connector.
func (c *GraphQLConnector) Tools() []tool.Tool {
	if c.schema == nil {
		return nil
	}
	var tools []tool.Tool
	for _, field := range c.rootFields(c.schema.QueryType) {
		tools = append(tools, c.fieldTool(field, "query"))
	}
	for _, field := range c.rootFields(c.schema.MutationType) {
		tools = append(tools, c.fieldTool(field, "mutation"))
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name() < tools[j].Name() })
	return tools
}

func (c *GraphQLConnector) rootFields(ref *GraphQLTypeRef) []GraphQLField {
	if ref == nil {
		return nil
	}
	for _, t := range c.schema.Types {
		if t.Name != ref.Name {
			continue
		}
		var fields []GraphQLField
		for _, f := range t.Fields {
			if !strings.HasPrefix(f.Name, "__") {
				fields = append(fields, f)
			}
		}
		return fields
	}
	return nil
}

func (c *GraphQLConnector) fieldTool(field GraphQLField, opType string) tool.Tool {
	name := field.Name
	if c.prefix != "" {
		name = c.prefix + "_" + name
	}
	description := field.Description
	if description == "" {
		description = fmt.Sprintf("GraphQL %s %s", opType, field.Name)
	}

	properties := make(map[string]any)
	var required []string
	for _, arg := range field.Args {
		schema := typeRefSchema(arg.Type)
		if arg.Description != "" {
			schema["description"] = arg.Description
		}
		properties[arg.Name] = schema
		if arg.Type.Kind == "NON_NULL" && arg.DefaultValue == nil {
			required = append(required, arg.Name)
		}
	}

	return &connectorTool{
		name:        name,
		description: description,
		parameters:  objectSchema(properties, required),
		exec: func(ctx context.Context, args map[string]any) (any, error) {
			query := c.buildOperation(opType, field.Name, args)
			raw, err := c.post(ctx, query)
			if err != nil {
				return nil, errors.Wrap(errors.CodeToolInvocation, "GraphQL request failed", err)
			}
			var decoded any
			if err := json.Unmarshal(raw, &decoded); err != nil {
				return nil, errors.Wrap(errors.CodeToolInvocation, "decode GraphQL response", err)
			}
			return decoded, nil
		},
	}
}

func typeRefSchema(ref GraphQLTypeRef) map[string]any {
	switch ref.Kind {
	case "NON_NULL":
		if ref.OfType != nil {
			return typeRefSchema(*ref.OfType)
		}
	case "LIST":
		items := map[string]any{"type": "string"}
		if ref.OfType != nil {
			items = typeRefSchema(*ref.OfType)
		}
		return map[string]any{"type": "array", "items": items}
	case "SCALAR":
		switch ref.Name {
		case "Int":
			return map[string]any{"type": "integer"}
		case "Float":
			return map[string]any{"type": "number"}
		case "Boolean":
			return map[string]any{"type": "boolean"}
		}
	case "INPUT_OBJECT":
		return map[string]any{"type": "object"}
	}
	return map[string]any{"type": "string"}
}

func (c *GraphQLConnector) buildOperation(opType, field string, args map[string]any) string {
	var rendered string
	if len(args) > 0 {
		names := make([]string, 0, len(args))
		for name := range args {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, name+": "+graphqlValue(args[name]))
		}
		rendered = "(" + strings.Join(parts, ", ") + ")"
	}
	return fmt.Sprintf("%s { %s%s { %s } }", opType, field, rendered, c.selection)
}

func graphqlValue(v any) string {
	switch val := v.(type) {
	case string:
		encoded, _ := json.Marshal(val)
		return string(encoded)
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			parts = append(parts, graphqlValue(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]any:
		names := make([]string, 0, len(val))
		for name := range val {
			names = append(names, name)
		}
		sort.Strings(names)
		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, name+": "+graphqlValue(val[name]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// post sends a query and returns the response's data member.
func (c *GraphQLConnector) post(ctx context.Context, query string) (json.RawMessage, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("endpoint returned status %d: %s", resp.StatusCode, respBody)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Errors) > 0 {
		return nil, fmt.Errorf("graphql: %s", envelope.Errors[0].Message)
	}
	return envelope.Data, nil
}
