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
	"net/url"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/braidhq/braid/pkg/errors"
	"github.com/braidhq/braid/pkg/tool"
)

// openAPIDoc is the subset of an OpenAPI 3.x document the connector
// needs to derive tools.
type openAPIDoc struct {
	OpenAPI string `json:"openapi" yaml:"openapi"`
	Info    struct {
		Title   string `json:"title" yaml:"title"`
		Version string `json:"version" yaml:"version"`
	} `json:"info" yaml:"info"`
	Servers []struct {
		URL string `json:"url" yaml:"url"`
	} `json:"servers" yaml:"servers"`
	Paths map[string]map[string]*openAPIOperation `json:"paths" yaml:"paths"`
}

type openAPIOperation struct {
	OperationID string             `json:"operationId" yaml:"operationId"`
	Summary     string             `json:"summary" yaml:"summary"`
	Description string             `json:"description" yaml:"description"`
	Parameters  []openAPIParameter `json:"parameters" yaml:"parameters"`
	RequestBody *struct {
		Required bool `json:"required" yaml:"required"`
		Content  map[string]struct {
			Schema map[string]any `json:"schema" yaml:"schema"`
		} `json:"content" yaml:"content"`
	} `json:"requestBody" yaml:"requestBody"`
}

type openAPIParameter struct {
	Name        string         `json:"name" yaml:"name"`
	In          string         `json:"in" yaml:"in"`
	Description string         `json:"description" yaml:"description"`
	Required    bool           `json:"required" yaml:"required"`
	Schema      map[string]any `json:"schema" yaml:"schema"`
}

var openAPIMethods = []string{"get", "post", "put", "patch", "delete"}

// OpenAPIConnector derives one tool per operation in an OpenAPI 3.x
// document and executes calls against the described HTTP API.
type OpenAPIConnector struct {
	doc        *openAPIDoc
	baseURL    string
	headers    http.Header
	basicUser  string
	basicPass  string
	httpClient *http.Client
}

// OpenAPIOption configures an OpenAPIConnector.
type OpenAPIOption func(*OpenAPIConnector)

// WithBaseURL overrides the server URL from the document.
func WithBaseURL(baseURL string) OpenAPIOption {
	return func(c *OpenAPIConnector) { c.baseURL = baseURL }
}

// WithAPIKey sends key in the given header on every request. An empty
// header defaults to X-API-Key.
func WithAPIKey(key, header string) OpenAPIOption {
	return func(c *OpenAPIConnector) {
		if header == "" {
			header = "X-API-Key"
		}
		c.headers.Set(header, key)
	}
}

// WithBearerToken sends an Authorization bearer token on every request.
func WithBearerToken(token string) OpenAPIOption {
	return func(c *OpenAPIConnector) {
		c.headers.Set("Authorization", "Bearer "+token)
	}
}

// WithBasicAuth sends HTTP basic credentials on every request.
func WithBasicAuth(user, pass string) OpenAPIOption {
	return func(c *OpenAPIConnector) {
		c.basicUser, c.basicPass = user, pass
	}
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) OpenAPIOption {
	return func(c *OpenAPIConnector) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewOpenAPIConnector parses an OpenAPI 3.x document given as JSON or
// YAML bytes.
func NewOpenAPIConnector(data []byte, opts ...OpenAPIOption) (*OpenAPIConnector, error) {
	var doc openAPIDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(errors.CodeProtocol, "parse OpenAPI document", err)
		}
	}
	if len(doc.Paths) == 0 {
		return nil, errors.New(errors.CodeProtocol, "OpenAPI document declares no paths")
	}

	c := &OpenAPIConnector{
		doc:        &doc,
		headers:    make(http.Header),
		httpClient: http.DefaultClient,
	}
	if len(doc.Servers) > 0 {
		c.baseURL = doc.Servers[0].URL
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		return nil, errors.New(errors.CodeProtocol, "OpenAPI document has no server URL and none was supplied")
	}
	return c, nil
}

// NewOpenAPIConnectorFromFile reads and parses a document from disk.
func NewOpenAPIConnectorFromFile(path string, opts ...OpenAPIOption) (*OpenAPIConnector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeStorage, "read OpenAPI document", err)
	}
	return NewOpenAPIConnector(data, opts...)
}

// Tools implements Connector. Tool names are taken from operationId,
// falling back to method_path.
func (c *OpenAPIConnector) Tools() []tool.Tool {
	var tools []tool.Tool
	paths := make([]string, 0, len(c.doc.Paths))
	for path := range c.doc.Paths {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		item := c.doc.Paths[path]
		for _, method := range openAPIMethods {
			op := item[method]
			if op == nil {
				continue
			}
			tools = append(tools, c.operationTool(path, strings.ToUpper(method), op))
		}
	}
	return tools
}

func (c *OpenAPIConnector) operationTool(path, method string, op *openAPIOperation) tool.Tool {
	name := op.OperationID
	if name == "" {
		name = strings.ToLower(method) + strings.ReplaceAll(path, "/", "_")
		name = strings.ReplaceAll(name, "{", "")
		name = strings.ReplaceAll(name, "}", "")
	}
	description := op.Summary
	if description == "" {
		description = op.Description
	}
	if description == "" {
		description = method + " " + path
	}

	properties := make(map[string]any)
	var required []string
	for _, param := range op.Parameters {
		schema := map[string]any{"type": "string"}
		for k, v := range param.Schema {
			schema[k] = v
		}
		if param.Description != "" {
			schema["description"] = param.Description
		}
		properties[param.Name] = schema
		if param.Required {
			required = append(required, param.Name)
		}
	}
	if body := c.bodySchema(op); body != nil {
		properties["body"] = body
		if op.RequestBody.Required {
			required = append(required, "body")
		}
	}

	return &connectorTool{
		name:        name,
		description: description,
		parameters:  objectSchema(properties, required),
		exec: func(ctx context.Context, args map[string]any) (any, error) {
			return c.invoke(ctx, path, method, op, args)
		},
	}
}

func (c *OpenAPIConnector) bodySchema(op *openAPIOperation) map[string]any {
	if op.RequestBody == nil {
		return nil
	}
	content, ok := op.RequestBody.Content["application/json"]
	if !ok {
		return nil
	}
	schema := map[string]any{"type": "object", "description": "JSON request body"}
	for k, v := range content.Schema {
		schema[k] = v
	}
	return schema
}

func (c *OpenAPIConnector) invoke(ctx context.Context, path, method string, op *openAPIOperation, args map[string]any) (any, error) {
	finalPath := path
	query := url.Values{}
	extraHeaders := http.Header{}
	for _, param := range op.Parameters {
		value, ok := args[param.Name]
		if !ok {
			continue
		}
		rendered := fmt.Sprintf("%v", value)
		switch param.In {
		case "path":
			finalPath = strings.ReplaceAll(finalPath, "{"+param.Name+"}", url.PathEscape(rendered))
		case "query":
			query.Set(param.Name, rendered)
		case "header":
			extraHeaders.Set(param.Name, rendered)
		}
	}

	var body io.Reader
	if raw, ok := args["body"]; ok {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, errors.Wrap(errors.CodeProtocol, "encode request body", err)
		}
		body = bytes.NewReader(encoded)
	}

	target := strings.TrimRight(c.baseURL, "/") + finalPath
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrap(errors.CodeProtocol, "build request", err)
	}
	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	for key, values := range extraHeaders {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.basicUser != "" {
		req.SetBasicAuth(c.basicUser, c.basicPass)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.CodeToolInvocation, "API request failed", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(errors.CodeToolInvocation, "read API response", err)
	}
	if resp.StatusCode >= 400 {
		return nil, errors.Newf(errors.CodeToolInvocation, "API returned status %d: %s", resp.StatusCode, respBody)
	}

	var decoded any
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return string(respBody), nil
	}
	return decoded, nil
}
