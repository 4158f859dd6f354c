package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/loopwork-ai/norris/joke"
)

// Tool names
const (
	ToolGetRandomJoke       = "get-random-joke"
	ToolGetJokeFromCategory = "get-joke-from-category"
	ToolGetCategories       = "get-categories"
	ToolSearchJokes         = "search-jokes"
)

// minQueryLength is the shortest search query sent upstream
const minQueryLength = 3

// ErrUnknownTool is returned by Registry.Call for names that were never registered
var ErrUnknownTool = errors.New("unknown tool")

// JokeClient is the subset of the joke service the tools depend on
type JokeClient interface {
	Random(ctx context.Context) (*joke.Joke, error)
	RandomByCategory(ctx context.Context, category string) (*joke.Joke, error)
	Categories(ctx context.Context) ([]string, error)
	Search(ctx context.Context, query string) (*joke.SearchResult, error)
}

var _ JokeClient = (*joke.Client)(nil)

// ToolHandler runs one invocation against raw JSON arguments. It always
// returns an envelope.
type ToolHandler func(ctx context.Context, args json.RawMessage) *ToolCallResponse

type registeredTool struct {
	tool    Tool
	handler ToolHandler
}

// Registry is the fixed, ordered set of tools. It is read-only after
// NewRegistry returns and safe for concurrent use.
type Registry struct {
	tools    []registeredTool
	index    map[string]int
	manifest map[string]ToolCapability
}

// CategoryArgs are the arguments of get-joke-from-category
type CategoryArgs struct {
	Category string `json:"category"`
}

// Validate rejects an empty category
func (a CategoryArgs) Validate() error {
	if a.Category == "" {
		return joke.NewValidationError("Category must be a non-empty string")
	}
	return nil
}

// SearchArgs are the arguments of search-jokes
type SearchArgs struct {
	Query string `json:"query"`
}

// Validate rejects queries shorter than three characters
func (a SearchArgs) Validate() error {
	if utf8.RuneCountInString(a.Query) < minQueryLength {
		return joke.NewValidationError("Search query must be at least %d characters long", minQueryLength)
	}
	return nil
}

type argsValidator interface {
	Validate() error
}

// NewRegistry declares the four joke tools backed by client
func NewRegistry(client JokeClient) (*Registry, error) {
	if client == nil {
		return nil, errors.New("joke client is required")
	}

	h := &handlers{client: client}

	r := &Registry{
		index: make(map[string]int),
		// Discovery descriptions are advertised during initialize and are
		// allowed to differ in wording from the tools/list descriptions.
		manifest: map[string]ToolCapability{
			ToolGetRandomJoke:       {Description: "Get a random Chuck Norris joke"},
			ToolGetJokeFromCategory: {Description: "Get a random Chuck Norris joke from a specified category"},
			ToolGetCategories:       {Description: "Get a list of all available joke categories"},
			ToolSearchJokes:         {Description: "Search for Chuck Norris jokes containing specific text"},
		},
	}

	declarations := []struct {
		name        string
		description string
		schema      *jsonschema.Schema
		newHandler  func(*jsonschema.Resolved) ToolHandler
	}{
		{
			name:        ToolGetRandomJoke,
			description: "Get a random Chuck Norris joke",
			schema:      objectSchema(nil),
			newHandler:  bind(h.randomJoke),
		},
		{
			name:        ToolGetJokeFromCategory,
			description: "Get a random Chuck Norris joke from a specific category",
			schema: objectSchema(map[string]*jsonschema.Schema{
				"category": {
					Type:        "string",
					Description: "The category name (e.g., animal, dev, food)",
					MinLength:   intPtr(1),
				},
			}, "category"),
			newHandler: bind(h.jokeFromCategory),
		},
		{
			name:        ToolGetCategories,
			description: "Get all available Chuck Norris joke categories",
			schema:      objectSchema(nil),
			newHandler:  bind(h.categories),
		},
		{
			name:        ToolSearchJokes,
			description: "Search for Chuck Norris jokes containing specific text",
			schema: objectSchema(map[string]*jsonschema.Schema{
				"query": {
					Type:        "string",
					Description: fmt.Sprintf("Search query (minimum %d characters)", minQueryLength),
					MinLength:   intPtr(minQueryLength),
				},
			}, "query"),
			newHandler: bind(h.searchJokes),
		},
	}

	for _, d := range declarations {
		resolved, err := d.schema.Resolve(nil)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid input schema for tool %s", d.name)
		}
		r.index[d.name] = len(r.tools)
		r.tools = append(r.tools, registeredTool{
			tool: Tool{
				Name:        d.name,
				Description: d.description,
				InputSchema: d.schema,
			},
			handler: d.newHandler(resolved),
		})
	}

	return r, nil
}

// Tools returns the tool descriptions in declaration order
func (r *Registry) Tools() []Tool {
	tools := make([]Tool, len(r.tools))
	for i, t := range r.tools {
		tools[i] = t.tool
	}
	return tools
}

// Capabilities returns a copy of the capability manifest
func (r *Registry) Capabilities() map[string]ToolCapability {
	manifest := make(map[string]ToolCapability, len(r.manifest))
	for name, c := range r.manifest {
		manifest[name] = c
	}
	return manifest
}

// Lookup returns the description of the named tool
func (r *Registry) Lookup(name string) (Tool, bool) {
	i, ok := r.index[name]
	if !ok {
		return Tool{}, false
	}
	return r.tools[i].tool, true
}

// Call runs the named tool. Every failure after the tool is resolved is
// reported inside the envelope; the only error returned is ErrUnknownTool.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (*ToolCallResponse, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownTool, "%s", name)
	}
	return r.tools[i].handler(ctx, args), nil
}

// bind adapts fn to a ToolHandler. Arguments must be a JSON object that
// decodes into A, passes A's Validate method if it has one, and conforms to
// schema; otherwise fn is never called. Typed checks run before the schema
// so their messages win when both would fail.
func bind[A any](fn func(ctx context.Context, args A) *ToolCallResponse) func(*jsonschema.Resolved) ToolHandler {
	return func(schema *jsonschema.Resolved) ToolHandler {
		return func(ctx context.Context, raw json.RawMessage) *ToolCallResponse {
			instance := map[string]interface{}{}
			var args A
			if len(raw) > 0 && string(raw) != "null" {
				if err := json.Unmarshal(raw, &instance); err != nil {
					return NewToolError("Invalid arguments: arguments must be an object")
				}
				if err := json.Unmarshal(raw, &args); err != nil {
					return NewToolError(fmt.Sprintf("Invalid arguments: %v", err))
				}
			}
			if v, ok := any(args).(argsValidator); ok {
				if err := v.Validate(); err != nil {
					return NewToolError(err.Error())
				}
			}
			if err := schema.Validate(instance); err != nil {
				return NewToolError(fmt.Sprintf("Invalid arguments: %v", err))
			}
			return fn(ctx, args)
		}
	}
}

type noArgs struct{}

type handlers struct {
	client JokeClient
}

func (h *handlers) randomJoke(ctx context.Context, _ noArgs) *ToolCallResponse {
	j, err := h.client.Random(ctx)
	if err != nil {
		return NewToolError(fmt.Sprintf("Error fetching joke: %v", err))
	}
	return NewToolResult(FormatJoke(j))
}

func (h *handlers) jokeFromCategory(ctx context.Context, args CategoryArgs) *ToolCallResponse {
	j, err := h.client.RandomByCategory(ctx, args.Category)
	if err != nil {
		return NewToolError(fmt.Sprintf("Error fetching joke from category '%s': %v", args.Category, err))
	}
	return NewToolResult(FormatCategoryJoke(j, args.Category))
}

func (h *handlers) categories(ctx context.Context, _ noArgs) *ToolCallResponse {
	categories, err := h.client.Categories(ctx)
	if err != nil {
		return NewToolError(fmt.Sprintf("Error fetching categories: %v", err))
	}
	return NewToolResult(FormatCategories(categories))
}

func (h *handlers) searchJokes(ctx context.Context, args SearchArgs) *ToolCallResponse {
	result, err := h.client.Search(ctx, args.Query)
	if err != nil {
		return NewToolError(fmt.Sprintf("Error searching jokes: %v", err))
	}
	return NewToolResult(FormatSearch(result, args.Query))
}

func objectSchema(properties map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func intPtr(i int) *int {
	return &i
}
