package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopwork-ai/norris/joke"
)

// stubUpstream serves canned joke API responses and counts requests
type stubUpstream struct {
	*httptest.Server
	calls  atomic.Int32
	status atomic.Int32

	mu       sync.Mutex
	lastPath string
	lastRaw  string
}

func newStubUpstream(t *testing.T) *stubUpstream {
	t.Helper()

	stub := &stubUpstream{}
	stub.status.Store(http.StatusOK)
	stub.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stub.calls.Add(1)
		stub.mu.Lock()
		stub.lastPath = r.URL.Path
		stub.lastRaw = r.URL.RawQuery
		stub.mu.Unlock()

		if status := int(stub.status.Load()); status != http.StatusOK {
			w.WriteHeader(status)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/jokes/random":
			if category := r.URL.Query().Get("category"); category != "" {
				w.Write([]byte(`{"id":"x1","url":"https://api.chucknorris.io/jokes/x1","icon_url":"","value":"Chuck Norris's code compiles itself.","categories":["dev"]}`))
				return
			}
			w.Write([]byte(`{"id":"r1","url":"https://api.chucknorris.io/jokes/r1","icon_url":"","value":"Chuck Norris counted to infinity. Twice."}`))
		case "/jokes/categories":
			w.Write([]byte(`["animal","dev"]`))
		case "/jokes/search":
			switch r.URL.Query().Get("query") {
			case "nothing":
				w.Write([]byte(`{"total":0,"result":[]}`))
			case "seven":
				w.Write([]byte(`{"total":7,"result":[{"id":"1","value":"a"},{"id":"2","value":"b"},{"id":"3","value":"c"},{"id":"4","value":"d"},{"id":"5","value":"e"}]}`))
			default:
				w.Write([]byte(`{"total":3,"result":[{"id":"1","value":"a"},{"id":"2","value":"b"},{"id":"3","value":"c"}]}`))
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(stub.Close)
	return stub
}

// last returns the path and raw query of the most recent request
func (s *stubUpstream) last() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPath, s.lastRaw
}

func (s *stubUpstream) client(t *testing.T) *joke.Client {
	t.Helper()

	client, err := joke.NewClient(joke.WithBaseURL(s.URL+"/jokes"), joke.WithHTTPClient(s.Client()))
	require.NoError(t, err)
	return client
}

func newTestRegistry(t *testing.T) (*Registry, *stubUpstream) {
	t.Helper()

	stub := newStubUpstream(t)
	registry, err := NewRegistry(stub.client(t))
	require.NoError(t, err)
	return registry, stub
}

func callText(t *testing.T, result *ToolCallResponse) string {
	t.Helper()

	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	return result.Content[0].Text
}

func TestNewRegistry(t *testing.T) {
	_, err := NewRegistry(nil)
	assert.Error(t, err)

	registry, _ := newTestRegistry(t)

	tools := registry.Tools()
	require.Len(t, tools, 4)
	assert.Equal(t, ToolGetRandomJoke, tools[0].Name)
	assert.Equal(t, ToolGetJokeFromCategory, tools[1].Name)
	assert.Equal(t, ToolGetCategories, tools[2].Name)
	assert.Equal(t, ToolSearchJokes, tools[3].Name)

	for _, tool := range tools {
		assert.NotEmpty(t, tool.Description)
		require.NotNil(t, tool.InputSchema)
		assert.Equal(t, "object", tool.InputSchema.Type)
	}

	assert.Equal(t, []string{"category"}, tools[1].InputSchema.Required)
	assert.Equal(t, []string{"query"}, tools[3].InputSchema.Required)
	require.NotNil(t, tools[3].InputSchema.Properties["query"].MinLength)
	assert.Equal(t, 3, *tools[3].InputSchema.Properties["query"].MinLength)

	manifest := registry.Capabilities()
	assert.Len(t, manifest, 4)
	for _, tool := range tools {
		assert.Contains(t, manifest, tool.Name)
		assert.NotEmpty(t, manifest[tool.Name].Description)
	}

	tool, ok := registry.Lookup(ToolSearchJokes)
	assert.True(t, ok)
	assert.Equal(t, ToolSearchJokes, tool.Name)
	_, ok = registry.Lookup("tell-joke")
	assert.False(t, ok)
}

func TestRegistry_CallSuccess(t *testing.T) {
	tests := []struct {
		name  string
		tool  string
		args  string
		want  string
		path  string
		query string
	}{
		{
			name: "random joke",
			tool: ToolGetRandomJoke,
			want: "Chuck Norris counted to infinity. Twice.\n\n(Joke ID: r1)",
			path: "/jokes/random",
		},
		{
			name:  "joke from category",
			tool:  ToolGetJokeFromCategory,
			args:  `{"category":"dev"}`,
			want:  "Chuck Norris's code compiles itself.\n\nCategory: dev\n(Joke ID: x1)",
			path:  "/jokes/random",
			query: "category=dev",
		},
		{
			name: "categories",
			tool: ToolGetCategories,
			args: `{}`,
			want: "Available categories:\n\n- animal\n- dev",
			path: "/jokes/categories",
		},
		{
			name:  "search without results",
			tool:  ToolSearchJokes,
			args:  `{"query":"nothing"}`,
			want:  `No jokes found containing "nothing"`,
			path:  "/jokes/search",
			query: "query=nothing",
		},
		{
			name:  "search with three results",
			tool:  ToolSearchJokes,
			args:  `{"query":"three"}`,
			want:  "Found 3 jokes containing \"three\":\n\n1. a\n\n2. b\n\n3. c",
			path:  "/jokes/search",
			query: "query=three",
		},
		{
			name:  "search with more than five results",
			tool:  ToolSearchJokes,
			args:  `{"query":"seven"}`,
			want:  "Found 7 jokes containing \"seven\":\n\n1. a\n\n2. b\n\n3. c\n\n4. d\n\n5. e\n\n...and 2 more jokes",
			path:  "/jokes/search",
			query: "query=seven",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, stub := newTestRegistry(t)

			var args json.RawMessage
			if tt.args != "" {
				args = json.RawMessage(tt.args)
			}

			result, err := registry.Call(context.Background(), tt.tool, args)
			require.NoError(t, err)
			assert.False(t, result.IsError)
			assert.Equal(t, tt.want, callText(t, result))
			assert.Equal(t, int32(1), stub.calls.Load())
			path, query := stub.last()
			assert.Equal(t, tt.path, path)
			assert.Equal(t, tt.query, query)
		})
	}
}

func TestRegistry_CallUpstreamFailure(t *testing.T) {
	tests := []struct {
		tool string
		args string
		want string
	}{
		{
			tool: ToolGetRandomJoke,
			want: "Error fetching joke: API request failed with status 500",
		},
		{
			tool: ToolGetJokeFromCategory,
			args: `{"category":"nope"}`,
			want: "Error fetching joke from category 'nope': API request failed with status 500",
		},
		{
			tool: ToolGetCategories,
			want: "Error fetching categories: API request failed with status 500",
		},
		{
			tool: ToolSearchJokes,
			args: `{"query":"computer"}`,
			want: "Error searching jokes: API request failed with status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			registry, stub := newTestRegistry(t)
			stub.status.Store(http.StatusInternalServerError)

			result, err := registry.Call(context.Background(), tt.tool, json.RawMessage(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Equal(t, tt.want, callText(t, result))
		})
	}
}

func TestRegistry_CallTransportFailure(t *testing.T) {
	stub := newStubUpstream(t)
	client := stub.client(t)
	stub.Close()

	registry, err := NewRegistry(client)
	require.NoError(t, err)

	result, err := registry.Call(context.Background(), ToolGetCategories, nil)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, callText(t, result), "Error fetching categories: API request failed")
}

func TestRegistry_CallValidation(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args string
		want string
	}{
		{
			name: "query too short",
			tool: ToolSearchJokes,
			args: `{"query":"ab"}`,
			want: "Search query must be at least 3 characters long",
		},
		{
			name: "query missing",
			tool: ToolSearchJokes,
			args: `{}`,
			want: "Search query must be at least 3 characters long",
		},
		{
			name: "query counts characters, not bytes",
			tool: ToolSearchJokes,
			args: `{"query":"éé"}`,
			want: "Search query must be at least 3 characters long",
		},
		{
			name: "query of the wrong type",
			tool: ToolSearchJokes,
			args: `{"query":12345}`,
		},
		{
			name: "empty category",
			tool: ToolGetJokeFromCategory,
			args: `{"category":""}`,
			want: "Category must be a non-empty string",
		},
		{
			name: "arguments not an object",
			tool: ToolGetJokeFromCategory,
			args: `["dev"]`,
			want: "Invalid arguments: arguments must be an object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, stub := newTestRegistry(t)

			result, err := registry.Call(context.Background(), tt.tool, json.RawMessage(tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			text := callText(t, result)
			if tt.want != "" {
				assert.Equal(t, tt.want, text)
			}
			assert.Equal(t, int32(0), stub.calls.Load(), "no outbound call expected")
		})
	}
}

func TestRegistry_CallUnknownTool(t *testing.T) {
	registry, stub := newTestRegistry(t)

	result, err := registry.Call(context.Background(), "tell-joke", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
	assert.Nil(t, result)
	assert.Equal(t, int32(0), stub.calls.Load())
}

func TestRegistry_CallEncodesArguments(t *testing.T) {
	registry, stub := newTestRegistry(t)

	result, err := registry.Call(context.Background(), ToolSearchJokes, json.RawMessage(`{"query":"a&b c/d"}`))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	_, query := stub.last()
	assert.Equal(t, "query=a%26b%20c%2Fd", query)

	result, err = registry.Call(context.Background(), ToolGetJokeFromCategory, json.RawMessage(`{"category":"x?y=z"}`))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	_, query = stub.last()
	assert.Equal(t, "category=x%3Fy%3Dz", query)
}
