package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/replay/pkg/trajectory"
)

var (
	addToolName    = "add_trajectory"
	addDescription = "Record a trajectory under an ordered list of tags. Tags are an exact, order-sensitive key: [\"login\",\"form\"] and [\"form\",\"login\"] are different buckets. The payload is stored as given and returned verbatim by fetch_trajectories."

	fetchToolName    = "fetch_trajectories"
	fetchDescription = "Fetch previously recorded trajectories for an exact, order-sensitive list of tags, oldest first. Results are paged: page 0 holds the first page_size trajectories. An unknown tag list returns no trajectories."

	statsToolName    = "trajectory_stats"
	statsDescription = "Return the number of tag buckets and trajectories in the replay store."
)

// The add and fetch tools are registered untyped with these schemas. Typed
// tools round-trip arguments and results through map[string]any, which turns
// payload numbers into float64 and reorders object keys.
var (
	tagsSchema = &jsonschema.Schema{
		Type:        "array",
		Items:       &jsonschema.Schema{Type: "string"},
		Description: "ordered tags identifying the bucket, order and duplicates are significant",
	}

	// anyValue accepts every JSON value.
	anyValue = &jsonschema.Schema{}

	trajectorySchema = &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"id":         {Type: "string"},
			"tags":       {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"payload":    anyValue,
			"created_at": {Type: "string"},
		},
		Required: []string{"id", "tags", "payload", "created_at"},
	}

	addInputSchema = &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"tags": tagsSchema,
			"payload": {
				Description: "the recorded trajectory, any JSON value",
			},
		},
		Required: []string{"tags"},
	}

	addOutputSchema = &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"trajectory": trajectorySchema,
		},
		Required: []string{"trajectory"},
	}

	fetchInputSchema = &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"tags":      tagsSchema,
			"page":      {Type: "integer", Description: "zero-based page number (default 0)"},
			"page_size": {Type: "integer", Description: "trajectories per page (default 20)"},
		},
		Required: []string{"tags"},
	}

	fetchOutputSchema = &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"tags":         tagsSchema,
			"page":         {Type: "integer"},
			"page_size":    {Type: "integer"},
			"count":        {Type: "integer"},
			"trajectories": {Type: "array", Items: trajectorySchema},
		},
		Required: []string{"tags", "page", "page_size", "count", "trajectories"},
	}
)

// AddInput represents the input arguments for the MCP add_trajectory tool.
// Payload is kept as raw JSON so numbers and key order survive unchanged.
type AddInput struct {
	Tags    []string        `json:"tags"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// FetchInput represents the input arguments for the MCP fetch_trajectories tool.
type FetchInput struct {
	Tags     []string `json:"tags"`
	Page     int      `json:"page,omitempty"`
	PageSize int      `json:"page_size,omitempty"`
}

// TrajectoryOutput is a trajectory as returned by the MCP tools.
type TrajectoryOutput struct {
	ID        string          `json:"id"`
	Tags      []string        `json:"tags"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// AddOutput represents the structured output of add_trajectory.
type AddOutput struct {
	Trajectory TrajectoryOutput `json:"trajectory"`
}

// FetchOutput represents the structured output of fetch_trajectories.
type FetchOutput struct {
	Tags         []string           `json:"tags"`
	Page         int                `json:"page"`
	PageSize     int                `json:"page_size"`
	Count        int                `json:"count"`
	Trajectories []TrajectoryOutput `json:"trajectories"`
}

// StatsOutput represents the structured output of trajectory_stats.
type StatsOutput struct {
	Buckets      int `json:"buckets"`
	Trajectories int `json:"trajectories"`
}

// handleAdd processes an add_trajectory request via MCP.
func (s *Server) handleAdd(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input AddInput
	if err := decodeArguments(req, &input); err != nil {
		return errorResult(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}
	if input.Tags == nil {
		return errorResult("Invalid arguments: tags is required"), nil
	}
	if len(input.Payload) == 0 {
		input.Payload = json.RawMessage("null")
	}

	t := trajectory.New(input.Tags, input.Payload)
	if err := s.config.Driver.Add(ctx, t); err != nil {
		s.config.Logger.Error("mcp add failed",
			"tags", t.Tags,
			"error", err,
		)
		return errorResult(fmt.Sprintf("Add failed: %v", err)), nil
	}

	s.config.Logger.Debug("mcp added trajectory",
		"id", t.ID,
		"tags", t.Tags,
	)

	return rawResult(AddOutput{Trajectory: toOutput(t)}), nil
}

// handleFetch processes a fetch_trajectories request via MCP.
func (s *Server) handleFetch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input FetchInput
	if err := decodeArguments(req, &input); err != nil {
		return errorResult(fmt.Sprintf("Invalid arguments: %v", err)), nil
	}

	pageSize := input.PageSize
	if pageSize == 0 {
		pageSize = s.config.PageSize
	}

	tags := input.Tags
	if tags == nil {
		tags = []string{}
	}

	ts, err := s.config.Driver.Fetch(ctx, tags, input.Page, pageSize)
	if err != nil {
		return errorResult(fmt.Sprintf("Fetch failed: %v", err)), nil
	}

	output := FetchOutput{
		Tags:         tags,
		Page:         input.Page,
		PageSize:     pageSize,
		Count:        len(ts),
		Trajectories: make([]TrajectoryOutput, 0, len(ts)),
	}
	for _, t := range ts {
		output.Trajectories = append(output.Trajectories, toOutput(t))
	}

	return rawResult(output), nil
}

// handleStats processes a trajectory_stats request via MCP.
func (s *Server) handleStats(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.config.Driver.Stats(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("Stats failed: %v", err)), StatsOutput{}, nil
	}

	return jsonResult(StatsOutput{Buckets: stats.Buckets, Trajectories: stats.Trajectories})
}

func toOutput(t *trajectory.Trajectory) TrajectoryOutput {
	out := TrajectoryOutput{
		ID:        t.ID,
		Tags:      t.Tags,
		Payload:   t.Payload,
		CreatedAt: t.CreatedAt,
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if len(out.Payload) == 0 {
		out.Payload = json.RawMessage("null")
	}

	return out
}

// decodeArguments unmarshals the raw tool arguments into v. Missing
// arguments decode as an empty object.
func decodeArguments(req *mcp.CallToolRequest, v any) error {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return nil
	}
	return json.Unmarshal(req.Params.Arguments, v)
}

// rawResult returns output as structured content and as a JSON text block,
// marshaled once so raw payloads reach the client byte for byte.
func rawResult(output any) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err))
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
		StructuredContent: json.RawMessage(jsonBytes),
	}
}

// jsonResult returns output both as structured content and as a JSON text block.
func jsonResult[T any](output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		var zero T
		return errorResult(fmt.Sprintf("Failed to serialize results: %v", err)), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: msg},
		},
	}
}
