package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/pimwelt1/UAVLogViewer/internal/domain"
)

// completionMaxTokens caps each generated completion.
const completionMaxTokens = 1000

// OpenAIClient implements Generator against the OpenAI chat API with a
// per-call timeout and a bounded retry policy.
type OpenAIClient struct {
	client     *openai.Client
	model      string
	timeout    time.Duration
	maxRetries int
}

// OpenAIConfig configures the OpenAI-backed generator.
type OpenAIConfig struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// NewOpenAIClient creates a generator backed by the OpenAI chat API.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4o
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &OpenAIClient{
		client:     openai.NewClient(cfg.APIKey),
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
	}
}

// Ensure OpenAIClient implements Generator.
var _ Generator = (*OpenAIClient)(nil)

// Wire shapes for the structured response formats.

type wireStep struct {
	Question  string `json:"question,omitempty"`
	TableName string `json:"table_name,omitempty"`
}

type wireDecision struct {
	Response string     `json:"response,omitempty"`
	Steps    []wireStep `json:"steps,omitempty"`
}

type wireQuery struct {
	Query string `json:"query"`
}

var stepSchema = jsonschema.Definition{
	Type:        jsonschema.Object,
	Description: "One plan step. Set question for a query step, or table_name for an analysis step, never both.",
	Properties: map[string]jsonschema.Definition{
		"question":   {Type: jsonschema.String, Description: "Natural language question to query"},
		"table_name": {Type: jsonschema.String, Description: "Table to analyze"},
	},
}

var decisionSchema = jsonschema.Definition{
	Type:        jsonschema.Object,
	Description: "Either a direct response or a plan of steps, never both.",
	Properties: map[string]jsonschema.Definition{
		"response": {Type: jsonschema.String, Description: "Direct answer, final answer, or a request for clarification"},
		"steps":    {Type: jsonschema.Array, Items: &stepSchema, Description: "Steps to follow"},
	},
}

var querySchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"query": {Type: jsonschema.String, Description: "Syntactically valid SQL query."},
	},
	Required: []string{"query"},
}

func responseFormat(name string, schema *jsonschema.Definition) *openai.ChatCompletionResponseFormat {
	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   name,
			Schema: schema,
		},
	}
}

// DecideDirectOrPlan chooses between a direct response and a plan.
func (c *OpenAIClient) DecideDirectOrPlan(ctx context.Context, input string, history []domain.Turn, documentation string) (Decision, error) {
	system := fmt.Sprintf(planOrResponsePrompt, documentation)
	user := "Here is the user input: " + input + conversationContext(history)
	content, err := c.complete(ctx, system, user, responseFormat("decision", &decisionSchema))
	if err != nil {
		return Decision{}, err
	}
	return parseDecision(content)
}

// Replan chooses between a final response and a continuation plan.
func (c *OpenAIClient) Replan(ctx context.Context, input string, lastPlan []PlanStep, pastSteps []PastStep, documentation string, preferResponse bool) (Decision, error) {
	system := fmt.Sprintf(replanPrompt, documentation)

	var b strings.Builder
	fmt.Fprintf(&b, "Your objective was this: %s\n", input)
	fmt.Fprintf(&b, "Your last plan was this: %s\n", formatPlan(lastPlan))
	fmt.Fprintf(&b, "You have currently done the following steps: %s\n", formatPastSteps(pastSteps))
	b.WriteString("Don't repeat any steps you already did.\n")
	b.WriteString("Based on the completed steps, decide what are the next steps")
	if preferResponse {
		b.WriteString("\n\nYou have already done many steps, it is time to give a response.")
	}

	content, err := c.complete(ctx, system, b.String(), responseFormat("decision", &decisionSchema))
	if err != nil {
		return Decision{}, err
	}
	return parseDecision(content)
}

// WriteQuery produces one SQL query for the question.
func (c *OpenAIClient) WriteQuery(ctx context.Context, question, documentation string) (string, error) {
	user := fmt.Sprintf("Here is the question: %s, here is the dataset documentation: %s\n", question, documentation)
	content, err := c.complete(ctx, writeQueryPrompt, user, responseFormat("query", &querySchema))
	if err != nil {
		return "", err
	}
	return parseQuery(content)
}

// RepairQuery produces a corrected SQL query after a failure.
func (c *OpenAIClient) RepairQuery(ctx context.Context, question, lastQuery, queryErr string, attempts []string, documentation string) (string, error) {
	user := fmt.Sprintf(`The previous SQL query failed.
Original question: %s
Last query attempt: %s
Error: %s
Previous attempts: %s

Please write a corrected SQL query that avoids the same error.`,
		question, lastQuery, queryErr, strings.Join(attempts, "; "))

	content, err := c.complete(ctx, rewriteQueryPrompt, user, responseFormat("query", &querySchema))
	if err != nil {
		return "", err
	}
	return parseQuery(content)
}

// Summarize turns a successful query result into a concise answer.
func (c *OpenAIClient) Summarize(ctx context.Context, question, query, result, documentation string) (string, error) {
	user := fmt.Sprintf("Here is the question: %s\nHere is the query: %s\nHere is the result: %s\nHere is the documentation: %s\n",
		question, query, result, documentation)
	return c.complete(ctx, analyzeResultPrompt, user, nil)
}

// complete performs one chat completion with timeout and retries.
func (c *OpenAIClient) complete(ctx context.Context, system, user string, format *openai.ChatCompletionResponseFormat) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		// The client omits a zero temperature from the request body, so
		// send the smallest value it will serialize.
		Temperature: 1e-8,
		MaxTokens:   completionMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: format,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		resp, err := c.client.CreateChatCompletion(callCtx, req)
		cancel()

		if err == nil {
			if len(resp.Choices) == 0 {
				return "", errors.New("chat completion returned no choices")
			}
			return resp.Choices[0].Message.Content, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if attempt < c.maxRetries {
			delay := 250 * time.Millisecond << attempt
			slog.Debug("Chat completion failed, retrying", "attempt", attempt+1, "delay", delay, "error", err)
			time.Sleep(delay)
		}
	}
	return "", fmt.Errorf("chat completion failed: %w", lastErr)
}

func conversationContext(history []domain.Turn) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n\nPrevious conversation:\n")
	for _, turn := range history {
		fmt.Fprintf(&b, "User: %s\nAgent: %s\n", turn.Input, turn.Response)
	}
	return b.String()
}

func formatPlan(plan []PlanStep) string {
	if len(plan) == 0 {
		return "[]"
	}
	parts := make([]string, len(plan))
	for i, step := range plan {
		parts[i] = step.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatPastSteps(past []PastStep) string {
	if len(past) == 0 {
		return "[]"
	}
	parts := make([]string, len(past))
	for i, ps := range past {
		step := "None"
		if ps.Step != nil {
			step = ps.Step.String()
		}
		parts[i] = fmt.Sprintf("(%s, %q)", step, ps.Result)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// parseDecision decodes the structured direct-or-plan output. Exactly
// one of response and steps must be present; anything else is a
// malformed output, reported as an error.
func parseDecision(content string) (Decision, error) {
	var wire wireDecision
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return Decision{}, fmt.Errorf("malformed decision output: %w", err)
	}

	wire.Response = strings.TrimSpace(wire.Response)
	if wire.Response != "" && len(wire.Steps) > 0 {
		return Decision{}, errors.New("malformed decision output: both response and steps set")
	}
	if wire.Response == "" && len(wire.Steps) == 0 {
		return Decision{}, errors.New("malformed decision output: neither response nor steps set")
	}
	if wire.Response != "" {
		return Decision{Response: wire.Response}, nil
	}

	plan := make([]PlanStep, 0, len(wire.Steps))
	for _, ws := range wire.Steps {
		question := strings.TrimSpace(ws.Question)
		tableName := strings.TrimSpace(ws.TableName)
		switch {
		case question != "" && tableName == "":
			plan = append(plan, PlanStep{Kind: StepQuery, Question: question})
		case tableName != "" && question == "":
			plan = append(plan, PlanStep{Kind: StepAnalysis, TableName: tableName})
		default:
			return Decision{}, fmt.Errorf("malformed plan step: question=%q table_name=%q", ws.Question, ws.TableName)
		}
	}
	return Decision{Plan: plan}, nil
}

func parseQuery(content string) (string, error) {
	var wire wireQuery
	if err := json.Unmarshal([]byte(content), &wire); err != nil {
		return "", fmt.Errorf("malformed query output: %w", err)
	}
	query := strings.TrimSpace(wire.Query)
	if query == "" {
		return "", errors.New("malformed query output: empty query")
	}
	return query, nil
}
