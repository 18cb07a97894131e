package timetools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/santoshkal/mcp-server-http-time/pkg/reg"
	"github.com/santoshkal/mcp-server-http-time/pkg/schema"
	"github.com/santoshkal/mcp-server-http-time/pkg/utils"
)

// ToolParseNaturalTime resolves phrases like "next friday at 3pm".
const ToolParseNaturalTime = "parse_natural_time"

const unresolvedReply = "UNKNOWN"

// NewOpenAIModel creates the chat model backing parse_natural_time.
func NewOpenAIModel(apiKey, model, baseURL string) (*openai.LLM, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("LLM API key not set")
	}
	opts := []openai.Option{openai.WithToken(apiKey), openai.WithModel(model)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	return openai.New(opts...)
}

// NaturalTimeResult is returned by parse_natural_time.
type NaturalTimeResult struct {
	Time      string `json:"time"`
	Timestamp int64  `json:"timestamp"`
	Timezone  string `json:"timezone"`
}

// NaturalTimeTool returns the parse_natural_time tool backed by model.
// Each call is bounded by timeout.
func (t *Tools) NaturalTimeTool(model llms.Model, timeout time.Duration) reg.Tool {
	return reg.Tool{
		Name:        ToolParseNaturalTime,
		Title:       "Parse Natural Language Time",
		Description: "Resolves a natural language time expression (e.g. \"next friday at 3pm\") to an exact date-time.",
		Schema: schema.New(
			schema.Field{Name: "text", Type: schema.TypeString, Required: true,
				Description: "The expression to resolve."},
			schema.Field{Name: "timezone", Type: schema.TypeString,
				Description: "The IANA timezone to resolve in. Defaults to the server's timezone."},
		),
		Handler: func(ctx context.Context, args schema.Args) (interface{}, error) {
			return t.parseNaturalTime(ctx, model, timeout, args)
		},
	}
}

func (t *Tools) parseNaturalTime(ctx context.Context, model llms.Model, timeout time.Duration, args schema.Args) (interface{}, error) {
	text, _ := args.String("text")
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text must not be empty")
	}
	zone := args.StringOr("timezone", t.defaultZone)
	loc, err := LoadZone(zone)
	if err != nil {
		return nil, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reference := Format(t.now().In(loc), DefaultFormat)
	prompt := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, utils.GetSystemPrompt()),
		llms.TextParts(llms.ChatMessageTypeHuman, utils.TimeResolutionRequest(text, reference, zone)),
	}

	response, err := model.GenerateContent(ctx, prompt, llms.WithTemperature(0))
	if err != nil {
		return nil, fmt.Errorf("LLM API error: %w", err)
	}
	if response == nil || len(response.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned an empty response")
	}

	reply := utils.CleanModelReply(response.Choices[0].Content)
	utils.Logger.Debugf("[parse_natural_time] %q resolved to %q", text, reply)
	if reply == "" || strings.EqualFold(reply, unresolvedReply) {
		return nil, fmt.Errorf("could not resolve %q to a date-time", text)
	}

	resolved, err := time.ParseInLocation("2006-01-02 15:04:05", reply, loc)
	if err != nil {
		if resolved, err = ParseIn(reply, loc); err != nil {
			return nil, fmt.Errorf("model reply %q is not a date-time", reply)
		}
	}
	return NaturalTimeResult{
		Time:      Format(resolved.In(loc), DefaultFormat),
		Timestamp: resolved.UnixMilli(),
		Timezone:  zone,
	}, nil
}
