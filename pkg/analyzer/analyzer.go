package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/diskwise-ai/diskwise/pkg/cache"
	"github.com/diskwise-ai/diskwise/pkg/config"
	"github.com/diskwise-ai/diskwise/pkg/models"
	"github.com/diskwise-ai/diskwise/pkg/safety"
)

const toolName = "analyze_files_for_cleanup"

// toolSchema is the forced tool definition the model must answer with.
// Only file metadata ever reaches the prompt; contents stay local.
var toolSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"recommendations": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"path": {"type": "string"},
					"category": {"type": "string"},
					"recommendation": {"type": "string", "enum": ["delete", "keep", "review"]},
					"confidence": {"type": "number"},
					"reasoning": {"type": "string"},
					"risk_level": {"type": "string", "enum": ["low", "medium", "high"]}
				},
				"required": ["path", "recommendation", "confidence", "reasoning", "risk_level"]
			}
		}
	},
	"required": ["recommendations"]
}`)

// Analyzer produces per-file deletion recommendations. It consults the
// result cache before any network call and degrades to rule-based
// analysis when the model API is unavailable.
type Analyzer struct {
	client   *openai.Client
	cfg      config.LLMConfig
	cache    *cache.Manager
	guard    *safety.Evaluator
	fallback *RuleBased
}

// New creates an Analyzer. The cache may be nil to disable caching.
func New(cfg config.LLMConfig, c *cache.Manager, guard *safety.Evaluator) *Analyzer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Analyzer{
		client:   openai.NewClientWithConfig(clientCfg),
		cfg:      cfg,
		cache:    c,
		guard:    guard,
		fallback: NewRuleBased(),
	}
}

// Params returns the analysis parameters that key the cache.
func (a *Analyzer) Params() models.AnalysisParameters {
	return models.AnalysisParameters{
		Model:       a.cfg.Model,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
		RuleSet:     a.guard.RuleSetID(),
	}
}

// Analyze returns recommendations for the given file set. A cached
// result is returned as-is; otherwise the model is called in batches
// and the merged result is cached. API failure is not fatal: the
// rule-based fallback takes over and the error kind is recorded.
func (a *Analyzer) Analyze(ctx context.Context, files []models.FileMetadata) (*models.AnalysisResult, error) {
	if len(files) == 0 {
		return &models.AnalysisResult{Mode: models.ModeAI}, nil
	}

	params := a.Params()
	if a.cache != nil {
		if blob, ok := a.cache.GetCachedResult(files, params); ok {
			var res models.AnalysisResult
			if err := json.Unmarshal(blob, &res); err == nil {
				log.Debug().Int("files", len(files)).Msg("analysis served from cache")
				return &res, nil
			}
			log.Warn().Msg("cached analysis blob undecodable, re-analyzing")
		}
	}

	res, err := a.analyzeRemote(ctx, files)
	if err != nil {
		kind := classify(err)
		log.Warn().Err(err).Str("kind", kind).Msg("model analysis failed, using rule-based fallback")
		res = a.fallback.Analyze(files)
		res.ErrorKind = kind
		res.Recommendations = a.guard.Apply(res.Recommendations, files)
		res.Summarize(files)
		return res, nil
	}

	res.Recommendations = a.guard.Apply(res.Recommendations, files)
	res.Summarize(files)

	if a.cache != nil {
		blob, err := json.Marshal(res)
		if err == nil {
			if err := a.cache.CacheResult(files, params, blob, 0); err != nil {
				log.Debug().Err(err).Msg("analysis result not cached")
			}
		}
	}
	return res, nil
}

func (a *Analyzer) analyzeRemote(ctx context.Context, files []models.FileMetadata) (*models.AnalysisResult, error) {
	batch := a.cfg.BatchSize
	if batch <= 0 {
		batch = len(files)
	}

	res := &models.AnalysisResult{Mode: models.ModeAI}
	for start := 0; start < len(files); start += batch {
		end := start + batch
		if end > len(files) {
			end = len(files)
		}
		recs, usage, err := a.analyzeBatch(ctx, files[start:end])
		if err != nil {
			return nil, err
		}
		res.Recommendations = append(res.Recommendations, recs...)
		res.PromptTokens += usage.PromptTokens
		res.CompletionTokens += usage.CompletionTokens
	}
	return res, nil
}

func (a *Analyzer) analyzeBatch(ctx context.Context, files []models.FileMetadata) ([]models.FileRecommendation, openai.Usage, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		Temperature: a.cfg.Temperature,
		MaxTokens:   a.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(files)},
		},
		Tools: []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        toolName,
				Description: "Report a cleanup recommendation for every file in the batch.",
				Parameters:  toolSchema,
			},
		}},
		ToolChoice: openai.ToolChoice{
			Type:     openai.ToolTypeFunction,
			Function: openai.ToolFunction{Name: toolName},
		},
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, openai.Usage{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, resp.Usage, errors.New("chat completion: empty response")
	}

	var call *openai.ToolCall
	for i := range resp.Choices[0].Message.ToolCalls {
		if resp.Choices[0].Message.ToolCalls[i].Function.Name == toolName {
			call = &resp.Choices[0].Message.ToolCalls[i]
			break
		}
	}
	if call == nil {
		return nil, resp.Usage, errors.New("chat completion: no tool call in response")
	}

	var parsed struct {
		Recommendations []models.FileRecommendation `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(call.Function.Arguments), &parsed); err != nil {
		return nil, resp.Usage, fmt.Errorf("parse tool arguments: %w", err)
	}

	// Keep only recommendations for files we actually asked about.
	known := make(map[string]bool, len(files))
	for _, f := range files {
		known[f.Path] = true
	}
	recs := parsed.Recommendations[:0]
	for _, r := range parsed.Recommendations {
		if !known[r.Path] {
			log.Warn().Str("path", r.Path).Msg("dropping recommendation for unknown path")
			continue
		}
		if r.Confidence < 0 || r.Confidence > 1 {
			r.Confidence = 0
		}
		recs = append(recs, r)
	}
	return recs, resp.Usage, nil
}

const systemPrompt = `You are a disk cleanup assistant. You receive file metadata only:
path, size, modification time, and a coarse type. You never see file
contents. For each file, judge whether it is safe to delete, must be
kept, or needs human review. Be conservative: when unsure, say review.`

func buildPrompt(files []models.FileMetadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze these %d files for cleanup:\n\n", len(files))
	for _, f := range files {
		fmt.Fprintf(&b, "- path=%s type=%s size=%d modified=%s hidden=%t\n",
			f.Path, f.FileType, f.SizeBytes, f.ModifiedAt.UTC().Format(time.RFC3339), f.IsHidden)
	}
	b.WriteString("\nUse the " + toolName + " function to answer for every file.")
	return b.String()
}

// classify maps an API error onto the recorded error kinds.
func classify(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == 401 || apiErr.HTTPStatusCode == 403:
			return models.ErrKindAuth
		case apiErr.HTTPStatusCode == 429:
			return models.ErrKindRateLimit
		case apiErr.HTTPStatusCode >= 500:
			return models.ErrKindServer
		}
		return models.ErrKindUnknown
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch {
		case reqErr.HTTPStatusCode == 401 || reqErr.HTTPStatusCode == 403:
			return models.ErrKindAuth
		case reqErr.HTTPStatusCode == 429:
			return models.ErrKindRateLimit
		case reqErr.HTTPStatusCode >= 500:
			return models.ErrKindServer
		}
		return models.ErrKindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrKindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return models.ErrKindTimeout
		}
		return models.ErrKindNetwork
	}
	return models.ErrKindUnknown
}
