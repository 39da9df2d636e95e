package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AazainKhan/luminate-ai-sub000/internal/store"
)

// EventLabels identify where an LLM call was routed.
type EventLabels struct {
	Provider string
	Tier     Tier
}

// LoggingProvider is a decorator that records every LLM request as an event.
type LoggingProvider struct {
	inner     Provider
	eventRepo store.EventRepo
	labels    EventLabels
	logger    *zap.Logger
}

// WithLogging wraps a Provider with event logging.
func WithLogging(p Provider, repo store.EventRepo, labels EventLabels, logger *zap.Logger) Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingProvider{inner: p, eventRepo: repo, labels: labels, logger: logger}
}

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)
	latency := time.Since(start)

	data := store.LLMRequestEventData{
		Provider:    l.labels.Provider,
		Model:       l.inner.ModelID(),
		Tier:        string(l.labels.Tier),
		Purpose:     PurposeFrom(ctx),
		TurnID:      TurnFrom(ctx),
		LatencyMs:   latency.Milliseconds(),
		Success:     err == nil,
		RequestBody: serializeRequest(req),
	}
	if resp != nil {
		data.Model = resp.Model
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		data.CachedTokens = resp.Usage.CachedInputTokens
		data.ResponseBody = string(resp.Content)
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	fields := []zap.Field{
		zap.String("purpose", data.Purpose),
		zap.String("tier", data.Tier),
		zap.String("model", data.Model),
		zap.Duration("latency", latency),
	}
	if data.TurnID != "" {
		fields = append(fields, zap.String("turn", data.TurnID))
	}
	switch {
	case IsRefused(err), IsAuth(err):
		l.logger.Error("llm call rejected", append(fields, zap.Error(err))...)
	case err != nil:
		l.logger.Warn("llm call failed", append(fields, zap.Error(err))...)
	default:
		l.logger.Debug("llm call", append(fields,
			zap.Int("input_tokens", data.InputTokens),
			zap.Int("cached_tokens", data.CachedTokens),
			zap.Int("output_tokens", data.OutputTokens))...)
	}

	// A failed event write never fails the request. The write is detached
	// from ctx so a cancelled turn still records what it spent.
	if logErr := l.eventRepo.AppendLLMRequest(context.WithoutCancel(ctx), data); logErr != nil {
		l.logger.Warn("failed to log LLM request event", zap.Error(logErr))
	}
	return resp, err
}

func (l *LoggingProvider) ModelID() string {
	return l.inner.ModelID()
}

// serializeRequest builds a readable representation of the LLM request.
func serializeRequest(req Request) string {
	var b strings.Builder

	if req.System != "" {
		if req.CacheSystem {
			b.WriteString("[system, cached]\n")
		} else {
			b.WriteString("[system]\n")
		}
		b.WriteString(req.System)
		b.WriteString("\n\n")
	}

	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n", m.Role)
		b.WriteString(m.Content)
		b.WriteString("\n\n")
	}

	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n", req.Schema.Name)
			b.Write(def)
			b.WriteString("\n")
		}
	}

	return b.String()
}
