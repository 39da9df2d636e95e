package llm

import "context"

type contextKey int

const (
	purposeKey contextKey = iota
	turnKey
)

// WithPurpose labels the calls made with ctx, e.g. "reasoning" or "explainer".
// The label ends up in the event log and selects MockProvider queues.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom extracts the purpose label from the context.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok {
		return v
	}
	return "unknown"
}

// WithTurn ties the calls made with ctx to a tutor turn so the event log
// can show every model call one answer cost.
func WithTurn(ctx context.Context, turnID string) context.Context {
	return context.WithValue(ctx, turnKey, turnID)
}

// TurnFrom returns the turn set by WithTurn, or "".
func TurnFrom(ctx context.Context) string {
	v, _ := ctx.Value(turnKey).(string)
	return v
}
