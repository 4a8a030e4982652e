package llm

import "context"

type contextKey string

const (
	purposeKey contextKey = "llm_purpose"
	runIDKey   contextKey = "llm_run_id"
)

// PurposeDatasetGen labels requests made while generating dataset items.
const PurposeDatasetGen = "dataset-gen"

// WithPurpose attaches a purpose label to the context for event logging.
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

// WithRunID attaches a generation run ID so audited requests can be traced
// back to the run that made them.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFrom returns the run ID on the context, or "".
func RunIDFrom(ctx context.Context) string {
	v, _ := ctx.Value(runIDKey).(string)
	return v
}
