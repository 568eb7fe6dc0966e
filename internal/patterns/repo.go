package patterns

import "context"

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, issues []IssueFrequency) error

// StoreIssues implements Sink.
func (f SinkFunc) StoreIssues(ctx context.Context, issues []IssueFrequency) error {
	return f(ctx, issues)
}
