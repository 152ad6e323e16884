// Package core provides the main LlamaKeeper client and memory management functionality.
package core

// CreateOption is a function type for configuring CreateMemory operations.
//
// Options are applied using the functional options pattern, allowing
// flexible configuration without requiring all parameters.
type CreateOption func(*CreateOptions)

// CreateOptions contains configuration options for CreateMemory operations.
type CreateOptions struct {
	// Importance is the initial importance weight. Clamped into [0,1].
	Importance float64

	// Context contains the flat scalar tags attached to the memory.
	Context map[string]interface{}
}

// WithImportance sets the initial importance for CreateMemory.
//
// Example:
//
//	memory, _ := client.CreateMemory(ctx, "char_001", "content", core.WithImportance(0.8))
func WithImportance(importance float64) CreateOption {
	return func(opts *CreateOptions) {
		opts.Importance = importance
	}
}

// WithContext sets the context tags for CreateMemory.
//
// Example:
//
//	memory, _ := client.CreateMemory(ctx, "char_001", "content",
//	    core.WithContext(map[string]interface{}{"loc": "forest"}))
func WithContext(context map[string]interface{}) CreateOption {
	return func(opts *CreateOptions) {
		opts.Context = context
	}
}

// applyCreateOptions applies CreateOption functions over the defaults.
func applyCreateOptions(opts []CreateOption) *CreateOptions {
	options := &CreateOptions{
		Importance: 0.5,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// RetrieveOption is a function type for configuring RetrieveRelevantMemories.
type RetrieveOption func(*RetrieveOptions)

// RetrieveOptions contains configuration options for retrieval operations.
type RetrieveOptions struct {
	// TopK is the maximum number of memories to return.
	TopK int
}

// WithTopK sets the maximum number of memories returned by retrieval.
//
// Example:
//
//	memories, _ := client.RetrieveRelevantMemories(ctx, "char_001", queryCtx, core.WithTopK(10))
func WithTopK(topK int) RetrieveOption {
	return func(opts *RetrieveOptions) {
		opts.TopK = topK
	}
}

// applyRetrieveOptions applies RetrieveOption functions.
//
// TopK stays zero when not set; the client resolves it from its configuration
// (default 5).
func applyRetrieveOptions(opts []RetrieveOption) *RetrieveOptions {
	options := &RetrieveOptions{}
	for _, opt := range opts {
		opt(options)
	}
	return options
}

// ForgetOption is a function type for configuring ForgetOldMemories.
type ForgetOption func(*ForgetOptions)

// ForgetOptions contains configuration options for forgetting operations.
type ForgetOptions struct {
	// MaxMemories is the per-character memory cap.
	MaxMemories int

	// ForgetThreshold is the importance below which memories are forgotten.
	ForgetThreshold float64
}

// WithMaxMemories sets the per-character memory cap for ForgetOldMemories.
//
// Example:
//
//	evicted, _ := client.ForgetOldMemories(ctx, "char_001", core.WithMaxMemories(50))
func WithMaxMemories(max int) ForgetOption {
	return func(opts *ForgetOptions) {
		opts.MaxMemories = max
	}
}

// WithForgetThreshold sets the importance threshold for ForgetOldMemories.
//
// Example:
//
//	evicted, _ := client.ForgetOldMemories(ctx, "char_001", core.WithForgetThreshold(0.3))
func WithForgetThreshold(threshold float64) ForgetOption {
	return func(opts *ForgetOptions) {
		opts.ForgetThreshold = threshold
	}
}

// applyForgetOptions applies ForgetOption functions.
//
// MaxMemories stays zero and ForgetThreshold stays negative when not set; the
// client resolves both from its configuration (defaults 100 and 0.2). An
// explicit WithForgetThreshold(0) disables the threshold rule.
func applyForgetOptions(opts []ForgetOption) *ForgetOptions {
	options := &ForgetOptions{
		ForgetThreshold: -1,
	}
	for _, opt := range opts {
		opt(options)
	}
	return options
}
