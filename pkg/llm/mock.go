package llm

import "context"

// MockGateway is a configurable mock for testing inference functionality.
// Set the function fields to control behavior in tests.
type MockGateway struct {
	// StreamFunc is called when Stream is invoked. If nil, returns a
	// closed empty channel.
	StreamFunc func(ctx context.Context, req *GenerateRequest) (<-chan Fragment, error)

	// GenerateFunc is called when Generate is invoked. If nil, returns an
	// empty result.
	GenerateFunc func(ctx context.Context, req *GenerateRequest) (*GenerateResult, error)

	// EmbedFunc is called when Embed is invoked. If nil, returns nil.
	EmbedFunc func(ctx context.Context, inputs []string, model string) ([][]float32, error)

	// Model is returned by DefaultModel. Defaults to "mock-model".
	Model string

	// Call tracking for verification
	StreamCalls   int
	GenerateCalls int
	EmbedCalls    int

	// Captured inputs for verification
	LastStreamRequest   *GenerateRequest
	LastGenerateRequest *GenerateRequest
	LastEmbedInputs     []string
}

// NewMockGateway creates a new mock with sensible defaults.
func NewMockGateway() *MockGateway {
	return &MockGateway{Model: "mock-model"}
}

// Stream implements Gateway.
func (m *MockGateway) Stream(ctx context.Context, req *GenerateRequest) (<-chan Fragment, error) {
	m.StreamCalls++
	m.LastStreamRequest = req
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req)
	}
	ch := make(chan Fragment)
	close(ch)
	return ch, nil
}

// Generate implements Gateway.
func (m *MockGateway) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	m.GenerateCalls++
	m.LastGenerateRequest = req
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return &GenerateResult{}, nil
}

// Embed implements Gateway.
func (m *MockGateway) Embed(ctx context.Context, inputs []string, model string) ([][]float32, error) {
	m.EmbedCalls++
	m.LastEmbedInputs = inputs
	if m.EmbedFunc != nil {
		return m.EmbedFunc(ctx, inputs, model)
	}
	return nil, nil
}

// DefaultModel implements Gateway.
func (m *MockGateway) DefaultModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// Ensure MockGateway implements Gateway at compile time.
var _ Gateway = (*MockGateway)(nil)
