package engine

import "context"

// StandInText is the completion returned by the stand-in engine.
const StandInText = "Demo response: This is a mock response since vLLM is not available."

// StandIn answers every prompt with StandInText in a single finished output.
// It is used when no real backend could be loaded.
type StandIn struct {
	model string
}

// NewStandIn returns a stand-in reporting model as its name.
func NewStandIn(model string) *StandIn { return &StandIn{model: model} }

func (s *StandIn) Generate(ctx context.Context, _ string, _ SamplingParams, requestID string) (<-chan Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan Result, 1)
	ch <- Result{Output: RequestOutput{
		RequestID: requestID,
		Outputs:   []CompletionOutput{{Index: 0, Text: StandInText, FinishReason: "stop"}},
		Finished:  true,
	}}
	close(ch)
	return ch, nil
}

func (s *StandIn) Name() string { return s.model }
func (s *StandIn) Mode() Mode   { return ModeStandIn }
func (s *StandIn) Close() error { return nil }
