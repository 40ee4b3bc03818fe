package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// drain collects a stream; it fails the test if the stream never closes.
func drain(t *testing.T, ch <-chan Result) ([]RequestOutput, error) {
	t.Helper()
	var outs []RequestOutput
	timeout := time.After(10 * time.Second)
	for {
		select {
		case r, ok := <-ch:
			if !ok {
				return outs, nil
			}
			if r.Err != nil {
				return outs, r.Err
			}
			outs = append(outs, r.Output)
		case <-timeout:
			t.Fatal("stream did not close")
		}
	}
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds {
		got, err := ParseKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	got, err := ParseKind("  VLLM-Server ")
	require.NoError(t, err)
	assert.Equal(t, KindVLLMServer, got)

	_, err = ParseKind("tgi")
	assert.Error(t, err)
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, "vllm", o.Bin)
	assert.Equal(t, "127.0.0.1", o.Host)
	assert.Equal(t, 10*time.Minute, o.StartupTimeout)
}

func TestStandIn(t *testing.T) {
	s := NewStandIn("m")
	assert.Equal(t, "m", s.Name())
	assert.Equal(t, ModeStandIn, s.Mode())

	ch, err := s.Generate(testCtx(t), "User: hi\nAssistant:", SamplingParams{MaxTokens: 4}, "r1")
	require.NoError(t, err)
	outs, err := drain(t, ch)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.True(t, outs[0].Finished)
	assert.Equal(t, "r1", outs[0].RequestID)
	assert.Equal(t, StandInText, outs[0].Outputs[0].Text)
	assert.Equal(t, "stop", outs[0].Outputs[0].FinishReason)
	assert.NoError(t, s.Close())
}

func TestStandIn_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStandIn("m").Generate(ctx, "p", SamplingParams{}, "r")
	assert.ErrorIs(t, err, context.Canceled)
}
