package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FabioYanezRomero/kg-constructor/internal/model"
	"github.com/FabioYanezRomero/kg-constructor/pkg/llm"
	"github.com/FabioYanezRomero/kg-constructor/pkg/llm/llmtest"
)

func TestProcessRecord_EmptyInput(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	client.On("ModelName").Return("mock-model")

	pipe := New(client, testRegistry(t))

	result, err := pipe.ProcessRecord(ctx, model.Record{ID: "r1", Text: "   \n\t"}, testOptions())
	require.NoError(t, err)

	assert.Equal(t, "r1", result.RecordID)
	assert.Empty(t, result.Triples)
	assert.True(t, result.Metadata.EmptyInput)
	assert.Equal(t, "mock-model", result.Metadata.ModelIdentifier)
}

func TestProcessRecord_GoalMetByInitialExtraction(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	client.On("ModelName").Return("mock-model")
	client.On("ExtractGrounded", mock.Anything, mock.AnythingOfType("llm.ExtractRequest")).
		Return([]llm.RawItem{rawItem("Alice", "knows", "Bob")}, nil).Once()

	pipe := New(client, testRegistry(t))

	result, err := pipe.ProcessRecord(ctx, model.Record{ID: "r1", Text: "Alice knows Bob."}, testOptions())
	require.NoError(t, err)

	require.Len(t, result.Triples, 1)
	meta := result.Metadata
	require.NotNil(t, meta.IterativeExtraction)
	assert.Equal(t, model.MethodIterative, meta.ExtractionMethod)
	assert.Equal(t, 0, meta.IterativeExtraction.FinalState.IterationsUsed)
	assert.Equal(t, model.StopConnectivityGoalAchieved, meta.IterativeExtraction.FinalState.StopReason)
	assert.Equal(t, 1, meta.IterativeExtraction.TotalLLMCalls)
	assert.False(t, meta.PartialResult)
}

func TestProcessRecord_FullRefinementFlow(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	client.On("ModelName").Return("mock-model")
	client.On("ExtractGrounded", mock.Anything, mock.AnythingOfType("llm.ExtractRequest")).
		Return([]llm.RawItem{
			rawItem("Alice", "knows", "Bob"),
			rawItem("Carol", "knows", "Dave"),
		}, nil).Once()
	client.On("GenerateJSON", mock.Anything, mock.AnythingOfType("llm.GenerateRequest")).
		Return([]llm.RawItem{bridgeItem("Bob", "met", "Carol")}, nil).Once()

	pipe := New(client, testRegistry(t))

	result, err := pipe.ProcessRecord(ctx, model.Record{ID: "r2", Text: "Alice knows Bob. Carol knows Dave."}, testOptions())
	require.NoError(t, err)

	require.Len(t, result.Triples, 3)
	meta := result.Metadata

	assert.Equal(t, 2, meta.ExtractionResults.InitialTriples)
	assert.Equal(t, 1, meta.ExtractionResults.BridgingTriples)
	assert.Equal(t, 2, meta.ExtractionResults.Explicit)
	assert.Equal(t, 1, meta.ExtractionResults.Contextual)

	require.NotNil(t, meta.IterativeExtraction)
	it := meta.IterativeExtraction
	assert.Equal(t, 1, it.FinalState.IterationsUsed)
	assert.Equal(t, model.StopConnectivityGoalAchieved, it.FinalState.StopReason)
	assert.Equal(t, 1, it.FinalState.ConnectivityImprovement) // 2 → 1
	assert.True(t, it.FinalState.IsConnected)
	assert.Equal(t, 2, it.TotalLLMCalls)
	assert.Len(t, it.RefinementIterations, it.FinalState.IterationsUsed)

	// Identity uniqueness over the returned set.
	seen := map[model.TripleKey]bool{}
	for _, tr := range result.Triples {
		assert.False(t, seen[tr.Key()], "duplicate identity %v", tr.Key())
		seen[tr.Key()] = true
	}
}

func TestProcessRecord_InitialExtractionFailurePropagates(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	client.On("ExtractGrounded", mock.Anything, mock.AnythingOfType("llm.ExtractRequest")).
		Return(nil, llm.NewClientError(llm.ErrKindHTTP, "mock", errors.New("boom"))).Once()

	pipe := New(client, testRegistry(t))

	_, err := pipe.ProcessRecord(ctx, model.Record{ID: "r3", Text: "some text"}, testOptions())
	require.Error(t, err)

	ce, ok := llm.AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, llm.ErrKindHTTP, ce.Kind)
}

func TestProcessRecord_UnknownDomain(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	pipe := New(client, testRegistry(t))

	opts := testOptions()
	opts.Domain = "nope"

	_, err := pipe.ProcessRecord(ctx, model.Record{ID: "r4", Text: "text"}, opts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "domain nope")
}

func TestProcessRecord_LLMFailureProducesPartialResult(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	client.On("ModelName").Return("mock-model")
	client.On("ExtractGrounded", mock.Anything, mock.AnythingOfType("llm.ExtractRequest")).
		Return([]llm.RawItem{
			rawItem("Alice", "knows", "Bob"),
			rawItem("Carol", "knows", "Dave"),
		}, nil).Once()
	client.On("GenerateJSON", mock.Anything, mock.AnythingOfType("llm.GenerateRequest")).
		Return(nil, llm.NewClientError(llm.ErrKindTimeout, "mock", errors.New("timed out"))).Once()

	pipe := New(client, testRegistry(t))

	result, err := pipe.ProcessRecord(ctx, model.Record{ID: "r5", Text: "Alice knows Bob. Carol knows Dave."}, testOptions())
	require.NoError(t, err)

	assert.Len(t, result.Triples, 2)
	assert.True(t, result.Metadata.PartialResult)
	require.NotNil(t, result.Metadata.IterativeExtraction)
	assert.Equal(t, model.StopLLMFailure, result.Metadata.IterativeExtraction.FinalState.StopReason)
}

func TestProcessRecord_SimpleOneStepMethod(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	client.On("ModelName").Return("mock-model")
	client.On("ExtractGrounded", mock.Anything, mock.AnythingOfType("llm.ExtractRequest")).
		Return([]llm.RawItem{rawItem("Alice", "knows", "Bob")}, nil).Once()

	pipe := New(client, testRegistry(t))

	opts := testOptions()
	opts.MaxIterations = 0

	result, err := pipe.ProcessRecord(ctx, model.Record{ID: "r6", Text: "Alice knows Bob."}, opts)
	require.NoError(t, err)

	assert.Equal(t, model.MethodSimple, result.Metadata.ExtractionMethod)
	assert.Nil(t, result.Metadata.IterativeExtraction)
}

func TestProcessBatch(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	client.On("ModelName").Return("mock-model")
	client.On("ExtractGrounded", mock.Anything, mock.AnythingOfType("llm.ExtractRequest")).
		Return([]llm.RawItem{rawItem("Alice", "knows", "Bob")}, nil)

	pipe := New(client, testRegistry(t))

	records := []model.Record{
		{ID: "a", Text: "Alice knows Bob."},
		{ID: "b", Text: "Alice knows Bob."},
		{ID: "c", Text: "Alice knows Bob."},
	}

	var mu sync.Mutex
	var done []string
	outcomes := pipe.ProcessBatch(ctx, records, testOptions(), 2, func(o BatchOutcome) {
		mu.Lock()
		done = append(done, o.RecordID)
		mu.Unlock()
	})

	require.Len(t, outcomes, 3)
	for i, o := range outcomes {
		assert.Equal(t, records[i].ID, o.RecordID)
		require.NoError(t, o.Err)
		assert.Len(t, o.Result.Triples, 1)
	}
	assert.Len(t, done, 3)
}
