package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FabioYanezRomero/kg-constructor/internal/model"
	"github.com/FabioYanezRomero/kg-constructor/pkg/llm"
	"github.com/FabioYanezRomero/kg-constructor/pkg/llm/llmtest"
)

// Goal met by the initial extraction: no bridging call is made.
func TestRefine_GoalMetByInitial(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	bundle := testBundle(t)

	initial := initialTriples([3]string{"Alice", "knows", "Bob"})
	opts := testOptions() // max_disconnected=1, max_iterations=3

	triples, trace, err := Refine(ctx, client, bundle, "Alice knows Bob.", initial, opts)
	require.NoError(t, err)

	assert.Len(t, triples, 1)
	assert.Equal(t, model.StopConnectivityGoalAchieved, trace.StopReason)
	assert.Equal(t, 0, trace.IterationsUsed)
	assert.Empty(t, trace.Iterations)
	assert.False(t, trace.PartialResult)
	assert.Equal(t, 1, trace.InitialComponents)
}

// Single refinement iteration bridges the two components.
func TestRefine_SingleIterationReachesGoal(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	bundle := testBundle(t)

	client.On("GenerateJSON", mock.Anything, mock.AnythingOfType("llm.GenerateRequest")).
		Return([]llm.RawItem{bridgeItem("Bob", "met", "Carol")}, nil).Once()

	initial := initialTriples(
		[3]string{"Alice", "knows", "Bob"},
		[3]string{"Carol", "knows", "Dave"},
	)

	triples, trace, err := Refine(ctx, client, bundle, "Alice knows Bob. Carol knows Dave.", initial, testOptions())
	require.NoError(t, err)

	assert.Len(t, triples, 3)
	assert.Equal(t, model.StopConnectivityGoalAchieved, trace.StopReason)
	assert.Equal(t, 1, trace.IterationsUsed)
	require.Len(t, trace.Iterations, 1)
	assert.Equal(t, 1, trace.Iterations[0].Iteration)
	assert.Equal(t, 1, trace.Iterations[0].NewTriples)
	assert.Equal(t, 1, trace.Iterations[0].DisconnectedComponents)
	assert.Equal(t, model.IterationSuccess, trace.Iterations[0].Status)
	assert.Equal(t, 2, trace.InitialComponents)
	assert.Equal(t, 1, trace.FinalComponents)

	// The bridging triple is contextual and tagged with its iteration.
	last := triples[2]
	assert.Equal(t, model.InferenceContextual, last.Inference)
	assert.Equal(t, 1, last.IterationSource)
}

// The bridging response is a pure duplicate: early stop, nothing added.
func TestRefine_NoNewTriples(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	bundle := testBundle(t)

	client.On("GenerateJSON", mock.Anything, mock.AnythingOfType("llm.GenerateRequest")).
		Return([]llm.RawItem{bridgeItem("Alice", "knows", "Bob")}, nil).Once()

	initial := initialTriples(
		[3]string{"Alice", "knows", "Bob"},
		[3]string{"Carol", "knows", "Dave"},
	)

	triples, trace, err := Refine(ctx, client, bundle, "Alice knows Bob. Carol knows Dave.", initial, testOptions())
	require.NoError(t, err)

	assert.Len(t, triples, 2)
	assert.Equal(t, model.StopNoNewTriplesFound, trace.StopReason)
	assert.Equal(t, 1, trace.IterationsUsed)
	require.Len(t, trace.Iterations, 1)
	assert.Equal(t, 0, trace.Iterations[0].NewTriples)
	assert.Equal(t, model.StopNoNewTriplesFound, trace.Iterations[0].EarlyStopReason)
	assert.Equal(t, 2, trace.Iterations[0].DisconnectedComponents)
}

// New but intra-component triple: kept, but the loop stops on no progress.
func TestRefine_NoConnectivityImprovement(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	bundle := testBundle(t)

	client.On("GenerateJSON", mock.Anything, mock.AnythingOfType("llm.GenerateRequest")).
		Return([]llm.RawItem{bridgeItem("Alice", "friend_of", "Bob")}, nil).Once()

	initial := initialTriples(
		[3]string{"Alice", "knows", "Bob"},
		[3]string{"Carol", "knows", "Dave"},
	)

	triples, trace, err := Refine(ctx, client, bundle, "Alice knows Bob. Carol knows Dave.", initial, testOptions())
	require.NoError(t, err)

	assert.Len(t, triples, 3)
	assert.Equal(t, model.StopNoConnectivityImprovement, trace.StopReason)
	assert.Equal(t, 1, trace.IterationsUsed)
	require.Len(t, trace.Iterations, 1)
	assert.Equal(t, model.StopNoConnectivityImprovement, trace.Iterations[0].EarlyStopReason)
	assert.Equal(t, 2, trace.FinalComponents)
}

// Each iteration reduces components by one but the budget runs out first.
func TestRefine_MaxIterationsReached(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	bundle := testBundle(t)

	client.On("GenerateJSON", mock.Anything, mock.AnythingOfType("llm.GenerateRequest")).
		Return([]llm.RawItem{bridgeItem("B", "met", "C")}, nil).Once()
	client.On("GenerateJSON", mock.Anything, mock.AnythingOfType("llm.GenerateRequest")).
		Return([]llm.RawItem{bridgeItem("D", "met", "E")}, nil).Once()

	// Four components: A-B, C-D, E-F, G-H.
	initial := initialTriples(
		[3]string{"A", "r", "B"},
		[3]string{"C", "r", "D"},
		[3]string{"E", "r", "F"},
		[3]string{"G", "r", "H"},
	)

	opts := testOptions()
	opts.MaxIterations = 2

	triples, trace, err := Refine(ctx, client, bundle, "text", initial, opts)
	require.NoError(t, err)

	assert.Len(t, triples, 6)
	assert.Equal(t, model.StopMaxIterationsReached, trace.StopReason)
	assert.Equal(t, 2, trace.IterationsUsed)
	require.Len(t, trace.Iterations, 2)
	assert.Equal(t, 3, trace.Iterations[0].DisconnectedComponents)
	assert.Equal(t, 2, trace.Iterations[1].DisconnectedComponents)
	assert.Equal(t, 2, trace.FinalComponents)

	// Connectivity strictly improves on every successful iteration.
	assert.Less(t, trace.Iterations[1].DisconnectedComponents, trace.Iterations[0].DisconnectedComponents)
}

// A client failure preserves everything accumulated so far.
func TestRefine_LLMFailure(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	bundle := testBundle(t)

	clientErr := llm.NewClientError(llm.ErrKindHTTP, "mock", errors.New("backend exploded"))
	client.On("GenerateJSON", mock.Anything, mock.AnythingOfType("llm.GenerateRequest")).
		Return(nil, clientErr).Once()

	initial := initialTriples(
		[3]string{"Alice", "knows", "Bob"},
		[3]string{"Carol", "knows", "Dave"},
	)

	triples, trace, err := Refine(ctx, client, bundle, "text", initial, testOptions())
	require.NoError(t, err)

	assert.Len(t, triples, 2) // initial triples preserved
	assert.Equal(t, model.StopLLMFailure, trace.StopReason)
	assert.True(t, trace.PartialResult)
	assert.Equal(t, 0, trace.IterationsUsed)
	require.Len(t, trace.Iterations, 1)
	assert.Equal(t, model.IterationFailed, trace.Iterations[0].Status)
	assert.Contains(t, trace.Iterations[0].Error, "backend exploded")
}

// A failure on iteration 2 keeps iteration 1's bridging triples.
func TestRefine_FailureAfterProgressKeepsTriples(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	bundle := testBundle(t)

	client.On("GenerateJSON", mock.Anything, mock.AnythingOfType("llm.GenerateRequest")).
		Return([]llm.RawItem{bridgeItem("B", "met", "C")}, nil).Once()
	client.On("GenerateJSON", mock.Anything, mock.AnythingOfType("llm.GenerateRequest")).
		Return(nil, llm.NewClientError(llm.ErrKindTimeout, "mock", errors.New("deadline"))).Once()

	initial := initialTriples(
		[3]string{"A", "r", "B"},
		[3]string{"C", "r", "D"},
		[3]string{"E", "r", "F"},
	)

	triples, trace, err := Refine(ctx, client, bundle, "text", initial, testOptions())
	require.NoError(t, err)

	assert.Len(t, triples, 4)
	assert.Equal(t, model.StopLLMFailure, trace.StopReason)
	assert.True(t, trace.PartialResult)
	assert.Equal(t, 1, trace.IterationsUsed)
	require.Len(t, trace.Iterations, 2)
	assert.Equal(t, model.IterationSuccess, trace.Iterations[0].Status)
	assert.Equal(t, model.IterationFailed, trace.Iterations[1].Status)
}

// Cancellation surfaced by the client maps to cancelled, not llm_failure.
func TestRefine_ClientCancellation(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	bundle := testBundle(t)

	cancelErr := llm.NewClientError(llm.ErrKindCancelled, "mock", context.Canceled)
	client.On("GenerateJSON", mock.Anything, mock.AnythingOfType("llm.GenerateRequest")).
		Return(nil, cancelErr).Once()

	initial := initialTriples(
		[3]string{"Alice", "knows", "Bob"},
		[3]string{"Carol", "knows", "Dave"},
	)

	triples, trace, err := Refine(ctx, client, bundle, "text", initial, testOptions())
	require.NoError(t, err)

	assert.Len(t, triples, 2)
	assert.Equal(t, model.StopCancelled, trace.StopReason)
	assert.True(t, trace.PartialResult)
}

// Cancellation observed at the top of an iteration stops before any LM call.
func TestRefine_ContextCancelledBetweenIterations(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := llmtest.NewMockClient(t)
	bundle := testBundle(t)

	initial := initialTriples(
		[3]string{"Alice", "knows", "Bob"},
		[3]string{"Carol", "knows", "Dave"},
	)

	triples, trace, err := Refine(ctx, client, bundle, "text", initial, testOptions())
	require.NoError(t, err)

	assert.Len(t, triples, 2)
	assert.Equal(t, model.StopCancelled, trace.StopReason)
	assert.True(t, trace.PartialResult)
	assert.Empty(t, trace.Iterations)
}

// max_iterations=0 disables refinement entirely.
func TestRefine_RefinementDisabled(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	bundle := testBundle(t)

	initial := initialTriples(
		[3]string{"Alice", "knows", "Bob"},
		[3]string{"Carol", "knows", "Dave"},
	)

	opts := testOptions()
	opts.MaxIterations = 0

	triples, trace, err := Refine(ctx, client, bundle, "text", initial, opts)
	require.NoError(t, err)
	assert.Len(t, triples, 2)
	assert.Equal(t, model.StopMaxIterationsReached, trace.StopReason)

	// Input already within max_disconnected reports the goal instead.
	opts.MaxDisconnected = 2
	_, trace, err = Refine(ctx, client, bundle, "text", initial, opts)
	require.NoError(t, err)
	assert.Equal(t, model.StopConnectivityGoalAchieved, trace.StopReason)
}

// Refining an already-connected graph is idempotent.
func TestRefine_IdempotentOnConnectedGraph(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	bundle := testBundle(t)

	initial := initialTriples([3]string{"Alice", "knows", "Bob"}, [3]string{"Bob", "knows", "Carol"})

	for _, maxIter := range []int{1, 5, 100} {
		opts := testOptions()
		opts.MaxIterations = maxIter

		triples, trace, err := Refine(ctx, client, bundle, "text", initial, opts)
		require.NoError(t, err)
		assert.Equal(t, initial, triples)
		assert.Equal(t, model.StopConnectivityGoalAchieved, trace.StopReason)
		assert.Equal(t, 0, trace.IterationsUsed)
	}
}

// Bridging items that fail validation count as dropped, and an all-invalid
// response behaves like an empty one.
func TestRefine_InvalidBridgingItemsDropped(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	bundle := testBundle(t)

	client.On("GenerateJSON", mock.Anything, mock.AnythingOfType("llm.GenerateRequest")).
		Return([]llm.RawItem{
			rawItem("", "r", "X"),          // empty head
			rawItem("Bob", "met", "Carol"), // no justification
		}, nil).Once()

	initial := initialTriples(
		[3]string{"Alice", "knows", "Bob"},
		[3]string{"Carol", "knows", "Dave"},
	)

	triples, trace, err := Refine(ctx, client, bundle, "text", initial, testOptions())
	require.NoError(t, err)

	assert.Len(t, triples, 2)
	assert.Equal(t, model.StopNoNewTriplesFound, trace.StopReason)
	assert.Equal(t, 2, trace.DroppedItems)
}

// Order preservation: initial triples first, then iterations in order.
func TestRefine_OrderPreserved(t *testing.T) {
	ctx := context.Background()
	client := llmtest.NewMockClient(t)
	bundle := testBundle(t)

	client.On("GenerateJSON", mock.Anything, mock.AnythingOfType("llm.GenerateRequest")).
		Return([]llm.RawItem{bridgeItem("B", "met", "C")}, nil).Once()
	client.On("GenerateJSON", mock.Anything, mock.AnythingOfType("llm.GenerateRequest")).
		Return([]llm.RawItem{bridgeItem("D", "met", "E")}, nil).Once()

	initial := initialTriples(
		[3]string{"A", "r", "B"},
		[3]string{"C", "r", "D"},
		[3]string{"E", "r", "F"},
	)

	opts := testOptions()
	opts.MaxIterations = 5

	triples, _, err := Refine(ctx, client, bundle, "text", initial, opts)
	require.NoError(t, err)

	prev := -1
	for i, tr := range triples {
		assert.GreaterOrEqual(t, tr.IterationSource, prev, "triple %d out of order", i)
		prev = tr.IterationSource
	}
}
