package todo

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shpitdev/commsync-todo/internal/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCommit_PartialFailureKeepsGoing(t *testing.T) {
	store := newFakeStore(TaskList{ID: "l1", Name: "Tasks"})
	store.failCreate["second"] = true
	cands := []Candidate{{Task: "first"}, {Task: "second"}, {Task: "third"}}

	res, err := New(&scriptedModel{}, store, Options{}).Commit(context.Background(), cands, "l1")
	require.NoError(t, err)
	require.Len(t, res.Created, 2)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "first", res.Created[0].Title)
	assert.Equal(t, "third", res.Created[1].Title)
	assert.Equal(t, "second", res.Errors[0].Task)
	assert.Equal(t, "store rejected task", res.Errors[0].Err)
	assert.Len(t, store.createCalls(), 3)
}

func TestCommit_FallsBackToFirstList(t *testing.T) {
	store := newFakeStore(TaskList{ID: "l1", Name: "Tasks"}, TaskList{ID: "l2", Name: "Work"})
	res, err := New(&scriptedModel{}, store, Options{}).Commit(context.Background(), []Candidate{{Task: "x"}}, "")
	require.NoError(t, err)
	assert.Equal(t, "l1", res.ListID)
	assert.Equal(t, "l1", store.createCalls()[0].ListID)
}

func TestCommit_NoListAvailable(t *testing.T) {
	store := newFakeStore()
	_, err := New(&scriptedModel{}, store, Options{}).Commit(context.Background(), []Candidate{{Task: "x"}}, "")
	assert.ErrorIs(t, err, ErrNoTaskList)
	assert.Empty(t, store.createCalls())
}

func TestCommit_ListLookupFailure(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("graph down")
	_, err := New(&scriptedModel{}, store, Options{}).Commit(context.Background(), []Candidate{{Task: "x"}}, "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoTaskList)
}

func TestCommit_NothingToCreateSkipsListLookup(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("must not be called")
	res, err := New(&scriptedModel{}, store, Options{}).Commit(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Empty(t, res.Created)
}

func TestCommit_MapsFields(t *testing.T) {
	store := newFakeStore(TaskList{ID: "l1"})
	cands := []Candidate{
		{Task: "a", Priority: PriorityHigh, Comments: "bring slides", PersonInvolved: "Maria Santos", DueDate: "2025-03-07"},
		{Task: "b", Priority: PriorityLow},
		{Task: "c", Priority: "whatever", PersonInvolved: "Joao Lima"},
	}
	_, err := New(&scriptedModel{}, store, Options{}).Commit(context.Background(), cands, "l1")
	require.NoError(t, err)

	calls := store.createCalls()
	require.Len(t, calls, 3)
	assert.Equal(t, NewTask{Title: "a", Body: "bring slides\n\nPerson involved: Maria Santos", DueDate: "2025-03-07", Importance: "high"}, calls[0].Task)
	assert.Equal(t, NewTask{Title: "b", Importance: "low"}, calls[1].Task)
	assert.Equal(t, NewTask{Title: "c", Body: "\nPerson involved: Joao Lima", Importance: "normal"}, calls[2].Task)
}

func TestImportance(t *testing.T) {
	assert.Equal(t, "high", Importance(PriorityHigh))
	assert.Equal(t, "low", Importance(PriorityLow))
	assert.Equal(t, "low", Importance("low priority"))
	assert.Equal(t, "normal", Importance(PriorityNormal))
	assert.Equal(t, "normal", Importance("neutral"))
	assert.Equal(t, "high", Importance(" HIGH "))
}

func TestImportance_AgreesWithGraphMapping(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		p := rapid.SampledFrom([]string{"high", "High", "low", "very low", "normal", "neutral", "", "urgent"}).Draw(t, "priority")
		if got, want := Importance(Priority(p)), graph.NormalizeImportance(p); got != want {
			t.Fatalf("Importance(%q)=%q, graph mapping=%q", p, got, want)
		}
	})
}

func TestCommit_AccountsForEveryCandidate(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(t, "n")
		store := newFakeStore(TaskList{ID: "l1"})
		cands := make([]Candidate, n)
		failing := 0
		for i := range cands {
			cands[i] = Candidate{Task: fmt.Sprintf("task %d", i)}
			if rapid.Bool().Draw(t, "fail") {
				store.failCreate[cands[i].Task] = true
				failing++
			}
		}

		res, err := New(&scriptedModel{}, store, Options{}).Commit(context.Background(), cands, "l1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := len(store.createCalls()); got != n {
			t.Fatalf("create calls = %d, want %d", got, n)
		}
		if len(res.Created)+len(res.Errors) != n {
			t.Fatalf("created %d + errors %d != %d", len(res.Created), len(res.Errors), n)
		}
		if len(res.Errors) != failing {
			t.Fatalf("errors = %d, want %d", len(res.Errors), failing)
		}
	})
}
