package todo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSynthesize_UsesFirstEntry(t *testing.T) {
	model := &scriptedModel{extract: func(prompt string) (string, error) {
		return entriesJSON(
			map[string]any{"task": "Call Ana Souza about the contract renewal", "priority": "high", "person_involved": "Ana Souza", "comments": nil, "due_date": nil},
			map[string]any{"task": "ignored second entry", "priority": "low"},
		), nil
	}}
	p := New(model, newFakeStore(), Options{Now: fixedNow})

	c, ok, err := p.Synthesize(context.Background(), "  call ana about contract  ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Candidate{Task: "Call Ana Souza about the contract renewal", Priority: PriorityHigh, PersonInvolved: "Ana Souza"}, c)

	require.Equal(t, 1, model.extractCalls())
	prompt := model.extractPrompts[0]
	assert.Contains(t, prompt, "USER MESSAGE:\ncall ana about contract\n")
	assert.Contains(t, prompt, "The current date is 2025-03-03.")
}

func TestSynthesize_NoEntries(t *testing.T) {
	model := &scriptedModel{}
	c, ok, err := New(model, newFakeStore(), Options{}).Synthesize(context.Background(), "hmm")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Candidate{}, c)
}

func TestSynthesize_BlankUtteranceSkipsModel(t *testing.T) {
	model := &scriptedModel{}
	_, ok, err := New(model, newFakeStore(), Options{}).Synthesize(context.Background(), "   ")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, model.extractCalls())
}

func TestSynthesize_PropagatesModelError(t *testing.T) {
	boom := errors.New("quota exceeded")
	model := &scriptedModel{extract: func(string) (string, error) { return "", boom }}
	_, ok, err := New(model, newFakeStore(), Options{}).Synthesize(context.Background(), "buy milk")
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
}

func TestCreateOne(t *testing.T) {
	store := newFakeStore(TaskList{ID: "l1", Name: "Tasks"})
	p := New(&scriptedModel{}, store, Options{})

	created, err := p.CreateOne(context.Background(), Candidate{Task: "buy milk", Priority: PriorityLow}, "")
	require.NoError(t, err)
	assert.Equal(t, CreatedTask{Title: "buy milk", TaskID: "task-1", ListID: "l1"}, created)

	store.failCreate["buy bread"] = true
	_, err = p.CreateOne(context.Background(), Candidate{Task: "buy bread"}, "l1")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "store rejected task"))
}
