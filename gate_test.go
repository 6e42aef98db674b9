package resourcecache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects dispatched batches in dispatch order.
type recorder struct {
	mu   sync.Mutex
	cmds []PendingCommand
}

func (r *recorder) dispatch(batch []PendingCommand) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cmds = append(r.cmds, batch...)
}

func (r *recorder) snapshot() []PendingCommand {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]PendingCommand(nil), r.cmds...)
}

func load(experienceID, payload string) PendingCommand {
	return PendingCommand{Kind: CommandLoadResources, ExperienceID: experienceID, Payload: payload}
}

func TestGate_QueuesUntilOpen(t *testing.T) {
	var g gate
	rec := &recorder{}

	g.submit(load("expA", `{"a":1}`), rec.dispatch)
	g.submit(load("expB", `{"b":2}`), rec.dispatch)

	assert.Empty(t, rec.snapshot(), "nothing may be dispatched before open")
	assert.Equal(t, 2, g.len())
	assert.Nil(t, g.object())

	require.True(t, g.open("counterpart", rec.dispatch))

	want := []PendingCommand{load("expA", `{"a":1}`), load("expB", `{"b":2}`)}
	if diff := cmp.Diff(want, rec.snapshot()); diff != "" {
		t.Errorf("drained commands mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 0, g.len())
	assert.True(t, g.ready.Load())
	assert.Equal(t, "counterpart", g.object())
}

func TestGate_BypassesQueueAfterOpen(t *testing.T) {
	var g gate
	rec := &recorder{}
	require.True(t, g.open("counterpart", rec.dispatch))

	g.submit(load("expA", "{}"), rec.dispatch)

	assert.Equal(t, 0, g.len())
	assert.Equal(t, []PendingCommand{load("expA", "{}")}, rec.snapshot())
}

func TestGate_SecondOpenIsNoop(t *testing.T) {
	var g gate
	rec := &recorder{}
	g.submit(load("expA", "{}"), rec.dispatch)

	require.True(t, g.open("first", rec.dispatch))
	assert.False(t, g.open("second", rec.dispatch))

	assert.Len(t, rec.snapshot(), 1, "second open must not re-drain")
	assert.Equal(t, "first", g.object(), "counterpart is written once")
}

func TestGate_CommandsDuringDrainKeepOrder(t *testing.T) {
	var g gate
	rec := &recorder{}
	g.submit(load("exp", "0"), rec.dispatch)

	// Commands arriving while the first batch is being dispatched must be
	// drained before the gate reports ready.
	extra := 3
	dispatch := func(batch []PendingCommand) {
		rec.dispatch(batch)
		if extra > 0 {
			extra--
			g.submit(load("exp", fmt.Sprint(3-extra)), rec.dispatch)
		}
	}
	require.True(t, g.open("counterpart", dispatch))
	g.submit(load("exp", "4"), rec.dispatch)

	var payloads []string
	for _, cmd := range rec.snapshot() {
		payloads = append(payloads, cmd.Payload)
	}
	assert.Equal(t, []string{"0", "1", "2", "3", "4"}, payloads)
}

func TestGate_ConcurrentSubmitAndOpen(t *testing.T) {
	const producers, perProducer = 8, 200

	var g gate
	rec := &recorder{}
	start := make(chan struct{})

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			<-start
			for i := 0; i < perProducer; i++ {
				g.submit(load(fmt.Sprintf("p%d", p), fmt.Sprint(i)), rec.dispatch)
			}
		}(p)
	}
	close(start)
	require.True(t, g.open("counterpart", rec.dispatch))
	wg.Wait()

	got := rec.snapshot()
	require.Len(t, got, producers*perProducer, "no command may be lost or duplicated")
	assert.Equal(t, 0, g.len())

	next := make(map[string]int)
	for _, cmd := range got {
		require.Equal(t, fmt.Sprint(next[cmd.ExperienceID]), cmd.Payload,
			"per-producer order broken for %s", cmd.ExperienceID)
		next[cmd.ExperienceID]++
	}
}
