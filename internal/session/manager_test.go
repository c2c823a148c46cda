package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectStep(into *[]string, action Action) Step {
	return func(_ context.Context, text string) Action {
		*into = append(*into, text)
		return action
	}
}

func TestFeedWithoutSession(t *testing.T) {
	m := NewManager(time.Minute)
	assert.Equal(t, NotMine, m.Feed(context.Background(), 1, "hello"))
	assert.False(t, m.IsActive(1))
}

func TestStepSequence(t *testing.T) {
	m := NewManager(time.Minute)
	ctx := context.Background()

	var first, second []string
	m.Start(1, collectStep(&first, Next), collectStep(&second, Done))

	require.True(t, m.IsActive(1))
	assert.Equal(t, Handled, m.Feed(ctx, 1, "one"))
	assert.Equal(t, Handled, m.Feed(ctx, 1, "two"))
	assert.Equal(t, []string{"one"}, first)
	assert.Equal(t, []string{"two"}, second)
	assert.False(t, m.IsActive(1), "session ends after the last step")
	assert.Equal(t, NotMine, m.Feed(ctx, 1, "three"))
}

func TestRetryKeepsStep(t *testing.T) {
	m := NewManager(time.Minute)
	ctx := context.Background()

	var got []string
	retries := 0
	m.Start(1, func(_ context.Context, text string) Action {
		got = append(got, text)
		retries++
		if retries < 3 {
			return Retry
		}
		return Done
	})

	m.Feed(ctx, 1, "a")
	m.Feed(ctx, 1, "b")
	assert.True(t, m.IsActive(1))
	m.Feed(ctx, 1, "c")
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.False(t, m.IsActive(1))
}

func TestCancelKeywordCaseInsensitive(t *testing.T) {
	m := NewManager(time.Minute)
	ctx := context.Background()

	var got []string
	m.Start(1, collectStep(&got, Next), collectStep(&got, Done))

	assert.Equal(t, Cancelled, m.Feed(ctx, 1, "  /CaNcEl "))
	assert.Empty(t, got, "cancel never reaches a step")
	assert.False(t, m.IsActive(1))
}

func TestExplicitCancel(t *testing.T) {
	m := NewManager(time.Minute)

	var got []string
	m.Start(1, collectStep(&got, Done))

	assert.True(t, m.Cancel(1))
	assert.False(t, m.IsActive(1))
	assert.False(t, m.Cancel(1))
	assert.Equal(t, NotMine, m.Feed(context.Background(), 1, "late"))
}

func TestTimeoutReclaimedOnFeed(t *testing.T) {
	m := NewManager(10 * time.Millisecond)
	ctx := context.Background()

	var got []string
	m.Start(1, collectStep(&got, Done))
	time.Sleep(25 * time.Millisecond)

	assert.Equal(t, Expired, m.Feed(ctx, 1, "too late"))
	assert.Empty(t, got)
	assert.False(t, m.IsActive(1))
	assert.Equal(t, NotMine, m.Feed(ctx, 1, "again"))
}

func TestSweepReclaimsAbandonedSessions(t *testing.T) {
	m := NewManager(10 * time.Millisecond)

	var got []string
	m.Start(1, collectStep(&got, Done))
	m.Start(2, collectStep(&got, Done))
	time.Sleep(25 * time.Millisecond)
	m.Start(3, collectStep(&got, Done))
	// refresh session 3 so only the abandoned two are swept
	m.mu.Lock()
	m.sessions[3].deadline = time.Now().Add(time.Minute)
	m.mu.Unlock()

	assert.Equal(t, 2, m.Sweep())
	assert.False(t, m.IsActive(1))
	assert.False(t, m.IsActive(2))
	assert.True(t, m.IsActive(3))
}

func TestStartReplacesActiveSession(t *testing.T) {
	m := NewManager(time.Minute)
	ctx := context.Background()

	var old, fresh []string
	m.Start(1, collectStep(&old, Done))
	m.Start(1, collectStep(&fresh, Done))

	m.Feed(ctx, 1, "input")
	assert.Empty(t, old, "replaced session must never see input")
	assert.Equal(t, []string{"input"}, fresh)
}

func TestUsersDoNotShareSessions(t *testing.T) {
	m := NewManager(time.Minute)
	ctx := context.Background()

	var a, b []string
	m.Start(1, collectStep(&a, Next), collectStep(&a, Done))
	m.Start(2, collectStep(&b, Next), collectStep(&b, Done))

	m.Feed(ctx, 1, "a1")
	m.Feed(ctx, 2, "b1")
	m.Feed(ctx, 2, "b2")
	m.Feed(ctx, 1, "a2")

	assert.Equal(t, []string{"a1", "a2"}, a)
	assert.Equal(t, []string{"b1", "b2"}, b)
}

func TestRapidFireInputIsSerialized(t *testing.T) {
	m := NewManager(time.Minute)
	ctx := context.Background()

	var mu sync.Mutex
	running := false
	overlapped := false
	m.Start(1, func(_ context.Context, _ string) Action {
		mu.Lock()
		if running {
			overlapped = true
		}
		running = true
		mu.Unlock()

		time.Sleep(2 * time.Millisecond)

		mu.Lock()
		running = false
		mu.Unlock()
		return Retry
	})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Feed(ctx, 1, "tap")
		}()
	}
	wg.Wait()

	assert.False(t, overlapped, "one user's step handlers must never run concurrently")
}
