package notify

import (
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainReturnsInOrderAndClears(t *testing.T) {
	q := NewQueue(5)
	q.Push("s1", KindSuccess, "Updated cart!")
	q.Push("s1", KindInfo, "Removed from cart!")
	q.Push("s2", KindWarning, "User not logged in!")

	got := q.Drain("s1")
	require.Len(t, got, 2)
	assert.Equal(t, KindSuccess, got[0].Kind)
	assert.Equal(t, "Removed from cart!", got[1].Message)
	assert.Empty(t, q.Drain("s1"))
	assert.Len(t, q.Drain("s2"), 1)
}

func TestPushDropsOldestPastCapacity(t *testing.T) {
	q := NewQueue(2)
	q.Push("s", KindInfo, "a")
	q.Push("s", KindInfo, "b")
	q.Push("s", KindInfo, "c")

	got := q.Drain("s")
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Message)
	assert.Equal(t, "c", got[1].Message)
}

func TestPushIgnoresEmptyKey(t *testing.T) {
	q := NewQueue(2)
	q.Push("", KindError, "lost")
	assert.Empty(t, q.Drain(""))
}

func TestUndrainedNoticesAreReclaimed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	q := newQueue(clock, 5)
	for i := 0; i < 500; i++ {
		q.Push(fmt.Sprint("s", i), KindSuccess, "Updated cart!")
	}
	require.Equal(t, 500, q.Pending())

	clock.Advance(time.Hour)
	q.Push("live", KindInfo, "Removed from cart!")
	assert.Equal(t, 1, q.Pending())
	assert.Empty(t, q.Drain("s0"))
	assert.Len(t, q.Drain("live"), 1)
}
