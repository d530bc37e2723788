package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardForwardTransitions(t *testing.T) {
	s := newSession(1)
	assert.Equal(t, StepMenu, s.Current())

	require.True(t, s.Push(StepSelectBreed))
	require.True(t, s.Push(StepSelectIncubator))
	require.True(t, s.Push(StepSelectDate))
	require.True(t, s.Push(StepEnterQuantity))
	require.True(t, s.Push(StepEnterPhone))
	require.True(t, s.Push(StepConfirm))
	assert.Equal(t, StepConfirm, s.Current())
}

func TestWizardRejectsSkippedSteps(t *testing.T) {
	s := newSession(1)

	// Jumping straight to quantity without the earlier screens is illegal.
	assert.False(t, s.Push(StepEnterQuantity))
	assert.False(t, s.Push(StepConfirm))
	assert.Equal(t, StepMenu, s.Current())

	require.True(t, s.Push(StepSelectBreed))
	assert.False(t, s.Push(StepSelectDate))
	assert.Equal(t, StepSelectBreed, s.Current())
}

func TestBackPopsInOrder(t *testing.T) {
	s := newSession(1)
	s.Push(StepSelectBreed)
	s.Push(StepSelectIncubator)
	s.Push(StepSelectDate)

	assert.Equal(t, StepSelectIncubator, s.Back())
	assert.Equal(t, StepSelectBreed, s.Back())
	assert.Equal(t, StepMenu, s.Back())
}

func TestBackInvalidatesDownstreamAnswers(t *testing.T) {
	s := newSession(1)
	s.Push(StepSelectBreed)
	s.Draft.Breed = "Brahma"
	s.Push(StepSelectIncubator)
	s.Draft.Incubator = "North"
	s.Push(StepSelectDate)
	s.Draft.Date = "2026-09-10"
	s.Draft.StockID = 7
	s.Push(StepEnterQuantity)
	s.Draft.Quantity = 5

	// Back off the quantity screen clears only the quantity.
	assert.Equal(t, StepSelectDate, s.Back())
	assert.Zero(t, s.Draft.Quantity)
	assert.Equal(t, "2026-09-10", s.Draft.Date)

	// Back off the date screen drops the resolved batch too.
	assert.Equal(t, StepSelectIncubator, s.Back())
	assert.Empty(t, s.Draft.Date)
	assert.Zero(t, s.Draft.StockID)
	assert.Equal(t, "North", s.Draft.Incubator)

	assert.Equal(t, StepSelectBreed, s.Back())
	assert.Empty(t, s.Draft.Incubator)
	assert.Equal(t, "Brahma", s.Draft.Breed)
}

func TestBackFromLastFrameResetsButKeepsPhone(t *testing.T) {
	s := newSession(1)
	s.Push(StepSelectBreed)
	s.Draft.Breed = "Brahma"
	s.Draft.Phone = "+79001234567"

	assert.Equal(t, StepMenu, s.Back())
	assert.Equal(t, StepMenu, s.Back())

	assert.Empty(t, s.Draft.Breed)
	assert.Equal(t, "+79001234567", s.Draft.Phone)
	assert.Equal(t, []Step{StepMenu}, s.Stack)
}

func TestResetKeepsPhone(t *testing.T) {
	s := newSession(1)
	s.Push(StepSelectBreed)
	s.Draft = OrderDraft{Breed: "Cochin", Quantity: 3, Phone: "+79009998877"}

	s.Reset()
	assert.Equal(t, OrderDraft{Phone: "+79009998877"}, s.Draft)
	assert.Equal(t, StepMenu, s.Current())
}

func TestStoreSlidingTTL(t *testing.T) {
	st := NewStore(30 * time.Minute)
	current := time.Now()
	st.now = func() time.Time { return current }

	st.Update(1, func(s *Session) { s.Draft.Phone = "+79001234567" })

	// Touch inside the TTL keeps the session alive.
	current = current.Add(20 * time.Minute)
	assert.Equal(t, "+79001234567", st.Get(1).Draft.Phone)

	// Another 20 minutes without contact would have expired the original,
	// but the touch above slid the window.
	current = current.Add(20 * time.Minute)
	assert.Equal(t, "+79001234567", st.Get(1).Draft.Phone)

	// Past the full TTL the session is replaced with a fresh one.
	current = current.Add(31 * time.Minute)
	assert.Empty(t, st.Get(1).Draft.Phone)
}

func TestStoreSweepRemovesExpired(t *testing.T) {
	st := NewStore(time.Minute)
	current := time.Now()
	st.now = func() time.Time { return current }

	st.Get(1)
	st.Get(2)
	require.Equal(t, 2, st.Len())

	current = current.Add(2 * time.Minute)
	st.sweep()
	assert.Equal(t, 0, st.Len())
}

func TestStoreGetReturnsDetachedSnapshot(t *testing.T) {
	st := NewStore(time.Minute)

	st.Update(1, func(s *Session) {
		s.Push(StepSelectBreed)
		s.Draft.Breed = "Brahma"
	})

	// Writing through the snapshot must not leak into the store.
	snap := st.Get(1)
	snap.Draft.Breed = "Leghorn"
	snap.Stack = append(snap.Stack, StepSelectIncubator)

	assert.Equal(t, "Brahma", st.Get(1).Draft.Breed)
	assert.Equal(t, []Step{StepMenu, StepSelectBreed}, st.Get(1).Stack)
}

func TestStoreUpdateIsolation(t *testing.T) {
	st := NewStore(time.Minute)

	st.Update(1, func(s *Session) {
		s.Push(StepSelectBreed)
		s.Draft.Breed = "Brahma"
	})
	st.Update(2, func(s *Session) {
		s.Push(StepSelectBreed)
		s.Draft.Breed = "Leghorn"
	})

	assert.Equal(t, "Brahma", st.Get(1).Draft.Breed)
	assert.Equal(t, "Leghorn", st.Get(2).Draft.Breed)

	st.Delete(1)
	assert.Empty(t, st.Get(1).Draft.Breed)
	assert.Equal(t, "Leghorn", st.Get(2).Draft.Breed)
}
