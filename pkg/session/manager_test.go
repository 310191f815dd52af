package session

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreVersioning(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, 24*time.Hour)
	defer store.Close()

	sess := &Session{ID: "s1", UserID: "u1"}
	require.NoError(t, store.Create(ctx, sess))
	assert.EqualValues(t, 1, sess.Version)

	a, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, a)
	b, err := store.Get(ctx, "s1")
	require.NoError(t, err)

	a.CurrentTopic = "jeans"
	require.NoError(t, store.Update(ctx, a))
	assert.EqualValues(t, 2, a.Version)

	// b still carries version 1; its write must be rejected.
	b.CurrentTopic = "shoes"
	assert.ErrorIs(t, store.Update(ctx, b), ErrVersionConflict)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "jeans", got.CurrentTopic)
}

func TestMemoryStoreCopiesDoNotShareHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, time.Hour)
	defer store.Close()

	sess := &Session{ID: "s1", History: make([]Turn, 0, 4)}
	for i := 0; i < 3; i++ {
		sess.History = append(sess.History, Turn{UserMessage: "msg " + strconv.Itoa(i)})
	}
	require.NoError(t, store.Create(ctx, sess))

	winner, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	loser, err := store.Get(ctx, "s1")
	require.NoError(t, err)

	winner.History = append(winner.History, Turn{UserMessage: "winner"})
	require.NoError(t, store.Update(ctx, winner))

	// The losing writer appends into its own copy before the version
	// check rejects it. The committed turn must survive that append,
	// which requires the copies not to share a History backing array.
	loser.History = append(loser.History, Turn{UserMessage: "loser"})
	assert.ErrorIs(t, store.Update(ctx, loser), ErrVersionConflict)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, got.History, 4)
	assert.Equal(t, "winner", got.History[3].UserMessage)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(10*time.Millisecond, time.Hour)
	defer store.Close()

	require.NoError(t, store.Create(ctx, &Session{ID: "s1"}))
	time.Sleep(25 * time.Millisecond)

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStoreUnknownSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, time.Hour)
	defer store.Close()

	got, err := store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, store.Update(ctx, &Session{ID: "nope", Version: 1}), ErrNotFound)
}

func TestMemoryStoreSweeperSchedule(t *testing.T) {
	store := NewMemoryStore(time.Hour, time.Hour)
	defer store.Close()

	assert.Error(t, store.StartSweeper(context.Background(), "not a schedule"))
	assert.NoError(t, store.StartSweeper(context.Background(), "*/10 * * * *"))
}

func TestManagerTouchCreatesAndResumes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, time.Hour)
	defer store.Close()
	m := NewManager(store, time.Hour, 20)

	created := m.Touch(ctx, "", "u1")
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "u1", created.UserID)
	assert.Equal(t, DefaultPreferences().PriceRange, created.Preferences.PriceRange)

	resumed := m.Touch(ctx, created.ID, "u1")
	assert.Equal(t, created.ID, resumed.ID)
	assert.EqualValues(t, 1, resumed.Version)
}

func TestManagerTouchExpiredSessionStartsFresh(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, time.Hour)
	defer store.Close()
	m := NewManager(store, 50*time.Millisecond, 20)

	created := m.Touch(ctx, "", "u1")
	m.SetTopic(ctx, created.ID, "hoodies")
	time.Sleep(80 * time.Millisecond)

	fresh := m.Touch(ctx, created.ID, "u1")
	assert.Empty(t, fresh.CurrentTopic)
	assert.Empty(t, fresh.History)
}

func TestManagerAppendTurnCapsHistory(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, time.Hour)
	defer store.Close()
	m := NewManager(store, time.Hour, 5)

	sess := m.Touch(ctx, "", "u1")
	for i := 0; i < 8; i++ {
		m.AppendTurn(ctx, sess.ID, Turn{UserMessage: "msg " + strconv.Itoa(i)})
	}

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 5)
	assert.Equal(t, "msg 3", got.History[0].UserMessage)
	assert.Equal(t, "msg 7", got.History[4].UserMessage)
}

// conflictStore rejects the first update with a version conflict to force
// the manager's retry path.
type conflictStore struct {
	*MemoryStore
	rejected bool
}

func (c *conflictStore) Update(ctx context.Context, s *Session) error {
	if !c.rejected {
		c.rejected = true
		return ErrVersionConflict
	}
	return c.MemoryStore.Update(ctx, s)
}

func TestManagerRetriesOnVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := &conflictStore{MemoryStore: NewMemoryStore(time.Hour, time.Hour)}
	defer store.Close()
	m := NewManager(store, time.Hour, 20)

	sess := m.Touch(ctx, "", "u1")
	m.AppendTurn(ctx, sess.ID, Turn{UserMessage: "hello"})

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.History, 1)
	assert.True(t, store.rejected)
}

func TestManagerPendingQuestions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, time.Hour)
	defer store.Close()
	m := NewManager(store, time.Hour, 20)

	sess := m.Touch(ctx, "", "u1")
	m.AddPendingQuestion(ctx, sess.ID, "what size jeans?")
	m.AddPendingQuestion(ctx, sess.ID, "any black ones?")

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"what size jeans?", "any black ones?"}, got.PendingQuestions)

	m.ClearPendingQuestions(ctx, sess.ID)
	got, err = store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, got.PendingQuestions)
}

func TestManagerSetScratch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, time.Hour)
	defer store.Close()
	m := NewManager(store, time.Hour, 20)

	sess := m.Touch(ctx, "", "u1")
	m.SetScratch(ctx, sess.ID, "last_offer", "hoodie-oversize")
	m.SetScratch(ctx, sess.ID, "last_offer", "jeans-slim")

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "jeans-slim", got.Scratch["last_offer"])
}

func TestManagerLearnPreferencesUnion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Hour, time.Hour)
	defer store.Close()
	m := NewManager(store, time.Hour, 20)

	m.LearnPreferences(ctx, "u1", map[string][]string{
		"product_type": {"jeans"},
		"color":        {"black"},
		"price_range":  {"under 500000"},
	})
	m.LearnPreferences(ctx, "u1", map[string][]string{
		"product_type": {"jeans", "hoodie"},
		"size":         {"l"},
	})

	p := m.Preferences(ctx, "u1")
	assert.Equal(t, []string{"jeans", "hoodie"}, p.Categories)
	assert.Equal(t, []string{"black"}, p.Colors)
	assert.Equal(t, []string{"l"}, p.Sizes)
	assert.Equal(t, PriceRange{Min: 0, Max: 500000}, p.PriceRange)
}

func TestParsePriceRange(t *testing.T) {
	cases := []struct {
		text string
		want PriceRange
	}{
		{"under 500000", PriceRange{Min: 0, Max: 500000}},
		{"over 200000", PriceRange{Min: 200000, Max: 1_000_000}},
		{"from 200000 to 300000", PriceRange{Min: 200000, Max: 300000}},
		{"300000 - 200000", PriceRange{Min: 200000, Max: 300000}},
		{"450000", PriceRange{Min: 0, Max: 450000}},
	}
	for _, tc := range cases {
		got, ok := parsePriceRange(tc.text)
		require.True(t, ok, tc.text)
		assert.Equal(t, tc.want, got, tc.text)
	}
}
