package session

import (
	"testing"
	"time"

	"github.com/KaramelBytes/datapilot-cli/internal/csvsample"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(ttl time.Duration) *Store {
	return NewStore(ttl, func(id string) *Session {
		return New(id, &fakeAnalyzer{}, csvsample.DefaultConfig())
	})
}

func TestStoreCreateAndGet(t *testing.T) {
	st := newTestStore(time.Minute)
	s := st.Create()
	_, err := uuid.Parse(s.ID)
	require.NoError(t, err)

	got, ok := st.Get(s.ID)
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, 1, st.Len())
	assert.Equal(t, time.Minute, st.TTL())

	_, ok = st.Get("")
	assert.False(t, ok)
	_, ok = st.Get("nope")
	assert.False(t, ok)
}

func TestStoreGetOrCreate(t *testing.T) {
	st := newTestStore(time.Minute)
	s, created := st.GetOrCreate("unknown")
	assert.True(t, created)
	assert.NotEqual(t, "unknown", s.ID)

	again, created := st.GetOrCreate(s.ID)
	assert.False(t, created)
	assert.Same(t, s, again)

	st.Delete(s.ID)
	_, ok := st.Get(s.ID)
	assert.False(t, ok)
}

func TestStoreExpiresIdleSessions(t *testing.T) {
	st := newTestStore(50 * time.Millisecond)
	s := st.Create()
	time.Sleep(120 * time.Millisecond)
	_, ok := st.Get(s.ID)
	assert.False(t, ok)
}

func TestStoreSessionsAreIndependent(t *testing.T) {
	st := newTestStore(time.Minute)
	a, b := st.Create(), st.Create()
	require.NoError(t, a.SelectFile("a.csv", []byte(attendance), SourcePicker))
	assert.NotNil(t, a.View().Sample)
	assert.Nil(t, b.View().Sample)
}
