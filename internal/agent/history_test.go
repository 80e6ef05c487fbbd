package agent

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryStore_CreateAndClose(t *testing.T) {
	dataDir := t.TempDir()
	store, err := OpenHistoryStore(dataDir)
	require.NoError(t, err)
	require.NotNil(t, store.db)
	require.NoError(t, store.Close())

	_, err = os.Stat(filepath.Join(dataDir, "history.db"))
	require.NoError(t, err)
}

func TestHistoryStore_RecordAndRecent(t *testing.T) {
	ctx := context.Background()
	store, err := OpenHistoryStoreDSN(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Record(ctx, ActionRecord{
		SessionID: "s1", ToolUseID: "toolu_1", Tool: "computer",
		Input: `{"action":"screenshot"}`, HasImage: true, Duration: 250 * time.Millisecond,
	}))
	require.NoError(t, store.Record(ctx, ActionRecord{
		SessionID: "s1", ToolUseID: "toolu_2", Tool: "computer",
		Input: `{"action":"type","text":"hi","password":"pw"}`, Output: "Typed text: hi",
	}))
	require.NoError(t, store.Record(ctx, ActionRecord{
		SessionID: "s2", ToolUseID: "toolu_3", Tool: "computer",
		Input: `{"action":"bogus"}`, Error: "Invalid action: bogus",
	}))

	t.Run("newest first across sessions", func(t *testing.T) {
		recs, err := store.Recent(ctx, "", 10)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, "toolu_3", recs[0].ToolUseID)
		assert.Equal(t, "bogus", recs[0].Action)
		assert.Equal(t, "Invalid action: bogus", recs[0].Error)
	})

	t.Run("filters by session and limits", func(t *testing.T) {
		recs, err := store.Recent(ctx, "s1", 1)
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, "toolu_2", recs[0].ToolUseID)
		assert.Contains(t, recs[0].Input, "[redacted]")
		assert.NotZero(t, recs[0].CreatedAt)
	})

	t.Run("keeps image flag and duration", func(t *testing.T) {
		recs, err := store.Recent(ctx, "s1", 10)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.True(t, recs[1].HasImage)
		assert.Equal(t, 250*time.Millisecond, recs[1].Duration)
	})

	t.Run("requires IDs", func(t *testing.T) {
		err := store.Record(ctx, ActionRecord{Tool: "computer"})
		assert.Error(t, err)
	})
}

func TestHistoryStore_NilSafe(t *testing.T) {
	var store *HistoryStore
	assert.NoError(t, store.Close())
	_, err := store.Recent(context.Background(), "", 1)
	assert.Error(t, err)
}
