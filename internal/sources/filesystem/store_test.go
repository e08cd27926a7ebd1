package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"targetsync/internal/catalog"
)

func TestStore_UpsertCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	store := NewStore(path)
	ctx := context.Background()

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	stored, err := store.Upsert(ctx, catalog.TargetDescriptor{
		RelationshipID:    "rel-1",
		TargetElementType: "table",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, stored.VersionStamp)

	listed, err := NewSource(path).List(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, stored.VersionStamp, listed[0].VersionStamp)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), stored.VersionStamp, "derived stamps are not written")
}

func TestStore_UpsertReplacesAndChangesStamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	store := NewStore(path)
	ctx := context.Background()

	first, err := store.Upsert(ctx, catalog.TargetDescriptor{RelationshipID: "rel-1", TargetElementType: "table"})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, catalog.TargetDescriptor{RelationshipID: "rel-2", TargetElementType: "table"})
	require.NoError(t, err)
	second, err := store.Upsert(ctx, catalog.TargetDescriptor{RelationshipID: "rel-1", TargetElementType: "view"})
	require.NoError(t, err)

	assert.NotEqual(t, first.VersionStamp, second.VersionStamp)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "rel-1", all[0].RelationshipID)
	assert.Equal(t, "view", all[0].TargetElementType)
}

func TestStore_KeepsExplicitStamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	writeTargets(t, path, `
targets:
  - relationshipId: pinned
    versionStamp: "7"
`)
	store := NewStore(path)
	ctx := context.Background()

	_, err := store.Upsert(ctx, catalog.TargetDescriptor{RelationshipID: "other"})
	require.NoError(t, err)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "7", all[0].VersionStamp)
}

func TestStore_Delete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	store := NewStore(path)
	ctx := context.Background()

	_, err := store.Upsert(ctx, catalog.TargetDescriptor{RelationshipID: "a"})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, catalog.TargetDescriptor{RelationshipID: "b"})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "a"))
	assert.ErrorIs(t, store.Delete(ctx, "a"), ErrNotFound)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "b", all[0].RelationshipID)
}

func TestStore_UpsertValidation(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "targets.yaml"))
	_, err := store.Upsert(context.Background(), catalog.TargetDescriptor{})
	assert.Error(t, err)
	_, err = store.Upsert(context.Background(), catalog.TargetDescriptor{RelationshipID: "x", PermittedSynchronization: "sideways"})
	assert.Error(t, err)
}
