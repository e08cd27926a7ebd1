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

const sampleTargets = `
targets:
  - relationshipId: rel-1
    versionStamp: "1"
    targetName: orders
    targetElementId: elem-1
    targetElementType: table
    configurationProperties:
      schema: sales
  - relationshipId: rel-2
    targetElementId: elem-2
    targetElementType: view
  - relationshipId: rel-3
    versionStamp: "9"
    targetElementId: elem-3
    targetElementType: table
    permittedSynchronization: none
`

func writeTargets(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestSource_ListPages(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	writeTargets(t, path, sampleTargets)
	s := NewSource(path)
	ctx := context.Background()

	page, err := s.List(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "rel-1", page[0].RelationshipID)
	assert.Equal(t, "orders", page[0].Name())
	assert.Equal(t, "sales", page[0].ConfigurationProperties["schema"])

	page, err = s.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, catalog.SyncNone, page[0].PermittedSynchronization)

	page, err = s.List(ctx, 3, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestSource_LaterPagesUseSameRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	writeTargets(t, path, sampleTargets)
	s := NewSource(path)
	ctx := context.Background()

	_, err := s.List(ctx, 0, 2)
	require.NoError(t, err)

	writeTargets(t, path, "targets: []\n")

	page, err := s.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1, "a sweep in progress must not see a half-applied file")

	page, err = s.List(ctx, 0, 2)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestSource_DerivedStampStableAndContentSensitive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	writeTargets(t, path, sampleTargets)
	s := NewSource(path)
	ctx := context.Background()

	first, err := s.List(ctx, 0, 10)
	require.NoError(t, err)
	second, err := s.List(ctx, 0, 10)
	require.NoError(t, err)

	assert.NotEmpty(t, first[1].VersionStamp)
	assert.Equal(t, first[1].VersionStamp, second[1].VersionStamp)

	edited := `
targets:
  - relationshipId: rel-2
    targetElementId: elem-2
    targetElementType: table
`
	writeTargets(t, path, edited)
	third, err := s.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.NotEqual(t, first[1].VersionStamp, third[0].VersionStamp)
}

func TestSource_MissingFileIsUnavailable(t *testing.T) {
	s := NewSource(filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := s.List(context.Background(), 0, 10)
	assert.ErrorIs(t, err, catalog.ErrSourceUnavailable)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("targets: {"))
	assert.Error(t, err)

	_, err = Parse([]byte("targets:\n  - targetElementId: x\n"))
	assert.ErrorContains(t, err, "relationshipId is required")
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	in := []catalog.TargetDescriptor{
		{RelationshipID: "a", VersionStamp: "1", TargetElementType: "table"},
	}
	require.NoError(t, WriteFile(path, in))

	out, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
