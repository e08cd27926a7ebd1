package sources

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"targetsync/internal/catalog"
	"targetsync/internal/config"
	"targetsync/internal/sources/filesystem"
	"targetsync/internal/sources/sqlite"
)

func TestOpen_File(t *testing.T) {
	cfg := config.SourceConfig{
		Type: config.SourceFile,
		File: config.FileSourceConfig{Path: filepath.Join(t.TempDir(), "targets.yaml")},
	}

	set, err := Open(cfg)
	require.NoError(t, err)
	defer set.Close()

	assert.IsType(t, &filesystem.Source{}, set.Targets)
	require.NotNil(t, set.Events)
	assert.Equal(t, filesystem.EventSourceName, set.Events.Name())
}

func TestOpen_SQLite(t *testing.T) {
	cfg := config.SourceConfig{
		Type:   config.SourceSQLite,
		SQLite: config.SQLiteSourceConfig{DSN: filepath.Join(t.TempDir(), "targets.db")},
	}

	set, err := Open(cfg)
	require.NoError(t, err)
	defer set.Close()

	assert.IsType(t, &sqlite.Source{}, set.Targets)
	assert.Nil(t, set.Events)

	page, err := set.Targets.List(context.Background(), 0, 10)
	require.NoError(t, err)
	assert.Empty(t, page)
}

func TestOpen_UnknownType(t *testing.T) {
	_, err := Open(config.SourceConfig{Type: "ftp"})
	assert.Error(t, err)
}

func TestOpen_KubernetesBadKubeconfig(t *testing.T) {
	_, err := Open(config.SourceConfig{
		Type:       config.SourceKubernetes,
		Kubernetes: config.KubernetesSourceConfig{Kubeconfig: filepath.Join(t.TempDir(), "missing")},
	})
	assert.Error(t, err)
}

func TestOpenAdmin_SharesDataWithSource(t *testing.T) {
	for _, cfg := range []config.SourceConfig{
		{Type: config.SourceFile, File: config.FileSourceConfig{Path: filepath.Join(t.TempDir(), "targets.yaml")}},
		{Type: config.SourceSQLite, SQLite: config.SQLiteSourceConfig{DSN: filepath.Join(t.TempDir(), "targets.db")}},
	} {
		t.Run(string(cfg.Type), func(t *testing.T) {
			ctx := context.Background()
			admin, closeAdmin, err := OpenAdmin(cfg)
			require.NoError(t, err)

			_, err = admin.Upsert(ctx, catalog.TargetDescriptor{RelationshipID: "rel-1", TargetElementType: "table"})
			require.NoError(t, err)
			assert.True(t, IsNotFound(admin.Delete(ctx, "missing")))
			require.NoError(t, closeAdmin())

			set, err := Open(cfg)
			require.NoError(t, err)
			defer set.Close()

			page, err := set.Targets.List(ctx, 0, 10)
			require.NoError(t, err)
			require.Len(t, page, 1)
			assert.Equal(t, "rel-1", page[0].RelationshipID)
		})
	}
}

func TestOpenAdmin_KubernetesIsReadOnly(t *testing.T) {
	_, _, err := OpenAdmin(config.SourceConfig{Type: config.SourceKubernetes})
	assert.ErrorIs(t, err, ErrReadOnly)
}
