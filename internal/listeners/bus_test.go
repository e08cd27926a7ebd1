package listeners

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"targetsync/internal/catalog"
	"targetsync/internal/registry"
	"targetsync/internal/worker"
	"targetsync/pkg/logging"
)

type nopWorker struct{}

func (nopWorker) Refresh(context.Context) error { return nil }

func rec(id string) *registry.RequestedTarget {
	return registry.NewRequestedTarget(
		catalog.TargetDescriptor{RelationshipID: id, TargetName: "name-" + id},
		&worker.Built{Kind: "test", Worker: nopWorker{}},
		catalog.SyncNone,
	)
}

func recorder(name string, calls *[]string, err error) Listener {
	return ListenerFuncs{
		Created: func(_ context.Context, r *registry.RequestedTarget) error {
			*calls = append(*calls, name+":created:"+r.RelationshipID)
			return err
		},
		Updated: func(_ context.Context, old, updated *registry.RequestedTarget) error {
			*calls = append(*calls, name+":updated:"+old.RelationshipID+"->"+updated.RelationshipID)
			return err
		},
		Removed: func(_ context.Context, r *registry.RequestedTarget) error {
			*calls = append(*calls, name+":removed:"+r.RelationshipID)
			return err
		},
	}
}

func TestRegister_Validation(t *testing.T) {
	b := NewBus("c")
	assert.Error(t, b.Register("x", nil))
	assert.Error(t, b.Register("", ListenerFuncs{}))
	assert.NoError(t, b.Register("x", ListenerFuncs{}))
	assert.Equal(t, 1, b.Len())
}

func TestNotify_OrderedDispatch(t *testing.T) {
	var calls []string
	b := NewBus("c")
	require.NoError(t, b.Register("first", recorder("first", &calls, nil)))
	require.NoError(t, b.Register("second", recorder("second", &calls, nil)))

	ctx := context.Background()
	assert.Equal(t, 0, b.NotifyCreated(ctx, rec("a")))
	assert.Equal(t, 0, b.NotifyUpdated(ctx, rec("a"), rec("a")))
	assert.Equal(t, 0, b.NotifyRemoved(ctx, rec("a")))

	assert.Equal(t, []string{
		"first:created:a", "second:created:a",
		"first:updated:a->a", "second:updated:a->a",
		"first:removed:a", "second:removed:a",
	}, calls)
}

func TestNotify_FailureIsolated(t *testing.T) {
	var buf bytes.Buffer
	logging.InitForCLI(logging.LevelDebug, &buf)

	var calls []string
	b := NewBus("catalog-sync")
	require.NoError(t, b.Register("broken", recorder("broken", &calls, errors.New("audit sink down"))))
	require.NoError(t, b.Register("panicky", ListenerFuncs{
		Created: func(context.Context, *registry.RequestedTarget) error { panic("boom") },
	}))
	require.NoError(t, b.Register("healthy", recorder("healthy", &calls, nil)))

	failed := b.NotifyCreated(context.Background(), rec("a"))

	assert.Equal(t, 2, failed)
	assert.Equal(t, []string{"broken:created:a", "healthy:created:a"}, calls)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "level=ERROR"))
	assert.Contains(t, out, "connector=catalog-sync")
	assert.Contains(t, out, "target=name-a")
	assert.Contains(t, out, "audit sink down")
}

func TestRegister_ReplaceKeepsPosition(t *testing.T) {
	var calls []string
	b := NewBus("c")
	require.NoError(t, b.Register("one", recorder("one", &calls, nil)))
	require.NoError(t, b.Register("two", recorder("two", &calls, nil)))
	require.NoError(t, b.Register("one", recorder("one-v2", &calls, nil)))

	b.NotifyRemoved(context.Background(), rec("x"))
	assert.Equal(t, []string{"one-v2:removed:x", "two:removed:x"}, calls)
	assert.Equal(t, 2, b.Len())
}

func TestUnregister(t *testing.T) {
	var calls []string
	b := NewBus("c")
	require.NoError(t, b.Register("one", recorder("one", &calls, nil)))

	assert.True(t, b.Unregister("one"))
	assert.False(t, b.Unregister("one"))
	assert.Equal(t, 0, b.Len())

	b.NotifyCreated(context.Background(), rec("a"))
	assert.Empty(t, calls)
}

func TestListenerFuncs_NilFieldsSkipped(t *testing.T) {
	var l ListenerFuncs
	ctx := context.Background()
	assert.NoError(t, l.OnCreated(ctx, rec("a")))
	assert.NoError(t, l.OnUpdated(ctx, rec("a"), rec("a")))
	assert.NoError(t, l.OnRemoved(ctx, rec("a")))
}
