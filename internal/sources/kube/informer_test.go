package kube

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/watch"
	"k8s.io/client-go/kubernetes/fake"
	clienttesting "k8s.io/client-go/testing"

	"targetsync/internal/catalog"
)

// newWatchedClientset returns a fake clientset and a channel that is closed
// once the informer's watch is established. Objects created before that
// point could otherwise be missed by the informer.
func newWatchedClientset(t *testing.T, objects ...*corev1.ConfigMap) (*fake.Clientset, <-chan struct{}) {
	t.Helper()
	cs := fake.NewClientset()
	for _, obj := range objects {
		_, err := cs.CoreV1().ConfigMaps(obj.Namespace).Create(context.Background(), obj, metav1.CreateOptions{})
		require.NoError(t, err)
	}

	started := make(chan struct{})
	var once sync.Once
	cs.PrependWatchReactor("configmaps", func(action clienttesting.Action) (bool, watch.Interface, error) {
		w, err := cs.Tracker().Watch(action.GetResource(), action.GetNamespace())
		if err != nil {
			return false, nil, err
		}
		once.Do(func() { close(started) })
		return true, w, nil
	})
	return cs, started
}

func nextEvent(t *testing.T, ch <-chan catalog.Event) catalog.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
		return catalog.Event{}
	}
}

func TestInformer_EmitsChangesAfterInitialList(t *testing.T) {
	existing := targetConfigMap("catalog", "existing", map[string]string{KeyRelationshipID: "rel-existing"})
	cs, watching := newWatchedClientset(t, existing)

	inf := NewInformer(cs, "catalog", "")
	out := make(chan catalog.Event, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, inf.Start(ctx, out))
	defer func() { _ = inf.Stop() }()
	assert.Equal(t, EventSourceName, inf.Name())

	select {
	case <-watching:
	case <-time.After(5 * time.Second):
		t.Fatal("watch was not established")
	}

	cms := cs.CoreV1().ConfigMaps("catalog")
	created, err := cms.Create(ctx, targetConfigMap("catalog", "orders", map[string]string{
		KeyRelationshipID:  "rel-orders",
		KeyTargetElementID: "elem-17",
	}), metav1.CreateOptions{})
	require.NoError(t, err)

	ev := nextEvent(t, out)
	assert.Equal(t, catalog.EventCreated, ev.Kind)
	assert.Equal(t, "rel-orders", ev.RelationshipID)
	assert.Equal(t, "elem-17", ev.ElementID)
	assert.Equal(t, EventSourceName, ev.Source)
	assert.Equal(t, "orders", ev.Attributes["name"])

	created.Data[KeyTargetElementType] = "view"
	_, err = cms.Update(ctx, created, metav1.UpdateOptions{})
	require.NoError(t, err)

	ev = nextEvent(t, out)
	assert.Equal(t, catalog.EventUpdated, ev.Kind)
	assert.Equal(t, "rel-orders", ev.RelationshipID)

	require.NoError(t, cms.Delete(ctx, "orders", metav1.DeleteOptions{}))

	ev = nextEvent(t, out)
	assert.Equal(t, catalog.EventDeleted, ev.Kind)
	assert.Equal(t, "rel-orders", ev.RelationshipID)

	select {
	case extra := <-out:
		t.Fatalf("unexpected event %+v", extra)
	default:
	}
}

func TestInformer_StopIsIdempotent(t *testing.T) {
	cs, _ := newWatchedClientset(t)
	inf := NewInformer(cs, "", "")

	require.NoError(t, inf.Start(context.Background(), make(chan catalog.Event, 1)))
	require.NoError(t, inf.Start(context.Background(), make(chan catalog.Event, 1)))
	require.NoError(t, inf.Stop())
	require.NoError(t, inf.Stop())
}
