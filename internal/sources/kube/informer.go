package kube

import (
	"context"
	"fmt"
	"sync"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/informers"
	"k8s.io/client-go/kubernetes"
	toolscache "k8s.io/client-go/tools/cache"

	"targetsync/internal/catalog"
	"targetsync/pkg/logging"
)

const informerSubsystem = "KubernetesInformer"

// EventSourceName identifies events produced by the Informer.
const EventSourceName = "kubernetes"

// Informer is an EventSource that watches target ConfigMaps.
type Informer struct {
	mu sync.Mutex

	clientset kubernetes.Interface
	namespace string
	selector  string

	out     chan<- catalog.Event
	stop    func()
	running bool
}

// NewInformer creates an informer-backed event source. An empty selector
// means DefaultLabelSelector.
func NewInformer(clientset kubernetes.Interface, namespace, selector string) *Informer {
	if selector == "" {
		selector = DefaultLabelSelector
	}
	return &Informer{clientset: clientset, namespace: namespace, selector: selector}
}

func (i *Informer) Name() string { return EventSourceName }

// Start runs the informer and blocks until its cache has synced. The initial
// listing does not produce events; the reconciler has already seen it.
func (i *Informer) Start(ctx context.Context, out chan<- catalog.Event) error {
	i.mu.Lock()
	if i.running {
		i.mu.Unlock()
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	factory := informers.NewSharedInformerFactoryWithOptions(i.clientset, 0,
		informers.WithNamespace(i.namespace),
		informers.WithTweakListOptions(func(opts *metav1.ListOptions) {
			opts.LabelSelector = i.selector
		}),
	)
	informer := factory.Core().V1().ConfigMaps().Informer()

	_, err := informer.AddEventHandler(toolscache.ResourceEventHandlerDetailedFuncs{
		AddFunc: func(obj interface{}, isInInitialList bool) {
			if isInInitialList {
				return
			}
			i.handle(catalog.EventCreated, obj)
		},
		UpdateFunc: func(_, newObj interface{}) {
			i.handle(catalog.EventUpdated, newObj)
		},
		DeleteFunc: func(obj interface{}) {
			// Objects deleted while the watch was down arrive wrapped.
			if deleted, ok := obj.(toolscache.DeletedFinalStateUnknown); ok {
				obj = deleted.Obj
			}
			i.handle(catalog.EventDeleted, obj)
		},
	})
	if err != nil {
		i.mu.Unlock()
		cancel()
		return fmt.Errorf("add configmap event handler: %w", err)
	}

	stop := func() {
		cancel()
		factory.Shutdown()
	}
	i.out = out
	i.stop = stop
	i.running = true
	i.mu.Unlock()

	factory.Start(runCtx.Done())
	for typ, ok := range factory.WaitForCacheSync(runCtx.Done()) {
		if !ok {
			_ = i.Stop()
			return fmt.Errorf("informer cache for %v did not sync", typ)
		}
	}

	logging.Info(informerSubsystem, "Started watching target configmaps in %s", i.namespaceDisplay())
	return nil
}

func (i *Informer) handle(kind catalog.EventKind, obj interface{}) {
	cm, ok := obj.(*corev1.ConfigMap)
	if !ok {
		logging.Warn(informerSubsystem, "Ignoring %s notification for unexpected object %T", kind, obj)
		return
	}

	ev := catalog.NewEvent(kind, EventSourceName, cm.Data[KeyTargetElementID])
	ev.RelationshipID = RelationshipID(cm)
	ev.Attributes = map[string]string{
		"namespace":       cm.Namespace,
		"name":            cm.Name,
		"resourceVersion": cm.ResourceVersion,
	}

	i.mu.Lock()
	out, running := i.out, i.running
	i.mu.Unlock()
	if !running || out == nil {
		return
	}

	select {
	case out <- ev:
		logging.Debug(informerSubsystem, "Emitted %s event for %s/%s", kind, cm.Namespace, cm.Name)
	default:
		logging.Warn(informerSubsystem, "Event channel full, dropping %s event for %s/%s", kind, cm.Namespace, cm.Name)
	}
}

// Stop shuts the informer down. It is safe to call more than once.
func (i *Informer) Stop() error {
	i.mu.Lock()
	if !i.running {
		i.mu.Unlock()
		return nil
	}
	i.running = false
	stop := i.stop
	i.stop = nil
	i.mu.Unlock()

	// Shutdown waits for handlers, which take i.mu.
	if stop != nil {
		stop()
	}
	logging.Info(informerSubsystem, "Stopped watching target configmaps")
	return nil
}

func (i *Informer) namespaceDisplay() string {
	if i.namespace == "" {
		return "all namespaces"
	}
	return i.namespace
}
