package sources

import (
	"context"
	"errors"
	"fmt"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"targetsync/internal/catalog"
	"targetsync/internal/config"
	"targetsync/internal/sources/filesystem"
	"targetsync/internal/sources/kube"
	"targetsync/internal/sources/sqlite"
)

// ErrReadOnly is returned by OpenAdmin for sources that targetsync cannot
// edit.
var ErrReadOnly = errors.New("source is read-only")

// Set is an opened target source.
type Set struct {
	Targets catalog.TargetSource

	// Events is nil when the source cannot notify about changes.
	Events catalog.EventSource

	closers []func() error
}

// Close releases resources held by the source.
func (s *Set) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

// Open builds the TargetSource and EventSource for cfg.
func Open(cfg config.SourceConfig) (*Set, error) {
	switch cfg.Type {
	case config.SourceFile:
		return &Set{
			Targets: filesystem.NewSource(cfg.File.Path),
			Events:  filesystem.NewWatcher(cfg.File.Path, cfg.File.DebounceDuration()),
		}, nil

	case config.SourceSQLite:
		db, err := sqlite.Open(cfg.SQLite.DSN)
		if err != nil {
			return nil, err
		}
		return &Set{
			Targets: sqlite.NewSource(db),
			closers: []func() error{db.Close},
		}, nil

	case config.SourceKubernetes:
		return openKubernetes(cfg.Kubernetes)

	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

func openKubernetes(cfg config.KubernetesSourceConfig) (*Set, error) {
	restConfig, err := RestConfig(cfg.Kubeconfig)
	if err != nil {
		return nil, err
	}

	c, err := client.New(restConfig, client.Options{})
	if err != nil {
		return nil, fmt.Errorf("create kubernetes client: %w", err)
	}
	src, err := kube.NewSource(c, cfg.Namespace, cfg.LabelSelector)
	if err != nil {
		return nil, err
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("create kubernetes clientset: %w", err)
	}

	return &Set{
		Targets: src,
		Events:  kube.NewInformer(clientset, cfg.Namespace, cfg.LabelSelector),
	}, nil
}

// RestConfig loads the kubeconfig at path, or uses controller-runtime's
// discovery (in-cluster config, $KUBECONFIG, ~/.kube/config) when path is
// empty.
func RestConfig(path string) (*rest.Config, error) {
	if path == "" {
		cfg, err := ctrl.GetConfig()
		if err != nil {
			return nil, fmt.Errorf("load kubernetes config: %w", err)
		}
		return cfg, nil
	}
	cfg, err := clientcmd.BuildConfigFromFlags("", path)
	if err != nil {
		return nil, fmt.Errorf("load kubeconfig %s: %w", path, err)
	}
	return cfg, nil
}

// Admin edits the targets held by a writable source.
type Admin interface {
	All(ctx context.Context) ([]catalog.TargetDescriptor, error)
	Upsert(ctx context.Context, t catalog.TargetDescriptor) (catalog.TargetDescriptor, error)
	Delete(ctx context.Context, relationshipID string) error
}

// OpenAdmin returns an Admin for cfg and a function releasing it.
func OpenAdmin(cfg config.SourceConfig) (Admin, func() error, error) {
	switch cfg.Type {
	case config.SourceFile:
		return filesystem.NewStore(cfg.File.Path), func() error { return nil }, nil
	case config.SourceSQLite:
		db, err := sqlite.Open(cfg.SQLite.DSN)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewSource(db), db.Close, nil
	case config.SourceKubernetes:
		return nil, nil, fmt.Errorf("kubernetes targets are managed as configmaps: %w", ErrReadOnly)
	default:
		return nil, nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}

// IsNotFound reports whether err is a missing target error from any Admin.
func IsNotFound(err error) bool {
	return errors.Is(err, filesystem.ErrNotFound) || errors.Is(err, sqlite.ErrNotFound)
}
