package reconciler

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"targetsync/internal/catalog"
	"targetsync/internal/worker"
	"targetsync/pkg/logging"
)

// =============================================================================
// memSource - in-memory TargetSource with paging and fault injection
// =============================================================================

type memSource struct {
	mu      sync.Mutex
	targets []catalog.TargetDescriptor

	// failAtOffset makes List fail for that offset when >= 0.
	failAtOffset int
	calls        []int
}

func newMemSource(targets ...catalog.TargetDescriptor) *memSource {
	return &memSource{targets: targets, failAtOffset: -1}
}

func (s *memSource) set(targets ...catalog.TargetDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = targets
}

func (s *memSource) List(_ context.Context, offset, pageSize int) ([]catalog.TargetDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, offset)
	if s.failAtOffset >= 0 && offset == s.failAtOffset {
		return nil, fmt.Errorf("metadata store: %w", catalog.ErrSourceUnavailable)
	}
	if offset >= len(s.targets) {
		return nil, nil
	}
	end := offset + pageSize
	if end > len(s.targets) {
		end = len(s.targets)
	}
	return append([]catalog.TargetDescriptor(nil), s.targets[offset:end]...), nil
}

func target(id, stamp string) catalog.TargetDescriptor {
	return catalog.TargetDescriptor{
		RelationshipID:    id,
		VersionStamp:      stamp,
		TargetName:        "name-" + id,
		TargetElementID:   "elem-" + id,
		TargetElementType: "table",
	}
}

// =============================================================================
// tracker - records connector and worker activity per relationship id
// =============================================================================

type tracker struct {
	mu sync.Mutex

	built    map[string]int
	started  map[string]int
	stopped  map[string]int
	refresh  map[string]int
	events   map[string][]catalog.Event
	ops      []string
	failOn   map[string]catalog.Op
	panicOn  map[string]catalog.Op
	eventful bool
}

func newTracker() *tracker {
	return &tracker{
		built:   make(map[string]int),
		started: make(map[string]int),
		stopped: make(map[string]int),
		refresh: make(map[string]int),
		events:  make(map[string][]catalog.Event),
		failOn:  make(map[string]catalog.Op),
		panicOn: make(map[string]catalog.Op),
	}
}

func (tr *tracker) fail(id string, op catalog.Op) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.failOn[id] = op
}

func (tr *tracker) clear(id string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.failOn, id)
	delete(tr.panicOn, id)
}

func (tr *tracker) check(id string, op catalog.Op) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.panicOn[id] == op {
		panic(fmt.Sprintf("%s exploded for %s", op, id))
	}
	if tr.failOn[id] == op {
		return fmt.Errorf("injected %s failure", op)
	}
	return nil
}

func (tr *tracker) opsLog() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.ops...)
}

func (tr *tracker) count(m map[string]int, id string) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return m[id]
}

func (tr *tracker) kind() worker.Kind {
	return worker.Kind{
		Name: "tracked",
		NewConnector: func(desc catalog.TargetDescriptor, _ map[string]any) (worker.ResourceConnector, error) {
			return &trackedConnector{tr: tr, id: desc.RelationshipID}, nil
		},
		NewWorker: func(desc catalog.TargetDescriptor, _ map[string]any, _ worker.ResourceConnector) (worker.Worker, error) {
			if err := tr.check(desc.RelationshipID, catalog.OpBuild); err != nil {
				return nil, err
			}
			tr.mu.Lock()
			tr.built[desc.RelationshipID]++
			eventful := tr.eventful
			tr.mu.Unlock()
			if eventful {
				return &trackedEventWorker{trackedWorker{tr: tr, id: desc.RelationshipID}}, nil
			}
			return &trackedWorker{tr: tr, id: desc.RelationshipID}, nil
		},
	}
}

type trackedConnector struct {
	tr *tracker
	id string
}

func (c *trackedConnector) Start(context.Context) error {
	if err := c.tr.check(c.id, catalog.OpStart); err != nil {
		return err
	}
	c.tr.mu.Lock()
	defer c.tr.mu.Unlock()
	c.tr.started[c.id]++
	c.tr.ops = append(c.tr.ops, "start:"+c.id)
	return nil
}

func (c *trackedConnector) Stop(context.Context) error {
	c.tr.mu.Lock()
	c.tr.stopped[c.id]++
	c.tr.ops = append(c.tr.ops, "stop:"+c.id)
	c.tr.mu.Unlock()
	return c.tr.check(c.id, catalog.OpStop)
}

type trackedWorker struct {
	tr *tracker
	id string
}

func (w *trackedWorker) Refresh(context.Context) error {
	if err := w.tr.check(w.id, catalog.OpRefresh); err != nil {
		return err
	}
	w.tr.mu.Lock()
	defer w.tr.mu.Unlock()
	w.tr.refresh[w.id]++
	return nil
}

type trackedEventWorker struct {
	trackedWorker
}

func (w *trackedEventWorker) ProcessEvent(_ context.Context, ev catalog.Event) error {
	if err := w.tr.check(w.id, catalog.OpEvent); err != nil {
		return err
	}
	w.tr.mu.Lock()
	defer w.tr.mu.Unlock()
	w.tr.events[w.id] = append(w.tr.events[w.id], ev)
	return nil
}

// =============================================================================
// Engine construction and log capture
// =============================================================================

func newTestEngine(t *testing.T, src catalog.TargetSource, tr *tracker, mutate ...func(*Config)) *Engine {
	t.Helper()
	cfg := Config{
		ConnectorName:            "catalog-sync",
		PermittedSynchronization: catalog.SyncBothDirections,
		PageSize:                 2,
		Source:                   src,
		Factory:                  worker.NewFactory(nil, worker.WithDefaultKind(tr.kind())),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	e, err := NewEngine(cfg)
	require.NoError(t, err)
	return e
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// captureLogs routes logging into a buffer for the duration of the test.
func captureLogs(t *testing.T) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	logging.InitForCLI(logging.LevelDebug, buf)
	return buf
}

// errorLinesFor returns the ERROR log lines that mention the target.
func errorLinesFor(logs, targetName string) []string {
	var out []string
	for _, line := range strings.Split(logs, "\n") {
		if strings.Contains(line, "level=ERROR") && strings.Contains(line, "target="+targetName) {
			out = append(out, line)
		}
	}
	return out
}
