package plan

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vk/tsquery/internal/query/exec"
)

// initialize walks the executor graph depth-first from the context
// sink, initializing leaves first. Siblings initialize concurrently; a
// node starts only after every successor finished. Each executor is
// initialized exactly once even when shared by multiple parents.
func (p *Planner) initialize(ctx context.Context) error {
	tasks := &initTasks{m: make(map[exec.Node]*initTask, p.execGraph.Len())}
	return p.initNode(ctx, p.contextSink, tasks)
}

// initTasks memoizes one initTask per executor so diamond shapes wait
// on the same underlying initialization instead of racing a second one.
type initTasks struct {
	mu sync.Mutex
	m  map[exec.Node]*initTask
}

type initTask struct {
	once sync.Once
	done chan struct{}
	err  error
}

func (t *initTasks) task(node exec.Node) *initTask {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.m[node]
	if !ok {
		task = &initTask{done: make(chan struct{})}
		t.m[node] = task
	}
	return task
}

func (p *Planner) initNode(ctx context.Context, node exec.Node, tasks *initTasks) error {
	task := tasks.task(node)
	task.once.Do(func() {
		defer close(task.done)

		successors := p.execGraph.Successors(node)
		if len(successors) == 0 {
			task.err = node.Initialize(ctx)
			return
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, succ := range successors {
			g.Go(func() error {
				return p.initNode(gctx, succ, tasks)
			})
		}
		if err := g.Wait(); err != nil {
			task.err = err
			return
		}

		// The context sink is owned by the caller and initialized
		// externally.
		if node == p.contextSink {
			return
		}
		task.err = node.Initialize(ctx)
	})

	<-task.done
	return task.err
}
