// Package orchestrator runs independent ffmpeg tasks with bounded parallelism.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"vidchunk/command"
	"vidchunk/ffmpeg"
	"vidchunk/models"
)

// TaskStatus represents the current state of a task
type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskRunning
	TaskCompleted
	TaskFailed
	TaskSkipped // never started because an earlier task failed or ctx was cancelled
)

func (s TaskStatus) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskCompleted:
		return "completed"
	case TaskFailed:
		return "failed"
	case TaskSkipped:
		return "skipped"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Task represents one ffmpeg invocation producing one chunk.
type Task struct {
	ID      string
	Index   int // chunk ordinal; results are reported in this order
	Frames  int
	Command command.Command

	Status    TaskStatus
	Error     error
	Result    *models.ChunkResult
	Output    *ffmpeg.Result
	StartTime time.Time
	EndTime   time.Time
}

// Orchestrator executes tasks with at most Workers running at once.
// The first failure cancels tasks that have not started yet.
type Orchestrator struct {
	runner  ffmpeg.Runner
	workers int
	logger  *slog.Logger

	mu    sync.Mutex
	tasks []*Task
	ids   map[string]bool

	onProgress func(completed, total int, task *Task)
}

// New creates an orchestrator. workers < 1 is treated as 1.
func New(runner ffmpeg.Runner, workers int, logger *slog.Logger) *Orchestrator {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		runner:  runner,
		workers: workers,
		logger:  logger,
		ids:     make(map[string]bool),
	}
}

// AddTask adds a task to the orchestrator
func (o *Orchestrator) AddTask(task *Task) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if task == nil || task.Command == nil {
		return fmt.Errorf("task must have a command")
	}
	if o.ids[task.ID] {
		return fmt.Errorf("task %s already exists", task.ID)
	}

	task.Status = TaskPending
	o.ids[task.ID] = true
	o.tasks = append(o.tasks, task)
	return nil
}

// SetProgressCallback sets a callback for progress updates.
// Calls are serialized.
func (o *Orchestrator) SetProgressCallback(callback func(completed, total int, task *Task)) {
	o.onProgress = callback
}

// Workers returns the parallelism limit.
func (o *Orchestrator) Workers() int {
	return o.workers
}

// Execute runs all tasks and returns one result per task ordered by Index,
// along with the first error encountered.
func (o *Orchestrator) Execute(ctx context.Context) ([]*models.ChunkResult, error) {
	o.mu.Lock()
	queue := make([]*Task, len(o.tasks))
	copy(queue, o.tasks)
	o.mu.Unlock()

	// Higher priority first, then temporal order
	sort.SliceStable(queue, func(i, j int) bool {
		pi, pj := queue[i].Command.GetPriority(), queue[j].Command.GetPriority()
		if pi != pj {
			return pi > pj
		}
		return queue[i].Index < queue[j].Index
	})

	total := len(queue)
	completed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	for _, task := range queue {
		g.Go(func() error {
			err := o.executeTask(gctx, task)

			o.mu.Lock()
			completed++
			if o.onProgress != nil {
				o.onProgress(completed, total, task)
			}
			o.mu.Unlock()

			return err
		})
	}

	err := g.Wait()

	results := make([]*models.ChunkResult, 0, total)
	ordered := make([]*Task, total)
	copy(ordered, queue)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })
	for _, task := range ordered {
		if task.Result != nil {
			results = append(results, task.Result)
		}
	}

	return results, err
}

// executeTask runs a single task
func (o *Orchestrator) executeTask(ctx context.Context, task *Task) error {
	if err := ctx.Err(); err != nil {
		o.mu.Lock()
		task.Status = TaskSkipped
		task.Error = err
		task.Result, _ = models.NewChunkResultFailure(task.Index, err)
		o.mu.Unlock()
		return nil
	}

	o.mu.Lock()
	task.Status = TaskRunning
	task.StartTime = time.Now()
	o.mu.Unlock()

	o.logger.Debug("task started", "task", task.ID, "type", task.Command.GetTaskType(), "output", task.Command.GetOutputPath())

	out, err := task.Command.Run(ctx, o.runner)

	o.mu.Lock()
	defer o.mu.Unlock()

	task.EndTime = time.Now()
	task.Output = out

	if err != nil {
		task.Status = TaskFailed
		task.Error = err
		task.Result, _ = models.NewChunkResultFailure(task.Index, err)
		o.logger.Error("task failed", "task", task.ID, "err", err)
		return fmt.Errorf("task %s: %w", task.ID, err)
	}

	task.Status = TaskCompleted
	task.Result, err = models.NewChunkResultSuccess(task.Index, task.Command.GetOutputPath(), task.Frames)
	if err != nil {
		task.Status = TaskFailed
		task.Error = err
		return fmt.Errorf("task %s: %w", task.ID, err)
	}
	o.logger.Debug("task completed", "task", task.ID, "elapsed", task.EndTime.Sub(task.StartTime))
	return nil
}

// GetTaskStatus returns the status of a task
func (o *Orchestrator) GetTaskStatus(taskID string) (TaskStatus, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, task := range o.tasks {
		if task.ID == taskID {
			return task.Status, nil
		}
	}
	return TaskPending, fmt.Errorf("task %s not found", taskID)
}
