package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"vidchunk/command"
	"vidchunk/ffmpeg"
	"vidchunk/ffmpeg/ffmpegtest"
)

// MockCommand is a test command that simulates work
type MockCommand struct {
	id         string
	outputPath string
	duration   time.Duration
	shouldFail bool
	priority   int

	running *int32
	peak    *int32
}

func (m *MockCommand) Run(ctx context.Context, runner ffmpeg.Runner) (*ffmpeg.Result, error) {
	if m.running != nil {
		n := atomic.AddInt32(m.running, 1)
		defer atomic.AddInt32(m.running, -1)
		for {
			p := atomic.LoadInt32(m.peak)
			if n <= p || atomic.CompareAndSwapInt32(m.peak, p, n) {
				break
			}
		}
	}

	select {
	case <-time.After(m.duration):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if m.shouldFail {
		return nil, errors.New("mock command failed")
	}
	return runner.Run(ctx, "ffmpeg", m.BuildArgs()...)
}

func (m *MockCommand) GetOutputPath() string {
	return m.outputPath
}

func (m *MockCommand) DryRun() (string, error) {
	return fmt.Sprintf("ffmpeg mock command %s", m.id), nil
}

func (m *MockCommand) BuildArgs() []string {
	return []string{"-i", "input.mp4", "-c:v", "copy", m.outputPath}
}

func (m *MockCommand) GetPriority() int {
	return m.priority
}

func (m *MockCommand) SetPriority(priority int) command.Command {
	m.priority = priority
	return m
}

func (m *MockCommand) GetTaskType() command.TaskType {
	return command.TaskTypeExtract
}

func (m *MockCommand) GetInputPath() string {
	return "input.mp4"
}

func newTask(index int, cmd *MockCommand) *Task {
	return &Task{
		ID:      fmt.Sprintf("chunk-%d", index),
		Index:   index,
		Frames:  77,
		Command: cmd,
	}
}

func TestOrchestrator_ResultsInIndexOrder(t *testing.T) {
	orch := New(&ffmpegtest.FakeRunner{}, 3, nil)

	// Later chunks finish first
	for i := 0; i < 3; i++ {
		cmd := &MockCommand{
			id:         fmt.Sprint(i),
			outputPath: fmt.Sprintf("/tmp/%d.mp4", i),
			duration:   time.Duration(3-i) * 10 * time.Millisecond,
		}
		if err := orch.AddTask(newTask(i, cmd)); err != nil {
			t.Fatalf("Failed to add task %d: %v", i, err)
		}
	}

	results, err := orch.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("Result %d has index %d", i, r.Index)
		}
		if r.OutputPath != fmt.Sprintf("/tmp/%d.mp4", i) {
			t.Errorf("Result %d has output %s", i, r.OutputPath)
		}
		if !r.Success || r.Frames != 77 {
			t.Errorf("Result %d: expected success with 77 frames, got %+v", i, r)
		}
	}
}

func TestOrchestrator_RespectsWorkerLimit(t *testing.T) {
	var running, peak int32
	orch := New(&ffmpegtest.FakeRunner{}, 2, nil)

	for i := 0; i < 6; i++ {
		cmd := &MockCommand{
			outputPath: fmt.Sprintf("/tmp/%d.mp4", i),
			duration:   20 * time.Millisecond,
			running:    &running,
			peak:       &peak,
		}
		if err := orch.AddTask(newTask(i, cmd)); err != nil {
			t.Fatalf("AddTask: %v", err)
		}
	}

	if _, err := orch.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if peak > 2 {
		t.Errorf("Expected at most 2 concurrent tasks, observed %d", peak)
	}
}

func TestOrchestrator_Sequential(t *testing.T) {
	orch := New(&ffmpegtest.FakeRunner{}, 1, nil)

	tasks := make([]*Task, 3)
	for i := range tasks {
		tasks[i] = newTask(i, &MockCommand{outputPath: fmt.Sprintf("/tmp/%d.mp4", i), duration: 5 * time.Millisecond})
		if err := orch.AddTask(tasks[i]); err != nil {
			t.Fatalf("AddTask: %v", err)
		}
	}

	if _, err := orch.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	for i := 1; i < len(tasks); i++ {
		if tasks[i].StartTime.Before(tasks[i-1].EndTime) {
			t.Errorf("Task %d started before task %d finished", i, i-1)
		}
	}
}

func TestOrchestrator_FailureStopsPendingTasks(t *testing.T) {
	orch := New(&ffmpegtest.FakeRunner{}, 1, nil)

	tasks := []*Task{
		newTask(0, &MockCommand{outputPath: "/tmp/0.mp4"}),
		newTask(1, &MockCommand{outputPath: "/tmp/1.mp4", shouldFail: true}),
		newTask(2, &MockCommand{outputPath: "/tmp/2.mp4"}),
	}
	for _, task := range tasks {
		if err := orch.AddTask(task); err != nil {
			t.Fatalf("AddTask: %v", err)
		}
	}

	results, err := orch.Execute(context.Background())
	if err == nil {
		t.Fatal("Expected error from failed task")
	}
	if len(results) != 3 {
		t.Fatalf("Expected 3 results, got %d", len(results))
	}

	expected := []TaskStatus{TaskCompleted, TaskFailed, TaskSkipped}
	for i, task := range tasks {
		if task.Status != expected[i] {
			t.Errorf("Task %d: expected status %s, got %s", i, expected[i], task.Status)
		}
	}
	if results[1].Success || results[2].Success {
		t.Error("Failed and skipped tasks should not report success")
	}
}

func TestOrchestrator_RunnerError(t *testing.T) {
	runner := &ffmpegtest.FakeRunner{
		Handler: func(name string, args []string) (*ffmpeg.Result, error) {
			return &ffmpeg.Result{ExitCode: 1}, &ffmpeg.ExitError{Name: name, ExitCode: 1, Stderr: "boom"}
		},
	}
	orch := New(runner, 1, nil)
	if err := orch.AddTask(newTask(0, &MockCommand{outputPath: "/tmp/0.mp4"})); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	_, err := orch.Execute(context.Background())
	var exitErr *ffmpeg.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Expected *ffmpeg.ExitError, got %v", err)
	}
}

func TestOrchestrator_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	orch := New(&ffmpegtest.FakeRunner{}, 2, nil)
	task := newTask(0, &MockCommand{outputPath: "/tmp/0.mp4", duration: time.Second})
	if err := orch.AddTask(task); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	results, _ := orch.Execute(ctx)
	if task.Status != TaskSkipped {
		t.Errorf("Expected skipped task, got %s", task.Status)
	}
	if len(results) != 1 || results[0].Success {
		t.Errorf("Expected one failed result, got %+v", results)
	}
}

func TestOrchestrator_ProgressCallback(t *testing.T) {
	orch := New(&ffmpegtest.FakeRunner{}, 2, nil)
	for i := 0; i < 4; i++ {
		if err := orch.AddTask(newTask(i, &MockCommand{outputPath: fmt.Sprintf("/tmp/%d.mp4", i)})); err != nil {
			t.Fatalf("AddTask: %v", err)
		}
	}

	var calls []int
	orch.SetProgressCallback(func(completed, total int, task *Task) {
		if total != 4 {
			t.Errorf("Expected total 4, got %d", total)
		}
		calls = append(calls, completed)
	})

	if _, err := orch.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(calls) != 4 || calls[3] != 4 {
		t.Errorf("Expected progress 1..4, got %v", calls)
	}
}

func TestOrchestrator_DuplicateTask(t *testing.T) {
	orch := New(&ffmpegtest.FakeRunner{}, 1, nil)
	if err := orch.AddTask(newTask(0, &MockCommand{})); err != nil {
		t.Fatalf("AddTask: %v", err)
	}
	if err := orch.AddTask(newTask(0, &MockCommand{})); err == nil {
		t.Error("Expected error for duplicate task ID")
	}
	if err := orch.AddTask(&Task{ID: "empty"}); err == nil {
		t.Error("Expected error for task without command")
	}
}

func TestOrchestrator_GetTaskStatus(t *testing.T) {
	orch := New(&ffmpegtest.FakeRunner{}, 0, nil)
	if orch.Workers() != 1 {
		t.Errorf("Expected workers clamped to 1, got %d", orch.Workers())
	}
	if err := orch.AddTask(newTask(0, &MockCommand{outputPath: "/tmp/0.mp4"})); err != nil {
		t.Fatalf("AddTask: %v", err)
	}

	status, err := orch.GetTaskStatus("chunk-0")
	if err != nil || status != TaskPending {
		t.Errorf("Expected pending, got %s (%v)", status, err)
	}

	if _, err := orch.Execute(context.Background()); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	status, _ = orch.GetTaskStatus("chunk-0")
	if status != TaskCompleted {
		t.Errorf("Expected completed, got %s", status)
	}

	if _, err := orch.GetTaskStatus("missing"); err == nil {
		t.Error("Expected error for unknown task")
	}
}
