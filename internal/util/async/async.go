// Package async provides helpers for running independent tasks
// concurrently with bounded parallelism.
package async

import (
	"context"
	"fmt"
)

// Task represents an asynchronous operation with a name and function.
type Task struct {
	Name string
	Func func(context.Context) error
}

// RunBounded executes the tasks with at most limit running concurrently.
// All tasks run to completion regardless of individual failures; the
// first error encountered is returned after every task has finished.
// A limit of zero or less means min(8, task count).
func RunBounded(ctx context.Context, limit int, tasks []Task) error {
	if len(tasks) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = min(8, len(tasks))
	}
	if limit > len(tasks) {
		limit = len(tasks)
	}

	type result struct {
		name string
		err  error
	}

	sem := make(chan struct{}, limit)
	results := make(chan result, len(tasks))

	for _, task := range tasks {
		task := task
		go func() {
			sem <- struct{}{}
			defer func() { <-sem }()
			results <- result{name: task.Name, err: task.Func(ctx)}
		}()
	}

	var firstErr error
	for i := 0; i < len(tasks); i++ {
		res := <-results
		if res.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", res.name, res.err)
		}
	}

	return firstErr
}
