package schedule

import "context"

// Task 可被 Runner 周期性调度的任务
type Task interface {
	Run(ctx context.Context) error
	Name() string
}
