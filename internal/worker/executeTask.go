package worker

import (
	"time"

	"github.com/akolanti/DocAssist/internal/metrics"
)

func (p *Pool) execute(task Task) {
	start := time.Now()
	defer func() {
		metrics.CaptureExecutionMetrics("task:"+task.Name, time.Since(start))
		if r := recover(); r != nil {
			p.logger.WithTrace(task.Ctx).Error("task panicked", "task", task.Name, "panic", r)
		}
	}()

	if err := task.Ctx.Err(); err != nil {
		p.logger.WithTrace(task.Ctx).Debug("skipping cancelled task", "task", task.Name, "error", err)
		return
	}
	p.logger.WithTrace(task.Ctx).Debug("Processing task", "task", task.Name)
	task.Run(task.Ctx)
}
