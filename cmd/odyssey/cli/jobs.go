package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/cache"
	"github.com/odyssey-erp/odyssey-pos/jobs"
)

type queueAdmin interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListArchivedTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
	RunAllArchivedTasks(queue string) (int, error)
	Close() error
}

// JobsCLI wraps manual management helpers for the sale recording queue.
type JobsCLI struct {
	inspector queueAdmin
}

// NewJobsCLI initialises the CLI helpers against the given Redis instance.
func NewJobsCLI(redis cache.Options) (*JobsCLI, error) {
	if redis.Addr == "" {
		return nil, errors.New("jobs cli: REDIS_ADDR is empty")
	}
	return &JobsCLI{inspector: asynq.NewInspector(redis.AsynqOpt())}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	if c == nil || c.inspector == nil {
		return nil
	}
	return c.inspector.Close()
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// ListArchived returns sale tasks that exhausted their retries.
func (c *JobsCLI) ListArchived(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	tasks, err := c.inspector.ListArchivedTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
	if err != nil {
		return nil, err
	}
	out := make([]*asynq.TaskInfo, 0, len(tasks))
	for _, t := range tasks {
		if t.Type == jobs.TaskTypeSaleRecord {
			out = append(out, t)
		}
	}
	return out, nil
}

// RequeueArchived moves every archived task back to pending.
func (c *JobsCLI) RequeueArchived(ctx context.Context) (int, error) {
	if c == nil || c.inspector == nil {
		return 0, errors.New("jobs cli: inspector not configured")
	}
	return c.inspector.RunAllArchivedTasks(jobs.QueueDefault)
}

// Run executes a jobs subcommand and prints its result to out.
func (c *JobsCLI) Run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: odyssey jobs stats|archived|requeue")
	}
	switch args[0] {
	case "stats":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED")
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
		return tw.Flush()
	case "archived":
		tasks, err := c.ListArchived(ctx, 50)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			fmt.Fprintf(out, "%s\t%s\t%s\n", t.ID, t.LastFailedAt.Format("2006-01-02T15:04:05Z07:00"), t.LastErr)
		}
		return nil
	case "requeue":
		n, err := c.RequeueArchived(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "requeued %d task(s)\n", n)
		return nil
	}
	return fmt.Errorf("jobs cli: unknown command %q", args[0])
}
