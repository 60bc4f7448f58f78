package planprint

// Planner geometry in pixels.
const (
	// TaskHeight is the rendered height of one task row.
	TaskHeight = 25

	// VerticalPadding is added once below the last task row.
	VerticalPadding = 50

	// TaskDetailsBaseWidth is the width of the task details panel when the
	// task name column is at its base width.
	TaskDetailsBaseWidth = 310

	// BaseTaskNamePixels is the default width of a depth-1 task name field.
	BaseTaskNamePixels = 121

	// DefaultCaptureHeight is the viewport height handed to the renderer
	// unless computed heights are enabled. Rows below it are cut off.
	DefaultCaptureHeight = 1000

	// mainLayoutExtra is how much taller div.main-layout is than the scroll
	// container.
	mainLayoutExtra = 90
)

// PlannerLayout exposes the geometry of the planning view being printed.
type PlannerLayout interface {
	// HorizontalTimelineSize is the timeline width in pixels.
	HorizontalTimelineSize() int
	// TaskCount counts visible tasks with containers collapsed.
	TaskCount() int
	// AllTasksCount counts every task with containers expanded.
	AllTasksCount() int
	// MinimumColumnWidth is the width the task name column needs.
	MinimumColumnWidth(expanded bool) int
}

// Layout holds the pixel metrics derived for one capture.
type Layout struct {
	MinColumnWidth   int
	TaskDetailsWidth int
	TotalWidth       int
	TaskCount        int
	Height           int
}

// TaskDetailsWidth returns the task details panel width for a task name
// column of minColumnWidth pixels. Narrower columns never shrink the panel.
func TaskDetailsWidth(minColumnWidth int) int {
	return TaskDetailsBaseWidth + max(0, minColumnWidth-BaseTaskNamePixels)
}

// ScrollContainerHeight returns the scroll container height for taskCount rows.
func ScrollContainerHeight(taskCount int) int {
	return taskCount*TaskHeight + VerticalPadding
}

// ComputeLayout derives capture metrics from req. Without a layout the total
// width is 0, the column keeps its base width and req.TaskCount is used.
// The height is DefaultCaptureHeight unless computedHeight is set, in which
// case it covers the whole main layout.
func ComputeLayout(req RenderRequest, computedHeight bool) Layout {
	l := Layout{
		MinColumnWidth: BaseTaskNamePixels,
		TaskCount:      req.TaskCount,
	}

	if req.Layout != nil {
		l.MinColumnWidth = req.Layout.MinimumColumnWidth(req.Expanded)
		if req.Expanded {
			l.TaskCount = req.Layout.AllTasksCount()
		} else {
			l.TaskCount = req.Layout.TaskCount()
		}
	}

	l.TaskDetailsWidth = TaskDetailsWidth(l.MinColumnWidth)
	if req.Layout != nil {
		l.TotalWidth = req.Layout.HorizontalTimelineSize() + l.TaskDetailsWidth
	}

	l.Height = DefaultCaptureHeight
	if computedHeight {
		l.Height = ScrollContainerHeight(l.TaskCount) + mainLayoutExtra
	}
	return l
}
