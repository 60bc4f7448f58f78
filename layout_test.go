package planprint

import "testing"

// fakeLayout is a fixed planner geometry.
type fakeLayout struct {
	timeline, tasks, allTasks, collapsedWidth, expandedWidth int
}

func (f fakeLayout) HorizontalTimelineSize() int { return f.timeline }
func (f fakeLayout) TaskCount() int              { return f.tasks }
func (f fakeLayout) AllTasksCount() int          { return f.allTasks }
func (f fakeLayout) MinimumColumnWidth(expanded bool) int {
	if expanded {
		return f.expandedWidth
	}
	return f.collapsedWidth
}

// ---------------------------------------------------------------------------
// TestTaskDetailsWidth - Base width plus column overflow
// ---------------------------------------------------------------------------

func TestTaskDetailsWidth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		min  int
		want int
	}{
		{min: 100, want: 310},
		{min: 0, want: 310},
		{min: 121, want: 310},
		{min: 122, want: 311},
		{min: 200, want: 389},
	}

	for _, tt := range tests {
		if got := TaskDetailsWidth(tt.min); got != tt.want {
			t.Errorf("TaskDetailsWidth(%d) = %d, want %d", tt.min, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// TestComputeLayout - Metrics from planner geometry
// ---------------------------------------------------------------------------

func TestComputeLayout(t *testing.T) {
	t.Parallel()

	geo := fakeLayout{timeline: 1200, tasks: 8, allTasks: 30, collapsedWidth: 150, expandedWidth: 200}

	tests := []struct {
		name     string
		req      RenderRequest
		computed bool
		want     Layout
	}{
		{
			name: "collapsed",
			req:  RenderRequest{Layout: geo},
			want: Layout{MinColumnWidth: 150, TaskDetailsWidth: 339, TotalWidth: 1539, TaskCount: 8, Height: 1000},
		},
		{
			name: "expanded uses all tasks and expanded width",
			req:  RenderRequest{Layout: geo, Expanded: true},
			want: Layout{MinColumnWidth: 200, TaskDetailsWidth: 389, TotalWidth: 1589, TaskCount: 30, Height: 1000},
		},
		{
			name: "no layout",
			req:  RenderRequest{TaskCount: 12},
			want: Layout{MinColumnWidth: 121, TaskDetailsWidth: 310, TotalWidth: 0, TaskCount: 12, Height: 1000},
		},
		{
			name:     "computed height covers main layout",
			req:      RenderRequest{Layout: geo, Expanded: true},
			computed: true,
			want:     Layout{MinColumnWidth: 200, TaskDetailsWidth: 389, TotalWidth: 1589, TaskCount: 30, Height: 30*25 + 50 + 90},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := ComputeLayout(tt.req, tt.computed); got != tt.want {
				t.Errorf("ComputeLayout() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestScrollContainerHeight(t *testing.T) {
	t.Parallel()

	for n, want := range map[int]int{0: 50, 1: 75, 10: 300, 40: 1050} {
		if got := ScrollContainerHeight(n); got != want {
			t.Errorf("ScrollContainerHeight(%d) = %d, want %d", n, got, want)
		}
	}
}
