package planprint

import (
	"fmt"
	"strings"
)

// Display toggles recognised in RenderRequest.Params.
const (
	ParamLabels        = "labels"
	ParamAdvances      = "advances"
	ParamReportedHours = "reportedHours"
	ParamResources     = "resources"
)

// ParamValueAll switches a display toggle on.
const ParamValueAll = "all"

// toggleSelectors maps each display toggle to the element class it reveals.
// Order is the order rules are emitted in.
var toggleSelectors = []struct {
	param    string
	selector string
}{
	{ParamLabels, ".task-labels"},
	{ParamAdvances, ".completion2"},
	{ParamReportedHours, ".completion"},
	{ParamResources, ".task-resources"},
}

// OverlayParams are the inputs of the generated print rules.
type OverlayParams struct {
	Width          int
	Params         map[string]string
	TaskCount      int
	MinColumnWidth int
}

// overlayParamsFor builds overlay inputs from a request and its layout.
func overlayParamsFor(req RenderRequest, l Layout) OverlayParams {
	return OverlayParams{
		Width:          l.TotalWidth,
		Params:         req.Params,
		TaskCount:      l.TaskCount,
		MinColumnWidth: l.MinColumnWidth,
	}
}

// buildOverlayCSS returns the rules appended to the base stylesheet.
func buildOverlayCSS(p OverlayParams) string {
	var buf strings.Builder
	buf.WriteString(buildWidthCSS(p.Width))
	buf.WriteString(buildToggleCSS(p.Params))
	buf.WriteString(buildHeightCSS(p.TaskCount))
	buf.WriteString(buildTaskNameColumnCSS(p.MinColumnWidth))
	return buf.String()
}

// buildWidthCSS pins the body to the planner width.
func buildWidthCSS(width int) string {
	return fmt.Sprintf(" body { width: %dpx; } \n", width)
}

// buildToggleCSS reveals every element class whose toggle is exactly "all".
func buildToggleCSS(params map[string]string) string {
	var buf strings.Builder
	for _, t := range toggleSelectors {
		if params[t.param] == ParamValueAll {
			fmt.Fprintf(&buf, " %s { display: inline !important;} \n", t.selector)
		}
	}
	return buf.String()
}

// buildHeightCSS stretches the planner containers to fit taskCount rows.
func buildHeightCSS(taskCount int) string {
	h := ScrollContainerHeight(taskCount)
	var buf strings.Builder
	fmt.Fprintf(&buf, " body div#scroll_container { height: %dpx !important;} \n", h)
	fmt.Fprintf(&buf, " body div#timetracker { height: %dpx !important; } \n", h+20)
	fmt.Fprintf(&buf, " body div.plannerlayout { height: %dpx !important; } \n", h+80)
	fmt.Fprintf(&buf, " body div.main-layout { height: %dpx !important; } \n", h+mainLayoutExtra)
	return buf.String()
}

// buildTaskNameColumnCSS widens the task name column and the nested task
// title inputs. Each depth level is indented 21px further.
func buildTaskNameColumnCSS(minWidth int) string {
	var buf strings.Builder
	buf.WriteString("/* ------ Make the area for task names wider ------ */\n")
	buf.WriteString("th.z-tree-col {width: 76px !important;}\n")
	fmt.Fprintf(&buf, "th.tree-text {width: %dpx !important;}\n", 24+minWidth)
	fmt.Fprintf(&buf, ".taskdetailsContainer, .z-west-body, .z-tree-header, .z-tree-body {width: %dpx !important;}\n", 176+minWidth)
	for depth, offset := range []int{1, 22, 43, 64} {
		fmt.Fprintf(&buf, ".listdetails .depth_%d input.task_title {width: %dpx !important;}\n", depth+1, minWidth-offset)
	}
	return buf.String()
}
