package tasks

import "fmt"

// ProgressUpdate is one step of a bulk export, sent to the CLI or TUI for display.
type ProgressUpdate struct {
	Phase   Phase
	Step    int    // 1-based position within Total; 0 announces the phase
	Total   int    // courses in the export
	Message string // ready to print
	Data    any    // *CourseExportResult for [ExportCourse] updates
}

// Phase identifies which half of an export a [ProgressUpdate] belongs to.
type Phase int

const (
	FetchCourse  Phase = iota // snapshotting detail and ratings
	ExportCourse              // writing files
)

func (p Phase) String() string {
	switch p {
	case FetchCourse:
		return "fetch_course"
	case ExportCourse:
		return "export_course"
	}
	return ""
}

func fetchingCoursesUpdate(total int) ProgressUpdate {
	return ProgressUpdate{Phase: FetchCourse, Total: total, Message: fmt.Sprintf("Fetching %d courses...", total)}
}

func fetchedCourseUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{Phase: FetchCourse, Step: step, Total: total, Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name)}
}

func exportCompletedUpdate(step, total int, res *CourseExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCourse,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, res.Name, len(res.Files)),
		Data:    res,
	}
}

func exportFailedUpdate(step, total int, res *CourseExportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCourse,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, res.Name, res.Error),
		Data:    res,
	}
}
