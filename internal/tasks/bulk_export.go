package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/coursex/internal/models"
	"golang.org/x/time/rate"
)

// BulkExportOpts contains configuration for bulk course exports.
type BulkExportOpts struct {
	Format     string  // Export format: json, csv, markdown, txt
	OutputDir  string  // Base output directory (default: coursex_export_{epoch})
	NumWorkers int     // Concurrent writers (default: 5, max 10)
	RateLimit  float64 // Course fetches per second (default: 5)
}

// CourseExportResult is the outcome of exporting one course.
type CourseExportResult struct {
	Slug    string   `json:"slug"`
	Name    string   `json:"name"`
	Success bool     `json:"success"`
	Files   []string `json:"files,omitempty"`
	Error   error    `json:"-"`
	Message string   `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export run.
type BulkExportResult struct {
	Format            string               `json:"format"`
	TotalCourses      int                  `json:"total_courses"`
	SuccessfulExports int                  `json:"successful_exports"`
	FailedExports     int                  `json:"failed_exports"`
	OutputDirectory   string               `json:"output_directory"`
	ManifestPath      string               `json:"-"`
	ExportedAt        time.Time            `json:"exported_at"`
	Results           []CourseExportResult `json:"results"`
}

type exportJob struct {
	slug   string
	export *models.CourseExport
}

// BulkExport exports the courses identified by slugs concurrently with rate limiting and progress tracking.
//
// Failed courses are recorded in the result. The returned error is reserved for setup failures and
// a manifest that cannot be written.
func (e *ExportEngine) BulkExport(ctx context.Context, prog chan<- ProgressUpdate, slugs []string, opts BulkExportOpts) (*BulkExportResult, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("coursex_export_%d", e.now().Unix())
	}
	if opts.Format == "" {
		opts.Format = FormatJSON
	}
	opts.NumWorkers = max(1, min(opts.NumWorkers, 10))
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		Format:          opts.Format,
		TotalCourses:    len(slugs),
		OutputDirectory: opts.OutputDir,
		ExportedAt:      e.now().UTC(),
		Results:         make([]CourseExportResult, 0, len(slugs)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan exportJob, len(slugs))
	results := make(chan CourseExportResult, len(slugs))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(&wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		e.sendProgress(prog, fetchingCoursesUpdate(len(slugs)))
		for i, slug := range slugs {
			if err := limiter.Wait(ctx); err != nil {
				for _, rest := range slugs[i:] {
					results <- CourseExportResult{Slug: rest, Name: rest, Error: fmt.Errorf("export canceled: %w", err)}
				}
				return
			}

			export, err := e.Snapshot(ctx, slug)
			if err != nil {
				results <- CourseExportResult{Slug: slug, Name: slug, Error: err}
				continue
			}

			e.sendProgress(prog, fetchedCourseUpdate(i+1, len(slugs), export.Course.Name))
			jobs <- exportJob{slug: slug, export: export}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(slugs), &res))
		} else {
			result.FailedExports++
			res.Message = res.Error.Error()
			e.logger.Warn("course export failed", "course", res.Slug, "error", res.Error)
			e.sendProgress(prog, exportFailedUpdate(completed, len(slugs), &res))
		}
		result.Results = append(result.Results, res)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker writes courses from the jobs channel.
func (e *ExportEngine) exportWorker(wg *sync.WaitGroup, jobs <-chan exportJob, results chan<- CourseExportResult, opts BulkExportOpts) {
	defer wg.Done()
	for job := range jobs {
		results <- e.exportOne(job, opts)
	}
}

func (e *ExportEngine) exportOne(job exportJob, opts BulkExportOpts) CourseExportResult {
	res := CourseExportResult{Slug: job.slug, Name: job.export.Course.Name}

	files, err := WriteExport(job.export, opts.Format, opts.OutputDir)
	if err != nil {
		res.Error = err
		return res
	}
	res.Files = files
	res.Success = true
	return res
}

func writeManifest(result *BulkExportResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
