package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/desertthunder/coursex/internal/formatter"
	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
	"github.com/desertthunder/coursex/internal/tasks"
	"github.com/urfave/cli/v3"
)

var openBrowser = shared.OpenBrowser

func requireSlug(cmd *cli.Command) (string, error) {
	slug := strings.TrimSpace(cmd.StringArg("slug"))
	if slug == "" {
		return "", fmt.Errorf("%w: course slug", shared.ErrMissingArgument)
	}
	return slug, nil
}

// CoursesList prints the catalog.
func (r *Runner) CoursesList(ctx context.Context, cmd *cli.Command) error {
	courses, err := r.catalog.Courses(ctx)
	if err != nil {
		return fmt.Errorf("failed to list courses: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(courses, true)
	}
	if len(courses) == 0 {
		return r.writePlain("No courses found.\n")
	}

	w := tabwriter.NewWriter(r.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLUG\tNAME\tRATING")
	for _, c := range courses {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", c.ID, c.Slug, c.Name, formatter.FormatStats(c.Stats()))
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// CoursesShow prints a course with its teachers and classes.
func (r *Runner) CoursesShow(ctx context.Context, cmd *cli.Command) error {
	slug, err := requireSlug(cmd)
	if err != nil {
		return err
	}

	detail, err := r.catalog.Course(ctx, slug)
	if err != nil {
		return fmt.Errorf("failed to fetch course: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(detail, true)
	}

	r.writePlainHeader(detail.Name)
	if detail.Description != "" {
		r.writePlain("%s\n", detail.Description)
	}
	if len(detail.Teachers) > 0 {
		names := make([]string, len(detail.Teachers))
		for i, t := range detail.Teachers {
			names[i] = t.Name
		}
		r.writePlain("Taught by: %s\n", strings.Join(names, ", "))
	}
	stats := detail.Stats()
	r.writePlain("Rating: %s %s\n", formatter.FormatStars(stats.AverageRating), formatter.FormatStats(stats))

	r.writePlainln("Classes (%d):", len(detail.Classes))
	w := tabwriter.NewWriter(r.output, 0, 0, 2, ' ', 0)
	for i, c := range detail.Classes {
		duration := "-"
		if c.Duration != nil {
			duration = formatter.FormatDuration(*c.Duration)
		}
		fmt.Fprintf(w, "%d.\t%s\t%s\t(id %d)\n", i+1, c.Name, duration, c.ID)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// CoursesOpen plays a class video in the default browser.
func (r *Runner) CoursesOpen(ctx context.Context, cmd *cli.Command) error {
	var class *models.Class

	if id := cmd.Int("class"); id > 0 {
		c, err := r.catalog.Class(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to fetch class: %w", err)
		}
		class = c
	} else {
		slug, err := requireSlug(cmd)
		if err != nil {
			return err
		}
		detail, err := r.catalog.Course(ctx, slug)
		if err != nil {
			return fmt.Errorf("failed to fetch course: %w", err)
		}
		for i := range detail.Classes {
			if detail.Classes[i].Video != "" {
				class = &detail.Classes[i]
				break
			}
		}
		if class == nil {
			return fmt.Errorf("%w: %s has no playable classes", shared.ErrNotFound, slug)
		}
	}

	if class.Video == "" {
		return fmt.Errorf("%w: class %d has no video", shared.ErrNotFound, class.ID)
	}

	r.logger.Info("opening video", "class", class.Name, "url", class.Video)
	if err := openBrowser(class.Video); err != nil {
		return err
	}
	return r.writePlain("▶ Playing %s\n", class.Name)
}

// CoursesExport exports courses concurrently and prints progress as it goes.
func (r *Runner) CoursesExport(ctx context.Context, cmd *cli.Command) error {
	slugs := cmd.Args().Slice()
	if cmd.Bool("all") {
		courses, err := r.catalog.Courses(ctx)
		if err != nil {
			return fmt.Errorf("failed to list courses: %w", err)
		}
		slugs = slugs[:0]
		for _, c := range courses {
			slugs = append(slugs, c.Slug)
		}
	}
	if len(slugs) == 0 {
		return fmt.Errorf("%w: pass course slugs or --all", shared.ErrMissingArgument)
	}

	format := cmd.String("format")
	switch format {
	case tasks.FormatJSON, tasks.FormatCSV, tasks.FormatMarkdown, "md", tasks.FormatText:
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}

	if err := r.start(ctx); err != nil {
		return err
	}

	prog := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range prog {
			r.writePlain("%s\n", u.Message)
		}
	}()

	result, err := r.exporter.BulkExport(ctx, prog, slugs, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  r.config.API.RequestsPerSecond,
	})
	close(prog)
	<-done
	if err != nil {
		return err
	}

	r.writePlainln("Exported %d of %d courses to %s", result.SuccessfulExports, result.TotalCourses, result.OutputDirectory)
	r.writePlain("Manifest: %s\n", result.ManifestPath)
	if result.FailedExports > 0 {
		return fmt.Errorf("%w: %d courses failed to export", shared.ErrService, result.FailedExports)
	}
	return nil
}
