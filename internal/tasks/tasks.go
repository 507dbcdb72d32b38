package tasks

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursex/internal/formatter"
	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/session"
	"github.com/desertthunder/coursex/internal/shared"
)

// Export formats accepted by [WriteExport].
const (
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
	FormatText     = "txt"
)

// Catalog fetches course details.
type Catalog interface {
	Course(ctx context.Context, slug string) (*models.CourseDetail, error)
}

// RatingReader fetches the rating data included in an export.
type RatingReader interface {
	Stats(ctx context.Context, courseID int) (models.RatingStats, error)
	UserRating(ctx context.Context, courseID, userID int) (*models.UserRating, error)
}

// ExportEngine builds and writes course exports.
type ExportEngine struct {
	catalog  Catalog
	ratings  RatingReader
	identity session.Identity
	logger   *log.Logger
	now      func() time.Time
}

// NewExportEngine creates an ExportEngine. identity may be nil for anonymous exports.
func NewExportEngine(catalog Catalog, ratings RatingReader, identity session.Identity, logger *log.Logger) *ExportEngine {
	if logger == nil {
		logger = log.Default()
	}
	return &ExportEngine{
		catalog:  catalog,
		ratings:  ratings,
		identity: identity,
		logger:   shared.WithLogger(logger, "component", "export"),
		now:      time.Now,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *ExportEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Snapshot fetches everything exported for the course identified by slug.
//
// Stats that fail to load fall back to the aggregate embedded in the course. A missing or failed
// user vote leaves UserVote at 0.
func (e *ExportEngine) Snapshot(ctx context.Context, slug string) (*models.CourseExport, error) {
	detail, err := e.catalog.Course(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch course %s: %w", slug, err)
	}

	export := &models.CourseExport{
		Course:     *detail,
		Stats:      detail.Stats(),
		ExportedAt: e.now().UTC(),
	}

	if stats, err := e.ratings.Stats(ctx, detail.ID); err != nil {
		e.logger.Warn("using embedded rating stats", "course", slug, "error", err)
	} else {
		export.Stats = stats
	}

	if e.identity == nil {
		return export, nil
	}
	if user, ok := e.identity.CurrentUser(); ok {
		rating, err := e.ratings.UserRating(ctx, detail.ID, user.ID)
		switch {
		case err != nil:
			e.logger.Warn("skipping user rating", "course", slug, "error", err)
		case rating != nil:
			export.UserVote = rating.Rating
		}
	}
	return export, nil
}

// WriteExport writes export to dir in format and returns the files created.
//
// An unknown format falls back to JSON.
func WriteExport(export *models.CourseExport, format, dir string) ([]string, error) {
	slug := export.Course.Slug

	switch format {
	case FormatCSV:
		res, err := formatter.WriteCSVExport(export, filepath.Join(dir, slug))
		if err != nil {
			return nil, fmt.Errorf("CSV export failed: %w", err)
		}
		return []string{res.ClassesFile, res.MetadataFile}, nil

	case FormatMarkdown, "md":
		res, err := formatter.WriteMarkdownExport(export, filepath.Join(dir, slug), export.Course.Thumbnail)
		if err != nil {
			return nil, fmt.Errorf("markdown export failed: %w", err)
		}
		return res.Files, nil

	case FormatText:
		path, err := formatter.WriteTextExport(export, filepath.Join(dir, slug+"_classes.txt"))
		if err != nil {
			return nil, fmt.Errorf("text export failed: %w", err)
		}
		return []string{path}, nil

	default:
		path, err := formatter.WriteJSONExport(export, filepath.Join(dir, slug+".json"))
		if err != nil {
			return nil, fmt.Errorf("JSON export failed: %w", err)
		}
		return []string{path}, nil
	}
}
