// package formatter renders course snapshots to JSON, CSV, Markdown and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/coursex/internal/models"
)

// FormatDuration renders seconds as m:ss, or h:mm:ss past an hour.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatStars renders an average as five stars rounded to the nearest half, e.g. "★★★★½".
func FormatStars(avg float64) string {
	halves := int(math.Round(avg * 2))
	halves = max(0, min(2*models.MaxRating, halves))

	var b strings.Builder
	for i := 0; i < models.MaxRating; i++ {
		switch {
		case halves >= 2:
			b.WriteString("★")
			halves -= 2
		case halves == 1:
			b.WriteString("½")
			halves = 0
		default:
			b.WriteString("☆")
		}
	}
	return b.String()
}

// FormatStats renders an aggregate as "4.5 (2 ratings)", or "No ratings yet".
func FormatStats(stats models.RatingStats) string {
	switch stats.TotalRatings {
	case 0:
		return "No ratings yet"
	case 1:
		return fmt.Sprintf("%.1f (1 rating)", stats.AverageRating)
	default:
		return fmt.Sprintf("%.1f (%d ratings)", stats.AverageRating, stats.TotalRatings)
	}
}

func classDuration(c models.Class) string {
	if c.Duration == nil {
		return ""
	}
	return FormatDuration(*c.Duration)
}

// ExportToJSON encodes the full export, indented.
func ExportToJSON(export *models.CourseExport) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// ExportToCSV converts a course's classes to CSV with columns: ID, Name, Slug, Duration, Video
func ExportToCSV(export *models.CourseExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Slug", "Duration", "Video"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, class := range export.Course.Classes {
		duration := ""
		if class.Duration != nil {
			duration = strconv.Itoa(*class.Duration)
		}
		record := []string{strconv.Itoa(class.ID), class.Name, class.Slug, duration, class.Video}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a course to Markdown with an optional thumbnail
func ExportToMarkdown(export *models.CourseExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer
	course := export.Course

	fmt.Fprintf(&buf, "# %s\n\n", course.Name)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Thumbnail](%s)\n\n", imageFilename)
	}

	if course.Description != "" {
		fmt.Fprintf(&buf, "%s\n\n", course.Description)
	}

	fmt.Fprintf(&buf, "**Rating**: %s %s\n", FormatStars(export.Stats.AverageRating), FormatStats(export.Stats))
	if export.UserVote != 0 {
		fmt.Fprintf(&buf, "**Your rating**: %d/%d\n", export.UserVote, models.MaxRating)
	}
	fmt.Fprintf(&buf, "**Classes**: %d\n", len(course.Classes))
	if total := export.TotalDuration(); total > 0 {
		fmt.Fprintf(&buf, "**Length**: %s\n", FormatDuration(total))
	}

	if len(course.Teachers) > 0 {
		names := make([]string, len(course.Teachers))
		for i, t := range course.Teachers {
			names[i] = t.Name
		}
		fmt.Fprintf(&buf, "**Teachers**: %s\n", strings.Join(names, ", "))
	}

	buf.WriteString("\n## Classes\n\n")
	for i, class := range course.Classes {
		line := fmt.Sprintf("%d. %s", i+1, class.Name)
		if d := classDuration(class); d != "" {
			line += fmt.Sprintf(" [%s]", d)
		}
		buf.WriteString(line + "\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a course to plain text
func ExportToText(export *models.CourseExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Course: %s\n", export.Course.Name)
	if export.Course.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Course.Description)
	}
	fmt.Fprintf(&buf, "Rating: %s\n", FormatStats(export.Stats))
	fmt.Fprintf(&buf, "Classes: %d\n\n", len(export.Course.Classes))

	for i, class := range export.Course.Classes {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, class.Name)
	}

	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	ClassesFile  string
	MetadataFile string
}

// WriteCSVExport writes {base}_classes.csv and {base}_metadata.json.
//
// The base defaults to the course slug.
func WriteCSVExport(export *models.CourseExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Course.Slug
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	classesFile := baseFilepath + "_classes.csv"
	if err := os.WriteFile(classesFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadata := *export
	metadata.Course.Classes = nil
	metadataJSON, err := ExportToJSON(&metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{ClassesFile: classesFile, MetadataFile: metadataFile}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Thumbnail string
}

// WriteMarkdownExport writes {dir}/README.md and, when imageURL downloads, {dir}/thumbnail.jpg.
//
// The directory defaults to the course slug. A failed download is logged and skipped.
func WriteMarkdownExport(export *models.CourseExport, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = export.Course.Slug
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}

	var thumbnailFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			log.Warn("skipping thumbnail", "error", err)
		} else {
			thumbnailFilename = "thumbnail.jpg"
			thumbnailPath := filepath.Join(outputDir, thumbnailFilename)
			if err := os.WriteFile(thumbnailPath, imageData, 0644); err != nil {
				log.Warn("failed to save thumbnail", "error", err)
				thumbnailFilename = ""
			} else {
				result.Thumbnail = thumbnailPath
				result.Files = append(result.Files, thumbnailPath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, thumbnailFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport writes the plain text rendering, defaulting to {slug}_classes.txt.
func WriteTextExport(export *models.CourseExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_classes.txt", export.Course.Slug)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteJSONExport writes the JSON rendering, defaulting to {slug}.json.
func WriteJSONExport(export *models.CourseExport, path string) (string, error) {
	if path == "" {
		path = export.Course.Slug + ".json"
	}

	data, err := ExportToJSON(export)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write JSON file: %w", err)
	}

	return path, nil
}
