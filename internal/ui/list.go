package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/coursex/internal/formatter"
	"github.com/desertthunder/coursex/internal/models"
)

var (
	_ list.Item = courseItem{}
	_ list.Item = classItem{}
)

// courseItem wraps [models.Course] to implement [list.Item].
type courseItem struct {
	course models.Course
}

func (i courseItem) FilterValue() string { return i.course.Name }
func (i courseItem) Title() string       { return i.course.Name }
func (i courseItem) Description() string {
	stats := i.course.Stats()
	desc := fmt.Sprintf("%s %s", formatter.FormatStars(stats.AverageRating), formatter.FormatStats(stats))
	if i.course.Description != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.course.Description)
	}
	return desc
}

// classItem wraps [models.Class] to implement [list.Item].
type classItem struct {
	class models.Class
}

func (i classItem) FilterValue() string { return i.class.Name }
func (i classItem) Title() string       { return i.class.Name }
func (i classItem) Description() string {
	desc := i.class.Description
	if i.class.Duration != nil {
		d := formatter.FormatDuration(*i.class.Duration)
		if desc == "" {
			return d
		}
		desc = fmt.Sprintf("%s • %s", d, desc)
	}
	return desc
}
