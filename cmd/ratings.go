package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/coursex/internal/formatter"
	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/ratings"
	"github.com/desertthunder/coursex/internal/shared"
	"github.com/urfave/cli/v3"
)

// activate resolves slug and starts tracking its rating state. Call the returned func when done.
func (r *Runner) activate(ctx context.Context, cmd *cli.Command) (*models.CourseDetail, ratings.State, func(), error) {
	slug, err := requireSlug(cmd)
	if err != nil {
		return nil, ratings.State{}, nil, err
	}
	if err := r.start(ctx); err != nil {
		return nil, ratings.State{}, nil, err
	}

	detail, err := r.catalog.Course(ctx, slug)
	if err != nil {
		return nil, ratings.State{}, nil, fmt.Errorf("failed to fetch course: %w", err)
	}

	state, err := r.ratings.Activate(ctx, detail.ID, detail.Stats())
	if err != nil {
		r.logger.Warn("rating data incomplete", "course", slug, "error", err)
	}
	return detail, state, func() { r.ratings.Deactivate(detail.ID) }, nil
}

// RatingsStats prints a course's rating aggregate and the user's vote.
func (r *Runner) RatingsStats(ctx context.Context, cmd *cli.Command) error {
	detail, state, done, err := r.activate(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			CourseID int                `json:"course_id"`
			Stats    models.RatingStats `json:"stats"`
			UserVote int                `json:"user_vote,omitempty"`
		}{CourseID: detail.ID, Stats: state.Stats, UserVote: state.UserVote}, true)
	}

	r.writePlain("%s\n", detail.Name)
	r.writePlain("Course rating: %s %s\n", formatter.FormatStars(state.Stats.AverageRating), formatter.FormatStats(state.Stats))
	switch {
	case !r.session.Snapshot().Authenticated():
		r.writePlain("Sign in to see your rating.\n")
	case state.HasVote():
		r.writePlain("Your rating:   %s (%d/%d)\n", formatter.FormatStars(float64(state.UserVote)), state.UserVote, models.MaxRating)
	default:
		r.writePlain("You have not rated this course.\n")
	}
	return nil
}

// RatingsRate creates or replaces the user's vote on a course.
func (r *Runner) RatingsRate(ctx context.Context, cmd *cli.Command) error {
	raw := strings.TrimSpace(cmd.StringArg("stars"))
	if raw == "" {
		return fmt.Errorf("%w: star rating", shared.ErrMissingArgument)
	}
	stars, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", shared.ErrInvalidArgument, raw)
	}

	detail, _, done, err := r.activate(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	if err := r.ratings.SubmitRating(ctx, detail.ID, stars); err != nil {
		return fmt.Errorf("rating failed: %w", err)
	}

	state, _ := r.ratings.State(detail.ID)
	return r.writePlain("✓ Rated %s %s\nCourse rating: %s\n", detail.Name, formatter.FormatStars(float64(state.UserVote)), formatter.FormatStats(state.Stats))
}

// RatingsDelete removes the user's vote after confirmation.
func (r *Runner) RatingsDelete(ctx context.Context, cmd *cli.Command) error {
	detail, state, done, err := r.activate(ctx, cmd)
	if err != nil {
		return err
	}
	defer done()

	if !r.session.Snapshot().Authenticated() {
		return fmt.Errorf("delete failed: %w", shared.ErrUnauthenticated)
	}
	if !state.HasVote() {
		return r.writePlain("You have not rated %s.\n", detail.Name)
	}

	if !cmd.Bool("yes") {
		ok, err := r.prompter.Confirm(ctx, fmt.Sprintf("Delete your %d-star rating for %s?", state.UserVote, detail.Name))
		if err != nil {
			return err
		}
		if !ok {
			return r.writePlain("Kept your rating.\n")
		}
	}

	if err := r.ratings.DeleteRating(ctx, detail.ID); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	state, _ = r.ratings.State(detail.ID)
	return r.writePlain("✓ Removed your rating for %s\nCourse rating: %s\n", detail.Name, formatter.FormatStats(state.Stats))
}
