package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/coursex/internal/formatter"
	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/ratings"
	"github.com/desertthunder/coursex/internal/session"
	"github.com/desertthunder/coursex/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	CourseListView ViewState = iota
	CourseView
	ConfirmView
)

var openBrowser = shared.OpenBrowser

// Catalog supplies course listings.
type Catalog interface {
	Courses(ctx context.Context) ([]models.Course, error)
	Course(ctx context.Context, slug string) (*models.CourseDetail, error)
}

// Ratings is the rating engine as seen by the TUI.
type Ratings interface {
	Activate(ctx context.Context, courseID int, seed models.RatingStats) (ratings.State, error)
	Deactivate(courseID int)
	SubmitRating(ctx context.Context, courseID, rating int) error
	DeleteRating(ctx context.Context, courseID int) error
	ClearError(courseID int) error
	SetHover(courseID, vote int) error
	Subscribe() (<-chan ratings.Update, func())
}

// Session is the read side of the session manager.
type Session interface {
	Snapshot() session.Snapshot
	Subscribe() (<-chan session.Snapshot, func())
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	view    ViewState
	catalog Catalog
	engine  Ratings
	session Session
	width   int
	height  int

	courseList list.Model
	courses    []models.Course
	classList  list.Model
	course     *models.CourseDetail
	rating     ratings.State

	ratingUpdates  <-chan ratings.Update
	sessionUpdates <-chan session.Snapshot
	unsubscribe    []func()
	snapshot       session.Snapshot

	status string
	err    error
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, catalog Catalog, engine Ratings, sess Session) *Model {
	m := &Model{
		ctx:      ctx,
		view:     CourseListView,
		catalog:  catalog,
		engine:   engine,
		session:  sess,
		snapshot: sess.Snapshot(),
		help:     help.New(),
		keys:     newKeyMap(),
	}

	m.courseList = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.courseList.Title = "Courses"
	m.classList = list.New(nil, list.NewDefaultDelegate(), 0, 0)
	m.classList.Title = "Classes"
	m.classList.SetFilteringEnabled(false)
	m.classList.SetShowHelp(false)

	var unsub func()
	m.ratingUpdates, unsub = engine.Subscribe()
	m.unsubscribe = append(m.unsubscribe, unsub)
	m.sessionUpdates, unsub = sess.Subscribe()
	m.unsubscribe = append(m.unsubscribe, unsub)
	return m
}

// Close releases the model's subscriptions and the active course.
func (m *Model) Close() {
	if m.course != nil {
		m.engine.Deactivate(m.course.ID)
	}
	for _, unsub := range m.unsubscribe {
		unsub()
	}
	m.unsubscribe = nil
}

// Init initializes the TUI by fetching the course catalog.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.fetchCourses(), m.waitForRating(), m.waitForSession())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.courseList.SetSize(max(0, msg.Width-4), max(0, msg.Height-8))
		m.classList.SetSize(max(0, msg.Width-4), max(0, msg.Height-14))
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case CourseListView:
			return m.handleCourseListKeys(msg)
		case CourseView:
			return m.handleCourseKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgCoursesFetched:
		data := msg.data.(coursesFetched)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.courses = data.courses
		items := make([]list.Item, len(data.courses))
		for i, c := range data.courses {
			items[i] = courseItem{course: c}
		}
		return m, m.courseList.SetItems(items)

	case MsgCourseFetched:
		data := msg.data.(courseFetched)
		if data.err != nil {
			m.err = data.err
			m.view = CourseListView
			return m, nil
		}
		m.err = nil
		m.course = data.course
		m.rating = data.state
		items := make([]list.Item, len(data.course.Classes))
		for i, c := range data.course.Classes {
			items[i] = classItem{class: c}
		}
		cmd := m.classList.SetItems(items)
		m.classList.Select(0)
		m.view = CourseView
		return m, cmd

	case MsgRatingUpdate:
		update := msg.data.(ratings.Update)
		if m.course != nil && update.CourseID == m.course.ID && !update.Removed {
			m.rating = update.State
		}
		return m, m.waitForRating()

	case MsgRatingDone:
		return m, nil

	case MsgSessionUpdate:
		m.snapshot = msg.data.(session.Snapshot)
		return m, m.waitForSession()

	case MsgVideoOpened:
		data := msg.data.(videoOpened)
		if data.err != nil {
			m.status = styles.err.Render(fmt.Sprintf("Could not open %s: %v", data.class.Name, data.err))
		} else {
			m.status = styles.ok.Render(fmt.Sprintf("Playing %s in your browser", data.class.Name))
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.err))
	}

	switch m.view {
	case CourseListView:
		return m.renderCourseList()
	case CourseView:
		return m.renderCourse()
	case ConfirmView:
		return m.renderConfirm()
	default:
		return ""
	}
}

func (m *Model) handleCourseListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.courseList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.courseList, cmd = m.courseList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		m.err = nil
		return m, m.fetchCourses()
	case key.Matches(msg, m.keys.enter):
		if m.err != nil {
			return m, nil
		}
		if selected, ok := m.courseList.SelectedItem().(courseItem); ok {
			return m, m.fetchCourse(selected.course)
		}
	}

	var cmd tea.Cmd
	m.courseList, cmd = m.courseList.Update(msg)
	return m, cmd
}

func (m *Model) handleCourseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.course.ID

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.engine.Deactivate(id)
		m.course = nil
		m.rating = ratings.State{}
		m.status = ""
		m.view = CourseListView
		return m, m.fetchCourses()
	case key.Matches(msg, m.keys.rate):
		n, _ := strconv.Atoi(msg.String())
		return m, m.submit(n)
	case key.Matches(msg, m.keys.left):
		m.moveHover(-1)
		return m, nil
	case key.Matches(msg, m.keys.right):
		m.moveHover(1)
		return m, nil
	case key.Matches(msg, m.keys.submit):
		if m.rating.HoverVote != 0 {
			return m, m.submit(m.rating.HoverVote)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if m.rating.HasVote() {
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.dismiss):
		m.engine.ClearError(id)
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchCourse(m.course.Course)
	case key.Matches(msg, m.keys.enter):
		if selected, ok := m.classList.SelectedItem().(classItem); ok {
			return m, m.openVideo(selected.class)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.classList, cmd = m.classList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = CourseView
		return m, m.remove()
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.quit):
		m.view = CourseView
		return m, nil
	}
	return m, nil
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case CourseListView:
		m.courseList, cmd = m.courseList.Update(msg)
	case CourseView:
		m.classList, cmd = m.classList.Update(msg)
	}
	return m, cmd
}

// moveHover steps the previewed vote, starting from the current vote.
func (m *Model) moveHover(delta int) {
	current := m.rating.HoverVote
	if current == 0 {
		current = m.rating.UserVote
	}
	next := max(models.MinRating, min(models.MaxRating, current+delta))
	m.engine.SetHover(m.course.ID, next)
}

func (m *Model) fetchCourses() tea.Cmd {
	return func() tea.Msg {
		courses, err := m.catalog.Courses(m.ctx)
		return coursesFetchedMsg(courses, err)
	}
}

func (m *Model) fetchCourse(course models.Course) tea.Cmd {
	return func() tea.Msg {
		detail, err := m.catalog.Course(m.ctx, course.Slug)
		if err != nil {
			return courseFetchedMsg(nil, ratings.State{}, err)
		}
		state, _ := m.engine.Activate(m.ctx, detail.ID, detail.Stats())
		return courseFetchedMsg(detail, state, nil)
	}
}

func (m *Model) submit(rating int) tea.Cmd {
	id := m.course.ID
	return func() tea.Msg {
		return ratingDoneMsg(m.engine.SubmitRating(m.ctx, id, rating))
	}
}

func (m *Model) remove() tea.Cmd {
	id := m.course.ID
	return func() tea.Msg {
		return ratingDoneMsg(m.engine.DeleteRating(m.ctx, id))
	}
}

func (m *Model) openVideo(class models.Class) tea.Cmd {
	return func() tea.Msg {
		if class.Video == "" {
			return videoOpenedMsg(class, fmt.Errorf("no video for this class"))
		}
		return videoOpenedMsg(class, openBrowser(class.Video))
	}
}

func (m *Model) waitForRating() tea.Cmd {
	ch := m.ratingUpdates
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return nil
		}
		return ratingUpdateMsg(update)
	}
}

func (m *Model) waitForSession() tea.Cmd {
	ch := m.sessionUpdates
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return sessionUpdateMsg(snap)
	}
}

func (m *Model) renderSession() string {
	if m.snapshot.Authenticated() {
		name := m.snapshot.User.FullName
		if name == "" {
			name = m.snapshot.User.Email
		}
		return styles.help.Render("Signed in as " + name)
	}
	return styles.help.Render("Browsing anonymously • run `coursex auth login` to rate courses")
}

func (m *Model) renderCourseList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.refresh, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n%s\n\n%s", m.courseList.View(), m.renderSession(), helpView)
}

// renderStars draws the rating widget, preferring the hover preview over the vote.
func (m *Model) renderStars() string {
	shown := m.rating.HoverVote
	if shown == 0 {
		shown = m.rating.UserVote
	}

	var b strings.Builder
	for i := models.MinRating; i <= models.MaxRating; i++ {
		switch {
		case i <= shown && m.rating.HoverVote != 0:
			b.WriteString(styles.hover.Render("★"))
		case i <= shown:
			b.WriteString(styles.star.Render("★"))
		default:
			b.WriteString("☆")
		}
	}
	return b.String()
}

func (m *Model) renderRatingStatus() string {
	switch m.rating.Phase {
	case ratings.PhasePending:
		return styles.warn.Render("Saving…")
	case ratings.PhaseSucceeded:
		return styles.ok.Render("✓ Saved")
	case ratings.PhaseFailed:
		return styles.err.Render("✗ " + m.rating.LastError)
	default:
		return ""
	}
}

func (m *Model) renderCourse() string {
	c := m.course
	title := styles.title.Render(c.Name)

	var info strings.Builder
	if c.Description != "" {
		info.WriteString(c.Description + "\n")
	}
	if len(c.Teachers) > 0 {
		names := make([]string, len(c.Teachers))
		for i, t := range c.Teachers {
			names[i] = t.Name
		}
		info.WriteString(styles.help.Render("Taught by "+strings.Join(names, ", ")) + "\n")
	}

	stats := m.rating.Stats
	info.WriteString(fmt.Sprintf("\nCourse rating: %s %s\n", formatter.FormatStars(stats.AverageRating), formatter.FormatStats(stats)))
	if m.snapshot.Authenticated() {
		info.WriteString(fmt.Sprintf("Your rating:   %s %s\n", m.renderStars(), m.renderRatingStatus()))
	} else {
		info.WriteString(styles.warn.Render("Log in to rate this course") + "\n")
		if m.rating.Phase == ratings.PhaseFailed {
			info.WriteString(m.renderRatingStatus() + "\n")
		}
	}

	helpKeys := []key.Binding{m.keys.rate, m.keys.left, m.keys.right, m.keys.submit}
	if m.rating.HasVote() {
		helpKeys = append(helpKeys, m.keys.remove)
	}
	if m.rating.Phase == ratings.PhaseFailed {
		helpKeys = append(helpKeys, m.keys.dismiss)
	}
	helpKeys = append(helpKeys, m.keys.enter, m.keys.back, m.keys.quit)
	helpView := m.help.ShortHelpView(helpKeys)

	status := ""
	if m.status != "" {
		status = "\n" + m.status
	}

	return fmt.Sprintf("%s\n%s\n%s%s\n%s\n\n%s", title, info.String(), m.classList.View(), status, m.renderSession(), helpView)
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render(fmt.Sprintf("Delete your rating for '%s'?", m.course.Name))
	info := fmt.Sprintf("\nYour rating: %d/%d\n", m.rating.UserVote, models.MaxRating)

	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}
