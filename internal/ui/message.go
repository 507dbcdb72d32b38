package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/ratings"
	"github.com/desertthunder/coursex/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgCoursesFetched MsgKind = iota
	MsgCourseFetched
	MsgRatingUpdate
	MsgRatingDone
	MsgSessionUpdate
	MsgVideoOpened
)

type coursesFetched struct {
	courses []models.Course
	err     error
}

type courseFetched struct {
	course *models.CourseDetail
	state  ratings.State
	err    error
}

type videoOpened struct {
	class models.Class
	err   error
}

// coursesFetchedMsg is the constructor for [MsgCoursesFetched]
func coursesFetchedMsg(courses []models.Course, err error) Msg {
	return Msg{kind: MsgCoursesFetched, data: coursesFetched{courses, err}}
}

// courseFetchedMsg is the constructor for [MsgCourseFetched]
func courseFetchedMsg(course *models.CourseDetail, state ratings.State, err error) Msg {
	return Msg{kind: MsgCourseFetched, data: courseFetched{course, state, err}}
}

// ratingUpdateMsg is the constructor for [MsgRatingUpdate]
func ratingUpdateMsg(update ratings.Update) Msg {
	return Msg{kind: MsgRatingUpdate, data: update}
}

// ratingDoneMsg is the constructor for [MsgRatingDone]. The outcome itself arrives as a rating update.
func ratingDoneMsg(err error) Msg {
	return Msg{kind: MsgRatingDone, data: err}
}

// sessionUpdateMsg is the constructor for [MsgSessionUpdate]
func sessionUpdateMsg(snap session.Snapshot) Msg {
	return Msg{kind: MsgSessionUpdate, data: snap}
}

// videoOpenedMsg is the constructor for [MsgVideoOpened]
func videoOpenedMsg(class models.Class, err error) Msg {
	return Msg{kind: MsgVideoOpened, data: videoOpened{class, err}}
}
