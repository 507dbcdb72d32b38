// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for browsing and rating courses:
//  1. [CourseListView] : Browse the catalog with rating aggregates
//  2. [CourseView] : Classes of one course plus the rating widget
//  3. [ConfirmView] : Confirm deleting your rating
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Rating and session changes flow in through subscription channels, so optimistic updates,
// rollbacks and the succeeded→idle reset render as they happen.
//
// Keyboard navigation uses vim-style bindings (j/k, h/l, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
