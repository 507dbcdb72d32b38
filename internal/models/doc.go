// Package models defines the records exchanged with the course service.
//
// The package contains two categories of types:
//
// 1. Identity: the authenticated account as reported by the service
//   - [User] : account record returned by registration and /auth/me
//
// 2. Catalog and ratings: read-only display data and per-course rating values
//   - [Course], [CourseDetail], [Class], [Teacher] : catalog entries
//   - [RatingStats] : course-level aggregate of every user's vote
//   - [UserRating] : a single user's vote for a course
//
// JSON tags follow the service's snake_case wire format.
package models
