// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package vectorstore holds the course index consumed by the RAG tools:
// semantic search over content chunks plus course metadata lookups.
// Two implementations exist: a Weaviate-backed store for deployments and
// an embedded in-memory store for tests and dependency-free development.
package vectorstore

import "context"

// SearchLimit is the default number of chunks returned per search.
const SearchLimit = 5

// Store is the course index capability.
//
// Description:
//
//	Search never returns a Go error: failures are reported inside
//	SearchResults.Err so tool code can hand them to the model verbatim.
//	Course names given to Search and GetCourseOutline are resolved
//	fuzzily (partial titles match), mirroring how users refer to courses.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Store interface {
	// Search finds content chunks semantically matching the query,
	// optionally restricted to a course (fuzzy name) and lesson number.
	// A courseName that resolves to no course produces an Err result.
	Search(ctx context.Context, query, courseName string, lessonNumber *int) SearchResults

	// ResolveCourseName maps a partial or inexact course name to the
	// stored course title. Returns "" when nothing matches.
	ResolveCourseName(ctx context.Context, name string) string

	// GetCourseOutline returns the full course metadata for a fuzzily
	// matched title. Returns nil when nothing matches.
	GetCourseOutline(ctx context.Context, title string) (*Course, error)

	// GetLessonLink returns the lesson URL for an exact course title,
	// or "" when unknown.
	GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) string

	// AddCourse indexes course metadata.
	AddCourse(ctx context.Context, course Course) error

	// AddChunks indexes content chunks.
	AddChunks(ctx context.Context, chunks []CourseChunk) error

	// CourseTitles lists all indexed course titles.
	CourseTitles(ctx context.Context) ([]string, error)

	// Clear removes all indexed data.
	Clear(ctx context.Context) error
}
