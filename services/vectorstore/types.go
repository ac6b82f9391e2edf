// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vectorstore

// Lesson is one lesson inside a course.
type Lesson struct {
	// Number is the 1-based lesson number within the course.
	Number int `json:"lesson_number"`

	// Title is the lesson title.
	Title string `json:"title"`

	// Link is the lesson URL, when known.
	Link string `json:"lesson_link,omitempty"`
}

// Course is the indexed metadata for one course document.
type Course struct {
	// Title uniquely identifies the course in the store.
	Title string `json:"title"`

	// Link is the course URL, when known.
	Link string `json:"course_link,omitempty"`

	// Instructor is the course instructor, when known.
	Instructor string `json:"instructor,omitempty"`

	// Lessons enumerates the course lessons in order.
	Lessons []Lesson `json:"lessons"`
}

// LessonLink returns the URL of the numbered lesson, or "" when unknown.
func (c *Course) LessonLink(number int) string {
	for _, l := range c.Lessons {
		if l.Number == number {
			return l.Link
		}
	}
	return ""
}

// CourseChunk is one searchable piece of course content.
type CourseChunk struct {
	// Content is the chunk text (with its context prefix).
	Content string `json:"content"`

	// CourseTitle names the owning course.
	CourseTitle string `json:"course_title"`

	// LessonNumber is the owning lesson, or nil for course-level content
	// (e.g., the course introduction before lesson 1).
	LessonNumber *int `json:"lesson_number,omitempty"`

	// ChunkIndex is the chunk's position within the course document.
	ChunkIndex int `json:"chunk_index"`
}

// ChunkMetadata is the per-hit metadata returned alongside each document.
type ChunkMetadata struct {
	CourseTitle  string `json:"course_title"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
	ChunkIndex   int    `json:"chunk_index"`
}

// SearchResults is the outcome of one content search.
//
// Description:
//
//	Documents, Metadata, and Distances are parallel slices, one entry per
//	hit. Store failures are carried in Err rather than returned as an
//	error value: the search tool reports store failures to the model as
//	result text, it never throws, so the error travels in-band.
type SearchResults struct {
	Documents []string
	Metadata  []ChunkMetadata
	Distances []float64

	// Err is the store's error string, empty on success.
	Err string
}

// IsEmpty reports whether the search produced no hits and no error.
func (r SearchResults) IsEmpty() bool {
	return r.Err == "" && len(r.Documents) == 0
}

// ErrorResults builds a SearchResults carrying only an error string.
func ErrorResults(msg string) SearchResults {
	return SearchResults{Err: msg}
}
