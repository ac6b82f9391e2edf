// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tools

import (
	"context"

	"github.com/LecternAI/Lectern/services/vectorstore"
)

// mockStore implements vectorstore.Store with per-test override funcs.
type mockStore struct {
	searchFunc        func(ctx context.Context, query, courseName string, lessonNumber *int) vectorstore.SearchResults
	resolveFunc       func(ctx context.Context, name string) string
	outlineFunc       func(ctx context.Context, title string) (*vectorstore.Course, error)
	lessonLinkFunc    func(ctx context.Context, courseTitle string, lessonNumber int) string
	courseTitlesFunc  func(ctx context.Context) ([]string, error)
	searchCallCount   int
	lastQuery         string
	lastCourseName    string
	lastLessonNumber  *int
}

func (m *mockStore) Search(ctx context.Context, query, courseName string, lessonNumber *int) vectorstore.SearchResults {
	m.searchCallCount++
	m.lastQuery = query
	m.lastCourseName = courseName
	m.lastLessonNumber = lessonNumber
	if m.searchFunc != nil {
		return m.searchFunc(ctx, query, courseName, lessonNumber)
	}
	return vectorstore.SearchResults{}
}

func (m *mockStore) ResolveCourseName(ctx context.Context, name string) string {
	if m.resolveFunc != nil {
		return m.resolveFunc(ctx, name)
	}
	return name
}

func (m *mockStore) GetCourseOutline(ctx context.Context, title string) (*vectorstore.Course, error) {
	if m.outlineFunc != nil {
		return m.outlineFunc(ctx, title)
	}
	return nil, nil
}

func (m *mockStore) GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) string {
	if m.lessonLinkFunc != nil {
		return m.lessonLinkFunc(ctx, courseTitle, lessonNumber)
	}
	return ""
}

func (m *mockStore) AddCourse(ctx context.Context, course vectorstore.Course) error { return nil }

func (m *mockStore) AddChunks(ctx context.Context, chunks []vectorstore.CourseChunk) error {
	return nil
}

func (m *mockStore) CourseTitles(ctx context.Context) ([]string, error) {
	if m.courseTitlesFunc != nil {
		return m.courseTitlesFunc(ctx)
	}
	return nil, nil
}

func (m *mockStore) Clear(ctx context.Context) error { return nil }
