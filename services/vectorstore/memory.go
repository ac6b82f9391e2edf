// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vectorstore

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is a brute-force in-memory Store.
//
// Description:
//
//	Scores chunks by case-insensitive token overlap with the query
//	instead of embedding similarity. That is deliberately crude: good
//	enough for tests and for running the service without a Weaviate
//	instance, not a substitute for semantic search in production.
//
// Thread Safety: Safe for concurrent use via sync.RWMutex.
type MemoryStore struct {
	mu      sync.RWMutex
	courses map[string]Course
	chunks  []CourseChunk
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{courses: make(map[string]Course)}
}

// Search implements Store.
func (s *MemoryStore) Search(ctx context.Context, query, courseName string, lessonNumber *int) SearchResults {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filterTitle := ""
	if courseName != "" {
		filterTitle = s.resolveLocked(courseName)
		if filterTitle == "" {
			return ErrorResults("No course found matching '" + courseName + "'")
		}
	}

	type scored struct {
		chunk CourseChunk
		score float64
	}
	var hits []scored
	terms := tokenize(query)

	for _, c := range s.chunks {
		if filterTitle != "" && c.CourseTitle != filterTitle {
			continue
		}
		if lessonNumber != nil && (c.LessonNumber == nil || *c.LessonNumber != *lessonNumber) {
			continue
		}
		score := overlapScore(terms, c.Content)
		if score > 0 {
			hits = append(hits, scored{chunk: c, score: score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > SearchLimit {
		hits = hits[:SearchLimit]
	}

	var results SearchResults
	for _, h := range hits {
		results.Documents = append(results.Documents, h.chunk.Content)
		results.Metadata = append(results.Metadata, ChunkMetadata{
			CourseTitle:  h.chunk.CourseTitle,
			LessonNumber: h.chunk.LessonNumber,
			ChunkIndex:   h.chunk.ChunkIndex,
		})
		// Distance is 1-score so lower is better, matching Weaviate.
		results.Distances = append(results.Distances, 1-h.score)
	}
	return results
}

// ResolveCourseName implements Store.
func (s *MemoryStore) ResolveCourseName(ctx context.Context, name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.resolveLocked(name)
}

// resolveLocked matches exact title first, then case-insensitive substring.
func (s *MemoryStore) resolveLocked(name string) string {
	if _, ok := s.courses[name]; ok {
		return name
	}
	needle := strings.ToLower(name)
	var titles []string
	for title := range s.courses {
		titles = append(titles, title)
	}
	sort.Strings(titles) // deterministic when several match
	for _, title := range titles {
		if strings.Contains(strings.ToLower(title), needle) {
			return title
		}
	}
	return ""
}

// GetCourseOutline implements Store.
func (s *MemoryStore) GetCourseOutline(ctx context.Context, title string) (*Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	resolved := s.resolveLocked(title)
	if resolved == "" {
		return nil, nil
	}
	course := s.courses[resolved]
	return &course, nil
}

// GetLessonLink implements Store.
func (s *MemoryStore) GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	course, ok := s.courses[courseTitle]
	if !ok {
		return ""
	}
	return course.LessonLink(lessonNumber)
}

// AddCourse implements Store.
func (s *MemoryStore) AddCourse(ctx context.Context, course Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[course.Title] = course
	return nil
}

// AddChunks implements Store.
func (s *MemoryStore) AddChunks(ctx context.Context, chunks []CourseChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunks...)
	return nil
}

// CourseTitles implements Store.
func (s *MemoryStore) CourseTitles(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	titles := make([]string, 0, len(s.courses))
	for title := range s.courses {
		titles = append(titles, title)
	}
	sort.Strings(titles)
	return titles, nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses = make(map[string]Course)
	s.chunks = nil
	return nil
}

func tokenize(text string) map[string]bool {
	terms := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(text)) {
		f = strings.Trim(f, ".,;:!?'\"()[]")
		if len(f) > 2 {
			terms[f] = true
		}
	}
	return terms
}

// overlapScore is the fraction of query terms present in the content.
func overlapScore(terms map[string]bool, content string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	matched := 0
	for term := range terms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
