// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

const (
	classCourse = "Course"
	classChunk  = "CourseChunk"
)

// WeaviateStore is the Weaviate-backed Store.
//
// Description:
//
//	Uses two classes: Course (metadata, lessons serialized as JSON in a
//	text property) and CourseChunk (content + filterable courseTitle /
//	lessonNumber). Content search is nearText over CourseChunk with
//	where-filters; course name resolution is nearText over Course titles
//	with the closest hit winning. Vectorization is delegated to the
//	Weaviate instance's configured text2vec module.
//
// Thread Safety: Safe for concurrent use (the underlying client is).
type WeaviateStore struct {
	client *weaviate.Client
}

// WeaviateConfig holds connection details for a Weaviate instance.
type WeaviateConfig struct {
	Host   string // e.g. "localhost:8080"
	Scheme string // "http" or "https"
}

// NewWeaviateStore connects to Weaviate and ensures the schema exists.
//
// Inputs:
//   - ctx: Context for the schema bootstrap calls.
//   - cfg: Connection details.
//
// Outputs:
//   - *WeaviateStore: The connected store.
//   - error: Non-nil on connection or schema failure.
func NewWeaviateStore(ctx context.Context, cfg WeaviateConfig) (*WeaviateStore, error) {
	client, err := weaviate.NewClient(weaviate.Config{
		Host:   cfg.Host,
		Scheme: cfg.Scheme,
	})
	if err != nil {
		return nil, fmt.Errorf("weaviate: creating client: %w", err)
	}

	store := &WeaviateStore{client: client}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ensureSchema creates the Course and CourseChunk classes when absent.
func (s *WeaviateStore) ensureSchema(ctx context.Context) error {
	classes := []*models.Class{
		{
			Class:       classCourse,
			Description: "Course metadata with serialized lesson list",
			Properties: []*models.Property{
				{Name: "title", DataType: []string{"text"}},
				{Name: "instructor", DataType: []string{"text"}},
				{Name: "courseLink", DataType: []string{"text"}},
				{Name: "lessonsJson", DataType: []string{"text"}},
			},
		},
		{
			Class:       classChunk,
			Description: "Searchable course content chunk",
			Properties: []*models.Property{
				{Name: "content", DataType: []string{"text"}},
				{Name: "courseTitle", DataType: []string{"text"}},
				{Name: "lessonNumber", DataType: []string{"int"}},
				{Name: "chunkIndex", DataType: []string{"int"}},
			},
		},
	}

	for _, class := range classes {
		exists, err := s.client.Schema().ClassExistenceChecker().
			WithClassName(class.Class).Do(ctx)
		if err != nil {
			return fmt.Errorf("weaviate: checking class %s: %w", class.Class, err)
		}
		if exists {
			continue
		}
		if err := s.client.Schema().ClassCreator().WithClass(class).Do(ctx); err != nil {
			return fmt.Errorf("weaviate: creating class %s: %w", class.Class, err)
		}
		slog.Info("Created Weaviate class", "class", class.Class)
	}
	return nil
}

// Search implements Store.
func (s *WeaviateStore) Search(ctx context.Context, query, courseName string, lessonNumber *int) SearchResults {
	var where *filters.WhereBuilder
	var operands []*filters.WhereBuilder

	if courseName != "" {
		resolved := s.ResolveCourseName(ctx, courseName)
		if resolved == "" {
			return ErrorResults("No course found matching '" + courseName + "'")
		}
		operands = append(operands, filters.Where().
			WithPath([]string{"courseTitle"}).
			WithOperator(filters.Equal).
			WithValueText(resolved))
	}
	if lessonNumber != nil {
		operands = append(operands, filters.Where().
			WithPath([]string{"lessonNumber"}).
			WithOperator(filters.Equal).
			WithValueInt(int64(*lessonNumber)))
	}
	switch len(operands) {
	case 0:
	case 1:
		where = operands[0]
	default:
		where = filters.Where().WithOperator(filters.And).WithOperands(operands)
	}

	builder := s.client.GraphQL().Get().
		WithClassName(classChunk).
		WithFields(
			graphql.Field{Name: "content"},
			graphql.Field{Name: "courseTitle"},
			graphql.Field{Name: "lessonNumber"},
			graphql.Field{Name: "chunkIndex"},
			graphql.Field{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
		).
		WithNearText(s.client.GraphQL().NearTextArgBuilder().WithConcepts([]string{query})).
		WithLimit(SearchLimit)
	if where != nil {
		builder = builder.WithWhere(where)
	}

	resp, err := builder.Do(ctx)
	if err != nil {
		return ErrorResults("Search error: " + err.Error())
	}
	if len(resp.Errors) > 0 {
		return ErrorResults("Search error: " + resp.Errors[0].Message)
	}

	var payload struct {
		CourseChunk []struct {
			Content      string `json:"content"`
			CourseTitle  string `json:"courseTitle"`
			LessonNumber *int   `json:"lessonNumber"`
			ChunkIndex   int    `json:"chunkIndex"`
			Additional   struct {
				Distance float64 `json:"distance"`
			} `json:"_additional"`
		} `json:"CourseChunk"`
	}
	if err := decodeGraphQL(resp.Data["Get"], &payload); err != nil {
		return ErrorResults("Search error: " + err.Error())
	}

	var results SearchResults
	for _, hit := range payload.CourseChunk {
		results.Documents = append(results.Documents, hit.Content)
		results.Metadata = append(results.Metadata, ChunkMetadata{
			CourseTitle:  hit.CourseTitle,
			LessonNumber: hit.LessonNumber,
			ChunkIndex:   hit.ChunkIndex,
		})
		results.Distances = append(results.Distances, hit.Additional.Distance)
	}
	return results
}

// ResolveCourseName implements Store.
//
// Description:
//
//	nearText over the Course class: semantic matching lets partial or
//	misspelled names ("MCP course") resolve to the stored title.
func (s *WeaviateStore) ResolveCourseName(ctx context.Context, name string) string {
	resp, err := s.client.GraphQL().Get().
		WithClassName(classCourse).
		WithFields(graphql.Field{Name: "title"}).
		WithNearText(s.client.GraphQL().NearTextArgBuilder().WithConcepts([]string{name})).
		WithLimit(1).
		Do(ctx)
	if err != nil || len(resp.Errors) > 0 {
		slog.Warn("Course name resolution failed", "name", name, "error", err)
		return ""
	}

	var payload struct {
		Course []struct {
			Title string `json:"title"`
		} `json:"Course"`
	}
	if err := decodeGraphQL(resp.Data["Get"], &payload); err != nil || len(payload.Course) == 0 {
		return ""
	}
	return payload.Course[0].Title
}

// GetCourseOutline implements Store.
func (s *WeaviateStore) GetCourseOutline(ctx context.Context, title string) (*Course, error) {
	resolved := s.ResolveCourseName(ctx, title)
	if resolved == "" {
		return nil, nil
	}

	resp, err := s.client.GraphQL().Get().
		WithClassName(classCourse).
		WithFields(
			graphql.Field{Name: "title"},
			graphql.Field{Name: "instructor"},
			graphql.Field{Name: "courseLink"},
			graphql.Field{Name: "lessonsJson"},
		).
		WithWhere(filters.Where().
			WithPath([]string{"title"}).
			WithOperator(filters.Equal).
			WithValueText(resolved)).
		WithLimit(1).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate: fetching course %q: %w", resolved, err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviate: fetching course %q: %s", resolved, resp.Errors[0].Message)
	}

	var payload struct {
		Course []struct {
			Title       string `json:"title"`
			Instructor  string `json:"instructor"`
			CourseLink  string `json:"courseLink"`
			LessonsJSON string `json:"lessonsJson"`
		} `json:"Course"`
	}
	if err := decodeGraphQL(resp.Data["Get"], &payload); err != nil {
		return nil, err
	}
	if len(payload.Course) == 0 {
		return nil, nil
	}

	raw := payload.Course[0]
	course := &Course{
		Title:      raw.Title,
		Instructor: raw.Instructor,
		Link:       raw.CourseLink,
	}
	if raw.LessonsJSON != "" {
		if err := json.Unmarshal([]byte(raw.LessonsJSON), &course.Lessons); err != nil {
			return nil, fmt.Errorf("weaviate: decoding lessons for %q: %w", raw.Title, err)
		}
	}
	return course, nil
}

// GetLessonLink implements Store.
func (s *WeaviateStore) GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) string {
	course, err := s.GetCourseOutline(ctx, courseTitle)
	if err != nil || course == nil {
		return ""
	}
	return course.LessonLink(lessonNumber)
}

// AddCourse implements Store.
func (s *WeaviateStore) AddCourse(ctx context.Context, course Course) error {
	lessonsJSON, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("weaviate: encoding lessons: %w", err)
	}

	_, err = s.client.Data().Creator().
		WithClassName(classCourse).
		WithProperties(map[string]interface{}{
			"title":       course.Title,
			"instructor":  course.Instructor,
			"courseLink":  course.Link,
			"lessonsJson": string(lessonsJSON),
		}).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate: adding course %q: %w", course.Title, err)
	}
	return nil
}

// AddChunks implements Store.
func (s *WeaviateStore) AddChunks(ctx context.Context, chunks []CourseChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	objects := make([]*models.Object, 0, len(chunks))
	for _, chunk := range chunks {
		props := map[string]interface{}{
			"content":     chunk.Content,
			"courseTitle": chunk.CourseTitle,
			"chunkIndex":  chunk.ChunkIndex,
		}
		if chunk.LessonNumber != nil {
			props["lessonNumber"] = *chunk.LessonNumber
		}
		objects = append(objects, &models.Object{
			Class:      classChunk,
			Properties: props,
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return fmt.Errorf("weaviate: batch inserting %d chunks: %w", len(chunks), err)
	}
	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("weaviate: batch insert error: %s", obj.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// CourseTitles implements Store.
func (s *WeaviateStore) CourseTitles(ctx context.Context) ([]string, error) {
	resp, err := s.client.GraphQL().Get().
		WithClassName(classCourse).
		WithFields(graphql.Field{Name: "title"}).
		WithLimit(1000).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("weaviate: listing courses: %w", err)
	}
	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("weaviate: listing courses: %s", resp.Errors[0].Message)
	}

	var payload struct {
		Course []struct {
			Title string `json:"title"`
		} `json:"Course"`
	}
	if err := decodeGraphQL(resp.Data["Get"], &payload); err != nil {
		return nil, err
	}

	titles := make([]string, 0, len(payload.Course))
	for _, c := range payload.Course {
		titles = append(titles, c.Title)
	}
	return titles, nil
}

// Clear implements Store.
func (s *WeaviateStore) Clear(ctx context.Context) error {
	for _, class := range []string{classChunk, classCourse} {
		if err := s.client.Schema().ClassDeleter().WithClassName(class).Do(ctx); err != nil {
			return fmt.Errorf("weaviate: deleting class %s: %w", class, err)
		}
	}
	return s.ensureSchema(ctx)
}

// decodeGraphQL round-trips a GraphQL payload fragment through JSON into
// a typed struct. Weaviate hands back untyped maps; this keeps the field
// extraction declarative.
func decodeGraphQL(data interface{}, out interface{}) error {
	if data == nil {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("weaviate: re-encoding GraphQL payload: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("weaviate: decoding GraphQL payload: %w", err)
	}
	return nil
}
