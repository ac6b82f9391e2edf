// Copyright (C) 2026 Lectern AI (oss@lectern.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ingest turns course transcript files into indexed courses and
// content chunks. A course document is a plain-text file with a
// three-line header followed by lesson sections:
//
//	Course Title: <title>
//	Course Link: <url>
//	Course Instructor: <name>
//
//	Lesson 0: Introduction
//	Lesson Link: <url>
//	<transcript text>
//
//	Lesson 1: ...
package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/LecternAI/Lectern/services/vectorstore"
)

// Chunking defaults. Sentence-aligned chunks around 800 characters with
// 100 characters of overlap keep each chunk self-contained while
// preserving continuity across boundaries.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

var (
	lessonHeaderRe = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.+)$`)
	sentenceRe     = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)
)

// Processor parses course documents and splits lesson transcripts into
// overlapping sentence-aligned chunks.
//
// Thread Safety: Stateless after construction; safe for concurrent use.
type Processor struct {
	chunkSize    int
	chunkOverlap int
}

// NewProcessor creates a Processor. Pass 0 for either argument to use
// the defaults.
func NewProcessor(chunkSize, chunkOverlap int) *Processor {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = DefaultChunkOverlap
	}
	return &Processor{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

// ProcessFile parses one course document from disk.
func (p *Processor) ProcessFile(path string) (vectorstore.Course, []vectorstore.CourseChunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return vectorstore.Course{}, nil, fmt.Errorf("open course document: %w", err)
	}
	defer f.Close()

	course, chunks, err := p.Process(f)
	if err != nil {
		return vectorstore.Course{}, nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return course, chunks, nil
}

// Process parses a course document from a reader.
//
// Description:
//
//	The header must open with "Course Title:". Lesson sections start at
//	"Lesson N:" lines; an optional "Lesson Link:" follows the header
//	line. Text before the first lesson section is ignored. Each chunk
//	is prefixed with its course and lesson so it stands alone in
//	search results.
func (p *Processor) Process(r io.Reader) (vectorstore.Course, []vectorstore.CourseChunk, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var course vectorstore.Course
	var chunks []vectorstore.CourseChunk

	// Header ends at the first line that is not a header field; that
	// line belongs to the body.
	var firstBody string
	inHeader := true
	for inHeader && scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Course Title:"):
			course.Title = strings.TrimSpace(strings.TrimPrefix(line, "Course Title:"))
		case strings.HasPrefix(line, "Course Link:"):
			course.Link = strings.TrimSpace(strings.TrimPrefix(line, "Course Link:"))
		case strings.HasPrefix(line, "Course Instructor:"):
			course.Instructor = strings.TrimSpace(strings.TrimPrefix(line, "Course Instructor:"))
		case line == "":
		default:
			firstBody = line
			inHeader = false
		}
	}
	if course.Title == "" {
		return vectorstore.Course{}, nil, fmt.Errorf("document has no Course Title header")
	}

	var lesson *vectorstore.Lesson
	var transcript strings.Builder
	chunkIndex := 0

	flush := func() {
		if lesson == nil {
			transcript.Reset()
			return
		}
		num := lesson.Number
		for _, text := range p.splitChunks(transcript.String()) {
			n := num
			chunks = append(chunks, vectorstore.CourseChunk{
				Content: fmt.Sprintf("Course %s Lesson %d content: %s",
					course.Title, num, text),
				CourseTitle:  course.Title,
				LessonNumber: &n,
				ChunkIndex:   chunkIndex,
			})
			chunkIndex++
		}
		transcript.Reset()
	}

	line := firstBody
	for {
		if m := lessonHeaderRe.FindStringSubmatch(line); m != nil {
			flush()
			num, _ := strconv.Atoi(m[1])
			course.Lessons = append(course.Lessons, vectorstore.Lesson{
				Number: num,
				Title:  strings.TrimSpace(m[2]),
			})
			lesson = &course.Lessons[len(course.Lessons)-1]
		} else if strings.HasPrefix(line, "Lesson Link:") && lesson != nil && lesson.Link == "" {
			lesson.Link = strings.TrimSpace(strings.TrimPrefix(line, "Lesson Link:"))
		} else if line != "" {
			transcript.WriteString(line)
			transcript.WriteString(" ")
		}
		if !scanner.Scan() {
			break
		}
		line = strings.TrimSpace(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return vectorstore.Course{}, nil, fmt.Errorf("reading document: %w", err)
	}
	flush()

	return course, chunks, nil
}

// splitChunks splits a transcript into sentence-aligned chunks within
// the character budget, carrying overlap sentences across boundaries.
func (p *Processor) splitChunks(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sentences := sentenceRe.FindAllString(text, -1)
	if len(sentences) == 0 {
		sentences = []string{text}
	}
	for i := range sentences {
		sentences[i] = strings.TrimSpace(sentences[i])
	}

	var out []string
	i := 0
	for i < len(sentences) {
		size := 0
		end := i
		for end < len(sentences) {
			next := len(sentences[end])
			if size > 0 && size+1+next > p.chunkSize {
				break
			}
			size += next
			if end > i {
				size++
			}
			end++
		}
		if end == i {
			// Single sentence over budget; take it whole.
			end = i + 1
		}
		out = append(out, strings.Join(sentences[i:end], " "))
		if end == len(sentences) {
			break
		}
		next := backOverlap(sentences, end, p.chunkOverlap)
		if next <= i {
			next = i + 1
		}
		i = next
	}
	return out
}

// backOverlap steps back from end until roughly overlap characters of
// trailing sentences are re-included.
func backOverlap(sentences []string, end, overlap int) int {
	i := end
	size := 0
	for i > 0 && size < overlap {
		if size+len(sentences[i-1]) > overlap {
			break
		}
		size += len(sentences[i-1])
		i--
	}
	return i
}
