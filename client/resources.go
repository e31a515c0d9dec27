package client

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/tersedak-care/apiserver/types"
)

// Progress is the learner's lesson and module completion.
type Progress struct {
	Lessons          []types.LessonProgress `json:"lessons"`
	CompletedModules []int                  `json:"completedModules"`
}

// LessonDone reports whether the lesson is in the progress set.
func (p Progress) LessonDone(moduleID, lessonID string) bool {
	for _, lesson := range p.Lessons {
		if lesson.ModuleID == moduleID && lesson.LessonID == lessonID {
			return true
		}
	}
	return false
}

// Assessment is the latest pre or post-test attempt.
type Assessment struct {
	Score       int             `json:"score"`
	Total       int             `json:"total"`
	Answers     json.RawMessage `json:"answers"`
	CompletedAt time.Time       `json:"completedAt"`
}

// Percentage is the rounded share of correct answers.
func (a Assessment) Percentage() int {
	if a.Total <= 0 {
		return 0
	}
	return int(math.Round(float64(a.Score) / float64(a.Total) * 100))
}

// Bookmark is the write form of a bookmark.
type Bookmark struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category,omitempty"`
	Path     string `json:"path"`
}

// QuizAttempt is a module quiz submission.
type QuizAttempt struct {
	ModuleID       string `json:"moduleId"`
	LessonID       string `json:"lessonId"`
	Score          int    `json:"score"`
	TotalQuestions int    `json:"totalQuestions"`
	Answers        any    `json:"answers,omitempty"`
}

// Progress returns the learner's progress, optionally for one module.
func (c *Client) Progress(ctx context.Context, moduleID string) (Progress, error) {
	path := "/progress"
	if moduleID != "" {
		path += "?moduleId=" + url.QueryEscape(moduleID)
	}
	var out Progress
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) CompleteLesson(ctx context.Context, moduleID, lessonID string) error {
	return c.do(ctx, http.MethodPost, "/progress", map[string]string{
		"type":     "lesson",
		"moduleId": moduleID,
		"lessonId": lessonID,
	}, nil)
}

func (c *Client) CompleteModule(ctx context.Context, moduleOrder int) error {
	return c.do(ctx, http.MethodPost, "/progress/complete", map[string]int{"moduleOrder": moduleOrder}, nil)
}

// Assessment returns the latest attempt for kind ("pre" or "post"), or nil.
func (c *Client) Assessment(ctx context.Context, kind types.AssessmentKind) (*Assessment, error) {
	var out struct {
		Result *Assessment `json:"result"`
	}
	if err := c.do(ctx, http.MethodGet, "/assessment?type="+url.QueryEscape(string(kind)), nil, &out); err != nil {
		return nil, err
	}
	return out.Result, nil
}

func (c *Client) RecordAssessment(ctx context.Context, kind types.AssessmentKind, score, total int, answers any) error {
	return c.do(ctx, http.MethodPost, "/assessment", map[string]any{
		"type":    kind,
		"score":   score,
		"total":   total,
		"answers": answers,
	}, nil)
}

func (c *Client) Bookmarks(ctx context.Context) ([]types.Bookmark, error) {
	var out struct {
		Bookmarks []types.Bookmark `json:"bookmarks"`
	}
	err := c.do(ctx, http.MethodGet, "/bookmarks", nil, &out)
	return out.Bookmarks, err
}

func (c *Client) AddBookmark(ctx context.Context, bookmark Bookmark) error {
	return c.do(ctx, http.MethodPost, "/bookmarks", bookmark, nil)
}

func (c *Client) RemoveBookmark(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/bookmarks", map[string]string{"id": itemID}, nil)
}

// QuizResults lists quiz attempts, newest first, optionally for one module.
func (c *Client) QuizResults(ctx context.Context, moduleID string) ([]types.QuizResult, error) {
	path := "/quiz"
	if moduleID != "" {
		path += "?moduleId=" + url.QueryEscape(moduleID)
	}
	var out struct {
		Results []types.QuizResult `json:"results"`
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Results, err
}

func (c *Client) RecordQuiz(ctx context.Context, attempt QuizAttempt) error {
	return c.do(ctx, http.MethodPost, "/quiz", attempt, nil)
}
