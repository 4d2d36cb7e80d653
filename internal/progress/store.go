package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

// 進捗ステータス。
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// ErrLessonNotFound はレッスンが存在しないことを表す。
var ErrLessonNotFound = errors.New("lesson not found")

// Entry はレッスン・モジュール・コース情報を結合した進捗レコード。
type Entry struct {
	ID          string     `json:"id"`
	LessonID    string     `json:"lesson_id"`
	Status      string     `json:"status"`
	LessonTitle string     `json:"lesson_title"`
	ModuleID    string     `json:"module_id"`
	CourseID    string     `json:"course_id"`
	CourseTitle string     `json:"course_title"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

// LessonStatus はコース内の1レッスンの進捗。
type LessonStatus struct {
	LessonID    string `json:"lesson_id"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	ModuleOrder int    `json:"module_order"`
	LessonOrder int    `json:"lesson_order"`
}

// CourseProgress はコース単位の進捗集計。
type CourseProgress struct {
	CourseID          string         `json:"course_id"`
	TotalLessons      int            `json:"total_lessons"`
	CompletedLessons  int            `json:"completed_lessons"`
	CompletionPercent float64        `json:"completion_percent"`
	Lessons           []LessonStatus `json:"lessons"`
}

// Store はprogressテーブルへのアクセスを提供する。
type Store struct {
	db *sql.DB
}

// NewStore は新しいStoreを生成する。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// List はユーザーの進捗をコース・モジュール・レッスン順に返す。
func (s *Store) List(ctx context.Context, userID string) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.lesson_id, p.status, l.title, m.id, c.id, c.title, p.started_at, p.completed_at
		FROM progress p
		JOIN lessons l ON p.lesson_id = l.id
		JOIN modules m ON l.module_id = m.id
		JOIN courses c ON m.course_id = c.id
		WHERE p.user_id = $1
		ORDER BY c.created_at, c.id, m.order_index, l.order_index`, userID)
	if err != nil {
		return nil, fmt.Errorf("進捗の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := []Entry{}
	for rows.Next() {
		var (
			e                  Entry
			started, completed sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.LessonID, &e.Status, &e.LessonTitle, &e.ModuleID, &e.CourseID, &e.CourseTitle, &started, &completed); err != nil {
			return nil, fmt.Errorf("進捗の読み取りに失敗: %w", err)
		}
		e.StartedAt = timePtr(started)
		e.CompletedAt = timePtr(completed)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Course はコース内の全レッスンについてユーザーの進捗を集計する。
// 進捗の無いレッスンはnot_startedになる。
func (s *Store) Course(ctx context.Context, userID, courseID string) (CourseProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.title, COALESCE(p.status, 'not_started'), m.order_index, l.order_index
		FROM lessons l
		JOIN modules m ON l.module_id = m.id
		LEFT JOIN progress p ON l.id = p.lesson_id AND p.user_id = $1
		WHERE m.course_id = $2
		ORDER BY m.order_index, l.order_index, l.id`, userID, courseID)
	if err != nil {
		return CourseProgress{}, fmt.Errorf("コース進捗の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cp := CourseProgress{CourseID: courseID, Lessons: []LessonStatus{}}
	for rows.Next() {
		var l LessonStatus
		if err := rows.Scan(&l.LessonID, &l.Title, &l.Status, &l.ModuleOrder, &l.LessonOrder); err != nil {
			return CourseProgress{}, fmt.Errorf("コース進捗の読み取りに失敗: %w", err)
		}
		cp.TotalLessons++
		if l.Status == StatusCompleted {
			cp.CompletedLessons++
		}
		cp.Lessons = append(cp.Lessons, l)
	}
	if err := rows.Err(); err != nil {
		return CourseProgress{}, err
	}

	cp.CompletionPercent = CompletionPercent(cp.CompletedLessons, cp.TotalLessons)
	return cp, nil
}

// CompletionPercent は完了率（%）を小数点以下2桁に丸めて返す。レッスンが無ければ0。
func CompletionPercent(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*100*100) / 100
}

// Start はレッスンを開始済みにする。既に行があれば状態と開始日時を更新する。
func (s *Store) Start(ctx context.Context, id, userID, lessonID string, at time.Time) error {
	if err := s.ensureLesson(ctx, lessonID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (id, user_id, lesson_id, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, lesson_id)
		DO UPDATE SET status = excluded.status, started_at = excluded.started_at`,
		id, userID, lessonID, StatusInProgress, at,
	)
	if err != nil {
		return fmt.Errorf("進捗の開始に失敗: %w", err)
	}
	return nil
}

// Complete はレッスンを完了済みにする。未開始の場合は開始日時も同時に記録する。
func (s *Store) Complete(ctx context.Context, id, userID, lessonID string, at time.Time) error {
	if err := s.ensureLesson(ctx, lessonID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (id, user_id, lesson_id, status, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, lesson_id)
		DO UPDATE SET status = excluded.status, completed_at = excluded.completed_at`,
		id, userID, lessonID, StatusCompleted, at,
	)
	if err != nil {
		return fmt.Errorf("進捗の完了に失敗: %w", err)
	}
	return nil
}

func (s *Store) ensureLesson(ctx context.Context, lessonID string) error {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM lessons WHERE id = $1`, lessonID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrLessonNotFound
	}
	if err != nil {
		return fmt.Errorf("レッスンの確認に失敗: %w", err)
	}
	return nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
