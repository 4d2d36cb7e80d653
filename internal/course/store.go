package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrCourseNotFound はコースが存在しないことを表す。
var ErrCourseNotFound = errors.New("course not found")

// Course はコースのレコード。
type Course struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Level        string    `json:"level"`
	InstructorID string    `json:"instructor_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// Module はコース内のモジュール。
type Module struct {
	ID         string `json:"id"`
	CourseID   string `json:"-"`
	Title      string `json:"title"`
	OrderIndex int    `json:"order_index"`
}

// Lesson はモジュール内のレッスン。
type Lesson struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	ContentURL      string `json:"content_url"`
	Description     string `json:"description"`
	OrderIndex      int    `json:"order_index"`
	DurationMinutes int    `json:"duration_minutes"`
}

// Store はカタログのテーブルへのアクセスを提供する。
type Store struct {
	db *sql.DB
}

// NewStore は新しいStoreを生成する。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// ListCourses は全コースを作成日時順に返す。
func (s *Store) ListCourses(ctx context.Context) ([]Course, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, description, level, instructor_id, created_at
		FROM courses ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("コース一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	courses := []Course{}
	for rows.Next() {
		var c Course
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.Level, &c.InstructorID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("コースの読み取りに失敗: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// GetCourse はIDでコースを取得する。存在しない場合はErrCourseNotFoundを返す。
func (s *Store) GetCourse(ctx context.Context, id string) (Course, error) {
	var c Course
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, description, level, instructor_id, created_at
		FROM courses WHERE id = $1`, id).
		Scan(&c.ID, &c.Title, &c.Description, &c.Level, &c.InstructorID, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Course{}, ErrCourseNotFound
	}
	if err != nil {
		return Course{}, fmt.Errorf("コースの取得に失敗: %w", err)
	}
	return c, nil
}

// CreateCourse はコースを保存する。
func (s *Store) CreateCourse(ctx context.Context, c Course) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO courses (id, title, description, level, instructor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.Title, c.Description, c.Level, c.InstructorID, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("コースの保存に失敗: %w", err)
	}
	return nil
}

// ListModules はコースのモジュールをorder_index順に返す。
func (s *Store) ListModules(ctx context.Context, courseID string) ([]Module, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, course_id, title, order_index
		FROM modules WHERE course_id = $1 ORDER BY order_index, created_at`, courseID)
	if err != nil {
		return nil, fmt.Errorf("モジュール一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	modules := []Module{}
	for rows.Next() {
		var m Module
		if err := rows.Scan(&m.ID, &m.CourseID, &m.Title, &m.OrderIndex); err != nil {
			return nil, fmt.Errorf("モジュールの読み取りに失敗: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// CreateModule はモジュールを保存する。コースが存在しない場合はErrCourseNotFoundを返す。
func (s *Store) CreateModule(ctx context.Context, m Module, at time.Time) error {
	if _, err := s.GetCourse(ctx, m.CourseID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO modules (id, course_id, title, order_index, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.CourseID, m.Title, m.OrderIndex, at,
	)
	if err != nil {
		return fmt.Errorf("モジュールの保存に失敗: %w", err)
	}
	return nil
}

// ListLessons はモジュールのレッスンをorder_index順に返す。
func (s *Store) ListLessons(ctx context.Context, moduleID string) ([]Lesson, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content_url, description, order_index, duration_minutes
		FROM lessons WHERE module_id = $1 ORDER BY order_index, created_at`, moduleID)
	if err != nil {
		return nil, fmt.Errorf("レッスン一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	lessons := []Lesson{}
	for rows.Next() {
		var l Lesson
		if err := rows.Scan(&l.ID, &l.Title, &l.ContentURL, &l.Description, &l.OrderIndex, &l.DurationMinutes); err != nil {
			return nil, fmt.Errorf("レッスンの読み取りに失敗: %w", err)
		}
		lessons = append(lessons, l)
	}
	return lessons, rows.Err()
}
