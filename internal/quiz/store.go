package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrQuizNotFound はクイズが存在しないことを表す。
var ErrQuizNotFound = errors.New("quiz not found")

// Quiz は出題用のクイズ。選択肢の正誤は含まない。
type Quiz struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	PassingScore int        `json:"passing_score"`
	MaxAttempts  int        `json:"max_attempts"`
	Questions    []Question `json:"questions"`
}

// Question はクイズの設問。
type Question struct {
	ID         string   `json:"id"`
	Prompt     string   `json:"prompt"`
	Type       string   `json:"type"`
	OrderIndex int      `json:"order_index"`
	Choices    []Choice `json:"choices"`
}

// Choice は設問の選択肢。
type Choice struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	OrderIndex int    `json:"order_index"`
}

// Attempt は受験履歴の1件。
type Attempt struct {
	ID             string    `json:"id"`
	Score          *float64  `json:"score"`
	CorrectAnswers int       `json:"correct_answers"`
	TotalQuestions int       `json:"total_questions"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Store はクイズ定義と受験履歴の読み取りを提供する。
type Store struct {
	db *sql.DB
}

// NewStore は新しいStoreを生成する。
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// FindByLesson はレッスンのクイズを設問・選択肢付きで返す。
// 設問と選択肢はorder_index順に並ぶ。
func (s *Store) FindByLesson(ctx context.Context, lessonID string) (Quiz, error) {
	var q Quiz
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, passing_score, max_attempts
		FROM quizzes WHERE lesson_id = $1
		ORDER BY created_at, id LIMIT 1`, lessonID).
		Scan(&q.ID, &q.Title, &q.PassingScore, &q.MaxAttempts)
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, ErrQuizNotFound
	}
	if err != nil {
		return Quiz{}, fmt.Errorf("クイズの取得に失敗: %w", err)
	}

	questions, err := s.questions(ctx, q.ID)
	if err != nil {
		return Quiz{}, err
	}
	q.Questions = questions
	return q, nil
}

// questions は設問と選択肢を1回のJOINで読み込む。
func (s *Store) questions(ctx context.Context, quizID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT q.id, q.prompt, q.type, q.order_index, c.id, c.text, c.order_index
		FROM questions q
		LEFT JOIN choices c ON c.question_id = q.id
		WHERE q.quiz_id = $1
		ORDER BY q.order_index, q.id, c.order_index, c.id`, quizID)
	if err != nil {
		return nil, fmt.Errorf("設問の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	questions := []Question{}
	for rows.Next() {
		var (
			q           Question
			choiceID    sql.NullString
			choiceText  sql.NullString
			choiceOrder sql.NullInt64
		)
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Type, &q.OrderIndex, &choiceID, &choiceText, &choiceOrder); err != nil {
			return nil, fmt.Errorf("設問の読み取りに失敗: %w", err)
		}
		if n := len(questions); n == 0 || questions[n-1].ID != q.ID {
			q.Choices = []Choice{}
			questions = append(questions, q)
		}
		if choiceID.Valid {
			last := &questions[len(questions)-1]
			last.Choices = append(last.Choices, Choice{
				ID:         choiceID.String,
				Text:       choiceText.String,
				OrderIndex: int(choiceOrder.Int64),
			})
		}
	}
	return questions, rows.Err()
}

// ListAttempts はユーザーのクイズ受験履歴を新しい順に返す。
func (s *Store) ListAttempts(ctx context.Context, quizID, userID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, score, correct_answers, total_questions, started_at, finished_at
		FROM quiz_attempts
		WHERE quiz_id = $1 AND user_id = $2
		ORDER BY finished_at DESC, id`, quizID, userID)
	if err != nil {
		return nil, fmt.Errorf("受験履歴の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	attempts := []Attempt{}
	for rows.Next() {
		var (
			a     Attempt
			score sql.NullFloat64
		)
		if err := rows.Scan(&a.ID, &score, &a.CorrectAnswers, &a.TotalQuestions, &a.StartedAt, &a.FinishedAt); err != nil {
			return nil, fmt.Errorf("受験履歴の読み取りに失敗: %w", err)
		}
		if score.Valid {
			a.Score = &score.Float64
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
