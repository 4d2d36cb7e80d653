package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nao1215/learnhub/pkg/token"
)

// Answer は提出された1件の回答。
type Answer struct {
	QuestionID string
	ChoiceID   string
}

// Result は採点結果。
type Result struct {
	AttemptID      string  `json:"attempt_id"`
	Score          float64 `json:"score"`
	CorrectAnswers int     `json:"correct_answers"`
	TotalQuestions int     `json:"total_questions"`
}

// Engine は回答を採点して受験記録を保存する。
type Engine struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// NewEngine は新しいEngineを生成する。
func NewEngine(db *sql.DB) *Engine {
	return &Engine{
		db:    db,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Score は正答数と回答数から得点（0〜100）を計算する。回答数が0なら0。
func Score(correct, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(correct) / float64(total) * 100
}

// Submit はanswersを採点し、受験記録と回答ごとの正誤を保存する。
//
// 選択肢が存在しない、設問に属さない、または設問がこのクイズに属さない回答は
// エラーにせず不正解として記録する。total_questionsは提出された回答数。
// いずれかの書き込みに失敗した場合は何も保存しない。
func (e *Engine) Submit(ctx context.Context, quizID string, p token.Principal, answers []Answer) (Result, error) {
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return Result{}, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM quizzes WHERE id = $1`, quizID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return Result{}, ErrQuizNotFound
	}
	if err != nil {
		return Result{}, fmt.Errorf("クイズの確認に失敗: %w", err)
	}

	// 開始と終了はどちらも提出時刻とする
	now := e.now().UTC()
	res := Result{AttemptID: e.newID()}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO quiz_attempts (id, quiz_id, user_id, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5)`,
		res.AttemptID, quizID, p.UserID, now, now,
	); err != nil {
		return Result{}, fmt.Errorf("受験記録の作成に失敗: %w", err)
	}

	for _, a := range answers {
		correct, err := gradeAnswer(ctx, tx, quizID, a)
		if err != nil {
			return Result{}, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attempt_answers (id, attempt_id, question_id, choice_id, is_correct)
			VALUES ($1, $2, $3, $4, $5)`,
			e.newID(), res.AttemptID, a.QuestionID, a.ChoiceID, correct,
		); err != nil {
			return Result{}, fmt.Errorf("回答の保存に失敗: %w", err)
		}
		if correct {
			res.CorrectAnswers++
		}
		res.TotalQuestions++
	}

	res.Score = Score(res.CorrectAnswers, res.TotalQuestions)
	if _, err := tx.ExecContext(ctx, `
		UPDATE quiz_attempts SET score = $1, total_questions = $2, correct_answers = $3
		WHERE id = $4`,
		res.Score, res.TotalQuestions, res.CorrectAnswers, res.AttemptID,
	); err != nil {
		return Result{}, fmt.Errorf("得点の保存に失敗: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Result{}, fmt.Errorf("コミットに失敗: %w", err)
	}
	return res, nil
}

// gradeAnswer は回答の選択肢が設問の正解かどうかを返す。
func gradeAnswer(ctx context.Context, tx *sql.Tx, quizID string, a Answer) (bool, error) {
	var correct bool
	err := tx.QueryRowContext(ctx, `
		SELECT c.is_correct
		FROM choices c
		JOIN questions q ON q.id = c.question_id
		WHERE c.id = $1 AND c.question_id = $2 AND q.quiz_id = $3`,
		a.ChoiceID, a.QuestionID, quizID,
	).Scan(&correct)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("正誤の照合に失敗: %w", err)
	}
	return correct, nil
}
