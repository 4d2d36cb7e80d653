package report

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Period は集計期間の長さ。
const Period = 7 * 24 * time.Hour

// HistoryLimit は履歴として返すレポートの最大件数。
const HistoryLimit = 12

// dateLayout はreport_dateの形式。
const dateLayout = "2006-01-02"

// Summary は期間内の学習状況の集計。
type Summary struct {
	LessonsCompleted int     `json:"lessons_completed"`
	QuizzesTaken     int     `json:"quizzes_taken"`
	AverageQuizScore float64 `json:"average_quiz_score"`
}

// Report は保存済みの週次レポート。
type Report struct {
	ID         string    `json:"id"`
	ReportDate string    `json:"report_date"`
	SentAt     time.Time `json:"sent_at"`
	Summary
}

// queryer は*sql.DBと*sql.Txの共通部分。
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store はレポートの集計と保存を行う。
type Store struct {
	db    *sql.DB
	newID func() string
}

// NewStore は新しいStoreを生成する。
func NewStore(db *sql.DB, newID func() string) *Store {
	return &Store{db: db, newID: newID}
}

// Summarize はsince以降のユーザーの学習状況を集計する。
// 採点済みのクイズが無い場合の平均得点は0。
func (s *Store) Summarize(ctx context.Context, userID string, since time.Time) (Summary, error) {
	return summarize(ctx, s.db, userID, since)
}

func summarize(ctx context.Context, q queryer, userID string, since time.Time) (Summary, error) {
	var sum Summary
	if err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM progress
		WHERE user_id = $1 AND status = 'completed' AND completed_at >= $2`,
		userID, since,
	).Scan(&sum.LessonsCompleted); err != nil {
		return Summary{}, fmt.Errorf("完了レッスン数の集計に失敗: %w", err)
	}

	var avg sql.NullFloat64
	if err := q.QueryRowContext(ctx, `
		SELECT COUNT(*), AVG(score) FROM quiz_attempts
		WHERE user_id = $1 AND finished_at >= $2`,
		userID, since,
	).Scan(&sum.QuizzesTaken, &avg); err != nil {
		return Summary{}, fmt.Errorf("クイズ結果の集計に失敗: %w", err)
	}
	if avg.Valid {
		sum.AverageQuizScore = avg.Float64
	}
	return sum, nil
}

// Generate はアクティブな全ユーザーについて当日のレポートを作成し、対象ユーザー数を返す。
// 同じ日のレポートが既にあれば集計値と送信日時を上書きする。
func (s *Store) Generate(ctx context.Context, at time.Time) (int, error) {
	at = at.UTC()
	since := at.Add(-Period)
	date := at.Format(dateLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	users, err := activeUsers(ctx, tx)
	if err != nil {
		return 0, err
	}

	for _, userID := range users {
		sum, err := summarize(ctx, tx, userID, since)
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reports (id, user_id, report_date, lessons_completed, quizzes_taken, average_quiz_score, sent_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (user_id, report_date) DO UPDATE SET
				lessons_completed = excluded.lessons_completed,
				quizzes_taken = excluded.quizzes_taken,
				average_quiz_score = excluded.average_quiz_score,
				sent_at = excluded.sent_at`,
			s.newID(), userID, date, sum.LessonsCompleted, sum.QuizzesTaken, sum.AverageQuizScore, at,
		); err != nil {
			return 0, fmt.Errorf("レポートの保存に失敗: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("コミットに失敗: %w", err)
	}
	return len(users), nil
}

func activeUsers(ctx context.Context, tx *sql.Tx) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM users WHERE active = TRUE ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ユーザー一覧の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ユーザーの読み取りに失敗: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// History はユーザーのレポートを新しい順に最大HistoryLimit件返す。
func (s *Store) History(ctx context.Context, userID string) ([]Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, report_date, lessons_completed, quizzes_taken, average_quiz_score, sent_at
		FROM reports WHERE user_id = $1
		ORDER BY report_date DESC LIMIT $2`, userID, HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("レポート履歴の取得に失敗: %w", err)
	}
	defer func() { _ = rows.Close() }()

	reports := []Report{}
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.ReportDate, &r.LessonsCompleted, &r.QuizzesTaken, &r.AverageQuizScore, &r.SentAt); err != nil {
			return nil, fmt.Errorf("レポートの読み取りに失敗: %w", err)
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
