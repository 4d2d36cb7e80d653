package dbtest

import (
	"database/sql"
	"fmt"
	"testing"
	"time"
)

// Catalog は投入したコース・モジュール・レッスンのID。
type Catalog struct {
	CourseID  string
	ModuleID  string
	LessonIDs []string
}

// SeedCatalog は1コース・1モジュールとlessons件のレッスンを投入する。
// IDはprefixから決定的に生成する。
func SeedCatalog(t testing.TB, db *sql.DB, prefix string, lessons int) Catalog {
	t.Helper()

	now := time.Now().UTC()
	cat := Catalog{CourseID: prefix + "-course", ModuleID: prefix + "-module"}
	mustExec(t, db, `INSERT INTO courses (id, title, description, level, instructor_id, created_at)
		VALUES ($1, $2, '', 'beginner', 'instructor-1', $3)`, cat.CourseID, prefix+" course", now)
	mustExec(t, db, `INSERT INTO modules (id, course_id, title, order_index, created_at)
		VALUES ($1, $2, $3, 1, $4)`, cat.ModuleID, cat.CourseID, prefix+" module", now)

	for i := 1; i <= lessons; i++ {
		id := fmt.Sprintf("%s-lesson-%d", prefix, i)
		mustExec(t, db, `INSERT INTO lessons (id, module_id, title, order_index, duration_minutes, created_at)
			VALUES ($1, $2, $3, $4, 10, $5)`, id, cat.ModuleID, fmt.Sprintf("Lesson %d", i), i, now)
		cat.LessonIDs = append(cat.LessonIDs, id)
	}
	return cat
}

// Quiz は投入したクイズのID。Correct[i]はQuestions[i]の正解選択肢、Wrong[i]は不正解選択肢。
type Quiz struct {
	ID        string
	Questions []string
	Correct   []string
	Wrong     []string
}

// SeedQuiz はレッスンにquestions問のクイズを投入する。各設問は正解1つと不正解1つの選択肢を持つ。
func SeedQuiz(t testing.TB, db *sql.DB, lessonID, quizID string, questions int) Quiz {
	t.Helper()

	q := Quiz{ID: quizID}
	mustExec(t, db, `INSERT INTO quizzes (id, lesson_id, title, passing_score, max_attempts, created_at)
		VALUES ($1, $2, $3, 70, 3, $4)`, quizID, lessonID, quizID+" quiz", time.Now().UTC())

	for i := 1; i <= questions; i++ {
		qid := fmt.Sprintf("%s-q%d", quizID, i)
		correct := qid + "-correct"
		wrong := qid + "-wrong"
		mustExec(t, db, `INSERT INTO questions (id, quiz_id, prompt, type, order_index)
			VALUES ($1, $2, $3, 'single_choice', $4)`, qid, quizID, fmt.Sprintf("Question %d", i), i)
		mustExec(t, db, `INSERT INTO choices (id, question_id, text, order_index, is_correct)
			VALUES ($1, $2, 'right', 1, TRUE)`, correct, qid)
		mustExec(t, db, `INSERT INTO choices (id, question_id, text, order_index, is_correct)
			VALUES ($1, $2, 'wrong', 2, FALSE)`, wrong, qid)

		q.Questions = append(q.Questions, qid)
		q.Correct = append(q.Correct, correct)
		q.Wrong = append(q.Wrong, wrong)
	}
	return q
}

// SeedUser はユーザーを直接投入する。パスワードハッシュはダミー値。
func SeedUser(t testing.TB, db *sql.DB, id, role string, active bool) {
	t.Helper()

	mustExec(t, db, `INSERT INTO users (id, name, email, password_hash, role, active, created_at)
		VALUES ($1, $2, $3, 'x', $4, $5, $6)`, id, id, id+"@example.com", role, active, time.Now().UTC())
}

func mustExec(t testing.TB, db *sql.DB, query string, args ...any) {
	t.Helper()

	if _, err := db.ExecContext(t.Context(), query, args...); err != nil {
		t.Fatalf("テストデータの投入に失敗: %v", err)
	}
}
