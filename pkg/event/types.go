package event

import (
	"encoding/json"
	"time"
)

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeUser はユーザーを表す。
	AggregateTypeUser AggregateType = "User"
	// AggregateTypeCourse はコースを表す。モジュールの作成もコースのイベントとして扱う。
	AggregateTypeCourse AggregateType = "Course"
	// AggregateTypeQuiz はクイズを表す。
	AggregateTypeQuiz AggregateType = "Quiz"
	// AggregateTypeLesson はレッスンを表す。
	AggregateTypeLesson AggregateType = "Lesson"
	// AggregateTypeReport は週次レポートを表す。
	AggregateTypeReport AggregateType = "Report"
)

// Type はイベントの種類を表す。メッセージブローカーのルーティングキーとしても使用する。
type Type string

const (
	// TypeUserRegistered はユーザーが登録されたことを表す。
	TypeUserRegistered Type = "UserRegistered"
	// TypeCourseCreated はコースが作成されたことを表す。
	TypeCourseCreated Type = "CourseCreated"
	// TypeModuleCreated はモジュールが作成されたことを表す。
	TypeModuleCreated Type = "ModuleCreated"
	// TypeQuizAttemptSubmitted はクイズの回答が採点されたことを表す。
	TypeQuizAttemptSubmitted Type = "QuizAttemptSubmitted"
	// TypeLessonStarted はレッスンが開始されたことを表す。
	TypeLessonStarted Type = "LessonStarted"
	// TypeLessonCompleted はレッスンが完了したことを表す。
	TypeLessonCompleted Type = "LessonCompleted"
	// TypeReportsGenerated は週次レポートが一括生成されたことを表す。
	TypeReportsGenerated Type = "ReportsGenerated"
)

// Event はサービス間で共有する不変のドメインイベント。
// 状態変更のコミット後に発行される。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// Version はAggregate内でのイベントの順序番号。
	Version int64 `json:"version"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// UserRegisteredData はUserRegisteredイベントのデータ。
type UserRegisteredData struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// CourseCreatedData はCourseCreatedイベントのデータ。
type CourseCreatedData struct {
	Title        string `json:"title"`
	Level        string `json:"level"`
	InstructorID string `json:"instructor_id"`
}

// ModuleCreatedData はModuleCreatedイベントのデータ。
type ModuleCreatedData struct {
	ModuleID   string `json:"module_id"`
	Title      string `json:"title"`
	OrderIndex int    `json:"order_index"`
}

// QuizAttemptSubmittedData はQuizAttemptSubmittedイベントのデータ。
type QuizAttemptSubmittedData struct {
	AttemptID      string  `json:"attempt_id"`
	UserID         string  `json:"user_id"`
	Score          float64 `json:"score"`
	CorrectAnswers int     `json:"correct_answers"`
	TotalQuestions int     `json:"total_questions"`
}

// LessonProgressData はLessonStarted/LessonCompletedイベントのデータ。
type LessonProgressData struct {
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// ReportsGeneratedData はReportsGeneratedイベントのデータ。
type ReportsGeneratedData struct {
	ReportDate string `json:"report_date"`
	Users      int    `json:"users"`
}
