// Package progress はユーザーごとのレッスン進捗を管理する。
//
// すべてのエンドポイントはトークンで認証された主体自身の進捗のみを扱う。
// (user_id, lesson_id) ごとに進捗は1行で、開始・完了は既存の行を更新する。
package progress
