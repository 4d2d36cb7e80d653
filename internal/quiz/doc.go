// Package quiz はクイズの出題と採点を提供する。
//
// 出題（GET /quizzes/lesson/:lesson_id）は認証不要で、選択肢の正誤は返さない。
// 回答の提出と履歴の参照はトークンで認証された主体のみが行える。
//
// Engine は提出された回答を保存済みの正解と照合し、受験記録と回答ごとの
// 正誤を1つのトランザクションで書き込む。正誤は採点時点の値を保存し、
// 後から選択肢の正誤が編集されても再計算しない。
// max_attempts は出題時に返すだけで、受験回数の制限には使用しない。
package quiz
