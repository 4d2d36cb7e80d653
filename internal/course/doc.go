// Package course はコース・モジュール・レッスンのカタログを提供する。
//
// 一覧・詳細の参照は認証不要で、コースとモジュールの作成は
// admin または instructor ロールのトークンを持つ主体のみが行える。
//
// エンドポイント:
//   - GET  /courses
//   - GET  /courses/:id
//   - POST /courses
//   - GET  /courses/:id/modules
//   - POST /modules
//   - GET  /modules/:id/lessons
package course
