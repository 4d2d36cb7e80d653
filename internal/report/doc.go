// Package report は学習状況の週次レポートを提供する。
//
// 集計対象は直近7日間に完了したレッスン数、受験したクイズ数、
// クイズの平均得点。レポートは (user_id, report_date) ごとに1件保存され、
// 同じ日に再生成すると上書きされる。定期実行のスケジューラは持たない。
package report
