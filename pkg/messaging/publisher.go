// Package messaging はドメインイベントをメッセージブローカーへ発行する。
//
// 発行は状態変更のコミット後にベストエフォートで行い、
// 失敗はログに記録するだけで呼び出し元のリクエストには影響させない。
package messaging

import (
	"context"
	"sync"

	"github.com/nao1215/learnhub/pkg/event"
	"github.com/rs/zerolog"
)

// Publisher はドメインイベントを発行する。
type Publisher interface {
	Publish(ctx context.Context, e *event.Event) error
	Close() error
}

// Emit はイベントを生成して発行する。失敗はcontextのロガーに記録する。
func Emit(ctx context.Context, p Publisher, aggregateID string, aggregateType event.AggregateType, eventType event.Type, data any) {
	log := zerolog.Ctx(ctx)

	e, err := event.New(aggregateID, aggregateType, eventType, 1, data)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		log.Warn().Err(err).
			Str("event_id", e.ID).
			Str("event_type", string(eventType)).
			Msg("failed to publish event")
	}
}

// LogPublisher はイベントをログに出力するだけのPublisher。
// ブローカーが設定されていない環境で使用する。
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher は新しいLogPublisherを生成する。
func NewLogPublisher(log zerolog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish はイベントをdebugレベルでログに出力する。
func (p *LogPublisher) Publish(_ context.Context, e *event.Event) error {
	p.log.Debug().
		Str("event_id", e.ID).
		Str("routing_key", e.RoutingKey()).
		Str("aggregate_id", e.AggregateID).
		RawJSON("data", e.Data).
		Msg("event")
	return nil
}

// Close は何もしない。
func (p *LogPublisher) Close() error { return nil }

// Recorder は発行されたイベントをメモリに保持するPublisher。テストで使用する。
type Recorder struct {
	mu     sync.Mutex
	events []*event.Event
	err    error
}

// NewRecorder は新しいRecorderを生成する。errを指定するとPublishは常にそのエラーを返す。
func NewRecorder(err error) *Recorder {
	return &Recorder{err: err}
}

// Publish はイベントを記録する。
func (r *Recorder) Publish(_ context.Context, e *event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, e)
	return nil
}

// Close は何もしない。
func (r *Recorder) Close() error { return nil }

// Events は記録したイベントのコピーを返す。
func (r *Recorder) Events() []*event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*event.Event(nil), r.events...)
}

// Types は記録したイベントの種類を発行順に返す。
func (r *Recorder) Types() []event.Type {
	events := r.Events()
	types := make([]event.Type, 0, len(events))
	for _, e := range events {
		types = append(types, e.EventType)
	}
	return types
}
