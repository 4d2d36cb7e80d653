// Package event はサービス間で共有するドメインイベントの型と生成処理を提供する。
package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// New は現在時刻で新しいイベントを生成する。
// dataにはイベント固有のデータ構造体を渡す。JSON形式にシリアライズされる。
func New(aggregateID string, aggregateType AggregateType, eventType Type, version int64, data any) (*Event, error) {
	return NewAt(time.Now(), aggregateID, aggregateType, eventType, version, data)
}

// NewAt は作成日時を指定してイベントを生成する。作成日時はUTCに変換される。
func NewAt(at time.Time, aggregateID string, aggregateType AggregateType, eventType Type, version int64, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("イベントデータのシリアライズに失敗: %w", err)
	}

	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Version:       version,
		CreatedAt:     at.UTC(),
	}, nil
}

// RoutingKey はトピックExchangeで使うルーティングキーを返す。
// 形式は "<aggregate>.<event>"（例: "quiz.QuizAttemptSubmitted"）。
func (e *Event) RoutingKey() string {
	return strings.ToLower(string(e.AggregateType)) + "." + string(e.EventType)
}

// DecodeData はイベントのDataフィールドを指定された型にデシリアライズする。
func DecodeData[T any](e *Event) (*T, error) {
	var data T
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("イベントデータのデシリアライズに失敗: %w", err)
	}
	return &data, nil
}
