// Package queue keeps a durable record of daily reports that could not be
// delivered so operators can follow up after the leads are purged.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrTimeout = errors.New("queue timeout")

const defaultQueueName = "digest:lost_reports"

// LostReport describes one tenant's undelivered daily report.
type LostReport struct {
	RunID    string    `json:"run_id"`
	Tenant   string    `json:"tenant"`
	TenantID int64     `json:"tenant_id"`
	Day      string    `json:"day"`
	Leads    int       `json:"leads"`
	Retained bool      `json:"retained"`
	Error    string    `json:"error"`
	At       time.Time `json:"at"`
}

type RedisQueue struct {
	client    *redis.Client
	queueName string
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{
		client:    client,
		queueName: defaultQueueName,
	}
}

func (q *RedisQueue) Push(ctx context.Context, report *LostReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	// Oldest first
	err = q.client.ZAdd(ctx, q.queueName, redis.Z{
		Score:  float64(report.At.Unix()),
		Member: data,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to push report: %w", err)
	}

	return nil
}

// Pop removes and returns the oldest report, waiting up to timeout.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*LostReport, error) {
	result, err := q.client.BZPopMin(ctx, timeout, q.queueName).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("failed to pop report: %w", err)
	}

	member, ok := result.Member.(string)
	if !ok {
		return nil, errors.New("invalid result from queue")
	}

	var report LostReport
	if err := json.Unmarshal([]byte(member), &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}

	return &report, nil
}

// List returns up to limit reports, oldest first, without removing them.
func (q *RedisQueue) List(ctx context.Context, limit int64) ([]*LostReport, error) {
	members, err := q.client.ZRange(ctx, q.queueName, 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	reports := make([]*LostReport, 0, len(members))
	for _, m := range members {
		var report LostReport
		if err := json.Unmarshal([]byte(m), &report); err != nil {
			return nil, fmt.Errorf("failed to unmarshal report: %w", err)
		}
		reports = append(reports, &report)
	}
	return reports, nil
}

func (q *RedisQueue) Length(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.queueName).Result()
}
