package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/pribylovaa/go-site-generator/internal/pkg/log"
	"github.com/spaolacci/murmur3"
)

const defaultShards = 16

type record struct {
	count   int
	resetAt time.Time
}

type shard struct {
	mu      sync.Mutex
	records map[string]*record
}

// Memory — ограничитель в памяти процесса. Записи разнесены по шардам
// (murmur3 от идентичности), каждый шард под своим мьютексом.
type Memory struct {
	rule   Rule
	now    func() time.Time
	shards []*shard
}

// Option настраивает Memory.
type Option func(*Memory)

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// WithShards задаёт число шардов; n <= 0 игнорируется.
func WithShards(n int) Option {
	return func(m *Memory) {
		if n > 0 {
			m.shards = newShards(n)
		}
	}
}

// NewMemory создаёт ограничитель с правилом rule (непригодные значения
// заменяются на 10 попыток / 60s).
func NewMemory(rule Rule, opts ...Option) *Memory {
	m := &Memory{
		rule:   rule.Normalize(),
		now:    time.Now,
		shards: newShards(defaultShards),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

func newShards(n int) []*shard {
	out := make([]*shard, n)
	for i := range out {
		out[i] = &shard{records: make(map[string]*record)}
	}

	return out
}

func (m *Memory) shardFor(identity string) *shard {
	h := murmur3.Sum32([]byte(identity))
	return m.shards[h%uint32(len(m.shards))]
}

// Rule возвращает действующее правило.
func (m *Memory) Rule() Rule { return m.rule }

// Admit допускает попытку, если в текущем окне их меньше лимита.
func (m *Memory) Admit(_ context.Context, identity string) bool {
	now := m.now()
	sh := m.shardFor(identity)

	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.records[identity]
	if !ok || !now.Before(rec.resetAt) {
		sh.records[identity] = &record{count: 1, resetAt: now.Add(m.rule.Window)}
		return true
	}

	if rec.count < m.rule.Limit {
		rec.count++
		return true
	}

	return false
}

// Sweep удаляет записи с истёкшим окном и возвращает их число.
func (m *Memory) Sweep() int {
	now := m.now()
	removed := 0

	for _, sh := range m.shards {
		sh.mu.Lock()
		for id, rec := range sh.records {
			if !now.Before(rec.resetAt) {
				delete(sh.records, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}

	return removed
}

// Len — текущее число записей.
func (m *Memory) Len() int {
	n := 0

	for _, sh := range m.shards {
		sh.mu.Lock()
		n += len(sh.records)
		sh.mu.Unlock()
	}

	return n
}

// Run периодически вызывает Sweep до отмены ctx.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = m.rule.Window
	}

	lg := log.From(ctx).With("op", "ratelimit/memory/Run")

	t := time.NewTicker(interval)
	defer t.Stop()

	lg.InfoContext(ctx, "limiter_sweep_start", "interval", interval.String())

	for {
		select {
		case <-ctx.Done():
			lg.InfoContext(ctx, "limiter_sweep_stop")
			return
		case <-t.C:
			if removed := m.Sweep(); removed > 0 {
				lg.DebugContext(ctx, "limiter_sweep", "removed", removed)
			}
		}
	}
}
