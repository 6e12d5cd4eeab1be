package common

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
)

// ParallelExecutor は並列処理を管理する構造体
type ParallelExecutor struct {
	maxWorkers int
	wg         sync.WaitGroup
	semaphore  chan struct{}

	mu     sync.Mutex
	panics []error
}

// NewParallelExecutor は新しいParallelExecutorを作成
func NewParallelExecutor(maxWorkers int) *ParallelExecutor {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &ParallelExecutor{
		maxWorkers: maxWorkers,
		semaphore:  make(chan struct{}, maxWorkers),
	}
}

// Execute はタスクを並列で実行
// コンテキストが終了している場合、まだ開始していないタスクは実行しない
func (p *ParallelExecutor) Execute(ctx context.Context, task func(ctx context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		select {
		case p.semaphore <- struct{}{}: // セマフォ取得（同時実行数制限）
		case <-ctx.Done():
			return
		}
		defer func() { <-p.semaphore }() // セマフォ解放
		defer p.recoverPanic()
		task(ctx)
	}()
}

func (p *ParallelExecutor) recoverPanic() {
	if r := recover(); r != nil {
		p.mu.Lock()
		p.panics = append(p.panics, fmt.Errorf("タスクがパニックしました: %v\n%s", r, debug.Stack()))
		p.mu.Unlock()
	}
}

// Wait はすべてのタスクの完了を待つ
// タスク内でパニックが起きた場合はそれらをまとめたエラーを返す
func (p *ParallelExecutor) Wait() error {
	p.wg.Wait()
	p.mu.Lock()
	defer p.mu.Unlock()
	return errors.Join(p.panics...)
}

// Map は items を最大 maxWorkers 並列で処理し、入力と同じ順序で結果を返す
// fn がパニックした要素には onPanic の戻り値が入る
func Map[T, R any](ctx context.Context, maxWorkers int, items []T, fn func(ctx context.Context, item T) R, onPanic func(item T, recovered any) R) []R {
	results := make([]R, len(items))
	executor := NewParallelExecutor(maxWorkers)
	for i, item := range items {
		executor.Execute(ctx, func(ctx context.Context) {
			defer func() {
				if r := recover(); r != nil {
					if onPanic == nil {
						panic(r)
					}
					results[i] = onPanic(item, r)
				}
			}()
			results[i] = fn(ctx, item)
		})
	}
	_ = executor.Wait()
	return results
}
