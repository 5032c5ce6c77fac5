package detector

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"recipe-recommender/internal/infrastructure/metrics"
	"recipe-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// job 佇列中的一筆偵測請求
type job struct {
	ctx    context.Context
	image  []byte
	result chan jobResult
}

// jobResult 處理結果
type jobResult struct {
	detection *Detection
	err       error
}

// Status 佇列狀態
type Status struct {
	QueueLength    int    `json:"queue_length"`
	ProcessedCount int    `json:"processed_count"`
	MaxQueueSize   int    `json:"max_queue_size"`
	Workers        int    `json:"workers"`
	Provider       string `json:"provider"`
}

// Queue 以固定數量的 worker 呼叫底層偵測器，限制同時對外請求的數量
type Queue struct {
	next      Detector
	jobs      chan *job
	done      chan struct{}
	workers   int
	maxSize   int
	processed int64
	wg        sync.WaitGroup
	once      sync.Once
}

// NewQueue 創建偵測佇列並啟動 worker
func NewQueue(next Detector, workers, maxSize int) *Queue {
	if workers <= 0 {
		workers = 1
	}
	if maxSize <= 0 {
		maxSize = 1
	}
	q := &Queue{
		next:    next,
		jobs:    make(chan *job, maxSize),
		done:    make(chan struct{}),
		workers: workers,
		maxSize: maxSize,
	}
	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	return q
}

// Name 底層提供者名稱
func (q *Queue) Name() string {
	return q.next.Name()
}

// Detect 將請求放入佇列並等待結果，佇列已滿時立即回傳 ErrQueueFull
func (q *Queue) Detect(ctx context.Context, image []byte) (*Detection, error) {
	select {
	case <-q.done:
		return nil, ErrQueueClosed
	default:
	}

	j := &job{ctx: ctx, image: image, result: make(chan jobResult, 1)}
	select {
	case q.jobs <- j:
		metrics.DetectorQueueLength.Set(float64(len(q.jobs)))
		common.LogDebug("偵測請求已排入佇列",
			zap.Int("queue_length", len(q.jobs)),
			zap.Int("max_queue_size", q.maxSize),
		)
	default:
		return nil, ErrQueueFull
	}

	select {
	case res := <-j.result:
		return res.detection, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		return nil, ErrQueueClosed
	}
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			return
		case j := <-q.jobs:
			metrics.DetectorQueueLength.Set(float64(len(q.jobs)))
			q.process(id, j)
		}
	}
}

func (q *Queue) process(id int, j *job) {
	// 呼叫端已放棄的請求不再送出
	if err := j.ctx.Err(); err != nil {
		j.result <- jobResult{err: err}
		return
	}

	start := time.Now()
	det, err := q.next.Detect(j.ctx, j.image)
	atomic.AddInt64(&q.processed, 1)

	count := 0
	if det != nil {
		count = det.Total()
	}
	common.LogDetectorCall(q.next.Name(), time.Since(start), count, err)
	common.LogDebug("偵測完成", zap.Int("worker", id))
	metrics.RecordDetection(q.next.Name(), err)

	j.result <- jobResult{detection: det, err: err}
}

// Status 獲取佇列狀態
func (q *Queue) Status() Status {
	return Status{
		QueueLength:    len(q.jobs),
		ProcessedCount: int(atomic.LoadInt64(&q.processed)),
		MaxQueueSize:   q.maxSize,
		Workers:        q.workers,
		Provider:       q.next.Name(),
	}
}

// Close 停止 worker，可重複呼叫
func (q *Queue) Close() {
	q.once.Do(func() {
		close(q.done)
		q.wg.Wait()
		metrics.DetectorQueueLength.Set(0)
	})
}
