package retrieval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lk2023060901/activity-search/internal/pkg/logger"
	"github.com/lk2023060901/activity-search/internal/search/types"
	"go.uber.org/zap"
)

// Runner 以独立超时运行单条路径，任何错误、超时或 panic 都只降级该路径
type Runner struct {
	logger *logger.Logger
}

// NewRunner 创建 Runner
func NewRunner(lgr *logger.Logger) *Runner {
	if lgr == nil {
		lgr = logger.L()
	}
	return &Runner{logger: lgr.Named("retrieval")}
}

type pathOutcome struct {
	candidates []*types.Candidate
	err        error
}

// Run 执行路径，永不返回错误
func (r *Runner) Run(ctx context.Context, p Path, req *Request, timeout time.Duration) types.RetrievalPathResult {
	start := time.Now()
	name := p.Name()
	res := types.RetrievalPathResult{Path: name}

	finish := func(out pathOutcome) types.RetrievalPathResult {
		res.LatencyMs = time.Since(start).Milliseconds()
		switch {
		case out.err == nil:
			res.OK = true
			res.Candidates = out.candidates
		case errors.Is(out.err, ErrSkipped) || errors.Is(out.err, types.ErrNoData):
			res.OK = true
			res.Skipped = true
			r.logger.Debug("retrieval path skipped",
				zap.String("path", string(name)),
				zap.Int64("latency_ms", res.LatencyMs))
		default:
			res.Err = out.err
			r.logger.Warn("retrieval path failed",
				zap.String("path", string(name)),
				zap.Int64("latency_ms", res.LatencyMs),
				zap.Error(out.err))
		}
		return res
	}

	if p.NeedsEmbedding() && (req.Embedding == nil || len(req.Embedding.Values) == 0) {
		return finish(pathOutcome{err: ErrNoEmbedding})
	}

	pathCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		pathCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan pathOutcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- pathOutcome{err: fmt.Errorf("path panicked: %v", rec)}
			}
		}()
		cands, err := p.Search(pathCtx, req)
		done <- pathOutcome{candidates: cands, err: err}
	}()

	select {
	case out := <-done:
		return finish(out)
	case <-pathCtx.Done():
		return finish(pathOutcome{err: fmt.Errorf("path abandoned: %w", pathCtx.Err())})
	}
}
