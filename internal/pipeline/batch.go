package pipeline

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrDuplicateRunID 表示批量请求中有重复的运行 ID。
var ErrDuplicateRunID = errors.New("[pipeline] 运行 ID 重复")

// RunBatch 并发执行多个运行，最多同时 limit 个。各运行互不影响：
// 一个失败不会取消其他运行。返回的切片与 reqs 一一对应，失败的位置为 nil，
// 所有失败合并到返回的错误中。
func RunBatch(ctx context.Context, d *Driver, reqs []Request, limit int) ([]*Output, error) {
	seen := make(map[string]bool, len(reqs))
	prepared := make([]Request, len(reqs))
	for i, req := range reqs {
		if req.ID == "" {
			req.ID = NewRunID()
		}
		if err := ValidateRunID(req.ID); err != nil {
			return nil, err
		}
		if seen[req.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRunID, req.ID)
		}
		seen[req.ID] = true
		prepared[i] = req
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	outputs := make([]*Output, len(prepared))
	errs := make([]error, len(prepared))
	for i, req := range prepared {
		i, req := i, req
		g.Go(func() error {
			out, err := d.Run(ctx, req)
			if err != nil {
				errs[i] = fmt.Errorf("[pipeline] 运行 %s 失败: %w", req.ID, err)
				return nil
			}
			outputs[i] = out
			return nil
		})
	}
	_ = g.Wait()
	return outputs, errors.Join(errs...)
}
