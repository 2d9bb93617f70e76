package pipeline

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/iabetor/podvoice/internal/logger"
)

// Run 是一次运行的上下文：运行 ID、请求、带运行 ID 的 logger 和阶段状态机。
// 运行之间不共享任何可变状态。
type Run struct {
	id    string
	req   Request
	log   *zap.SugaredLogger
	state *StateMachine
}

// ErrInvalidRunID 表示运行 ID 含有不允许的字符。
var ErrInvalidRunID = errors.New("[pipeline] 运行 ID 无效")

// 运行 ID 会进入文件名和工作目录路径
var runIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidateRunID 检查运行 ID 只含字母、数字、下划线和连字符，长度 1 到 64。
func ValidateRunID(id string) error {
	if !runIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidRunID, id)
	}
	return nil
}

func newRun(req Request) (*Run, error) {
	id := req.ID
	if id == "" {
		id = NewRunID()
	}
	if err := ValidateRunID(id); err != nil {
		return nil, err
	}
	log := logger.With("run", id)
	return &Run{
		id:    id,
		req:   req,
		log:   log,
		state: NewStateMachine(log),
	}, nil
}

// NewRunID 生成一个运行 ID（UUID 的前 8 位十六进制字符）。
func NewRunID() string {
	return uuid.NewString()[:8]
}
