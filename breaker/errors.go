package breaker

import (
	"fmt"

	"github.com/ceyewan/storekit/xerrors"
)

// 错误定义
var (
	// ErrNameEmpty 熔断器名为空
	ErrNameEmpty = xerrors.New("breaker: name is empty")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = xerrors.New("breaker: invalid configuration")
)

// CircuitOpenError 熔断器打开时的短路错误，携带熔断器名供 UI 层提示
type CircuitOpenError struct {
	Name string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("breaker: circuit %q is open", e.Name)
}

// IsCircuitOpen 判断错误链中是否包含熔断短路错误
func IsCircuitOpen(err error) bool {
	var coe *CircuitOpenError
	return xerrors.As(err, &coe)
}
