package cartsync

import (
	"fmt"

	"github.com/ceyewan/storekit/xerrors"
)

var (
	// ErrChannelNil 未提供广播通道
	ErrChannelNil = xerrors.New("cartsync: channel is nil")
	// ErrInvalidPolicy 未知的冲突解决策略
	ErrInvalidPolicy = xerrors.New("cartsync: invalid conflict policy")
	// ErrCheckoutLocked 另一个标签页持有未陈旧的结账锁
	ErrCheckoutLocked = xerrors.New("cartsync: checkout locked by another tab")
	// ErrSyncerClosed 同步器已关闭
	ErrSyncerClosed = xerrors.New("cartsync: syncer closed")
	// ErrChannelClosed 广播通道已关闭
	ErrChannelClosed = xerrors.New("cartsync: channel closed")
	// ErrNotLockOwner 释放非本页持有的结账锁
	ErrNotLockOwner = xerrors.New("cartsync: not checkout lock owner")
)

// IsCheckoutLocked 判断错误是否为结账锁冲突
func IsCheckoutLocked(err error) bool {
	return xerrors.Is(err, ErrCheckoutLocked)
}

// SyncConflictError 购物车同步冲突
//
// 不是失败，而是需要按策略解决的结构化信号。manual 策略下
// 交给 OnConflict 处理器，绝不静默丢弃。
type SyncConflictError struct {
	// Local 本地侧快照（时间戳为最后一次本地写入）
	Local Snapshot
	// Remote 远端快照
	Remote Snapshot
}

func (e *SyncConflictError) Error() string {
	return fmt.Sprintf("cartsync: conflict between local (ts=%d) and remote %s (ts=%d)",
		e.Local.Timestamp, e.Remote.Origin, e.Remote.Timestamp)
}
