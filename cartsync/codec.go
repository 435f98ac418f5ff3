package cartsync

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/storekit/xerrors"
)

// ComputeChecksum 计算条目列表的校验和
//
// 规范化编码：按键排序，每条编码为 pid|vid|qty 并以分号收尾，
// 对拼接结果取 sha256 十六进制。与条目原始顺序无关。
func ComputeChecksum(items []CartItem) string {
	sorted := sortedCopy(items)

	var b strings.Builder
	for _, item := range sorted {
		b.WriteString(item.ProductID)
		b.WriteByte('|')
		b.WriteString(item.VariantID)
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(item.Quantity))
		b.WriteByte(';')
	}

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// encodeSnapshot 快照编码为 msgpack 线格式
func encodeSnapshot(snap Snapshot) ([]byte, error) {
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return nil, xerrors.Wrap(err, "cartsync: encode snapshot")
	}
	return data, nil
}

// decodeSnapshot 从线格式解码快照
func decodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, xerrors.Wrap(err, "cartsync: decode snapshot")
	}
	return snap, nil
}

// sortedCopy 返回按键排序的条目副本
func sortedCopy(items []CartItem) []CartItem {
	out := make([]CartItem, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool {
		return out[i].key() < out[j].key()
	})
	return out
}

// structuralEqual 判断两份条目是否结构相同（同键集且数量相等）
func structuralEqual(a, b []CartItem) bool {
	if len(a) != len(b) {
		return false
	}
	index := make(map[string]int, len(a))
	for _, item := range a {
		index[item.key()] = item.Quantity
	}
	for _, item := range b {
		qty, ok := index[item.key()]
		if !ok || qty != item.Quantity {
			return false
		}
	}
	return true
}

// mergeMaxQuantity auto-merge 的确定性合并：条目并集，同键取最大数量
func mergeMaxQuantity(a, b []CartItem) []CartItem {
	merged := make(map[string]CartItem, len(a)+len(b))
	for _, item := range a {
		merged[item.key()] = item
	}
	for _, item := range b {
		if existing, ok := merged[item.key()]; !ok || item.Quantity > existing.Quantity {
			merged[item.key()] = item
		}
	}

	out := make([]CartItem, 0, len(merged))
	for _, item := range merged {
		out = append(out, item)
	}
	return sortedCopy(out)
}
