package dedup

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/ceyewan/storekit/xerrors"
)

// Signature 计算请求的去重签名
//
// 签名 = method + URL + 规范化请求体。请求体先序列化再反序列化为通用结构，
// 使 map 与 struct 表达同一载荷时得到相同签名（encoding/json 对 map 键排序）。
// 返回的签名保留明文前缀（method:URL）以支持子串失效，载荷部分取哈希。
func Signature(req Request) (string, error) {
	prefix := strings.ToUpper(req.Method) + ":" + req.URL

	if req.Body == nil {
		return prefix, nil
	}

	raw, err := json.Marshal(req.Body)
	if err != nil {
		return "", xerrors.Wrap(err, "dedup: marshal body")
	}

	var normalized any
	if err := json.Unmarshal(raw, &normalized); err != nil {
		return "", xerrors.Wrap(err, "dedup: normalize body")
	}

	canonical, err := json.Marshal(normalized)
	if err != nil {
		return "", xerrors.Wrap(err, "dedup: canonicalize body")
	}

	sum := sha256.Sum256(canonical)
	return prefix + ":" + hex.EncodeToString(sum[:]), nil
}
