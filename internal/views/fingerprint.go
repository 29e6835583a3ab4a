package views

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/spaolacci/murmur3"
)

// Fingerprint 计算输入列表的指纹，覆盖记录数、记录 ID 与创建时间。
// 指纹相同即可复用基于该列表计算出的派生结果。
func Fingerprint(events []ViewEvent) uint64 {
	h := murmur3.New64()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(len(events)))
	h.Write(buf[:])
	for _, event := range events {
		h.Write([]byte(event.ID))
		h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], uint64(event.CreatedAt.UnixNano()))
		h.Write(buf[:])
	}
	return h.Sum64()
}

// Key 拼接缓存键：结果种类、完整的筛选/排序条件与输入指纹。
// 字符串条件经过引号转义，任意取值都不会与分隔符混淆。
func Key(kind string, criteria Criteria, order SortOrder, fingerprint uint64) string {
	var b strings.Builder
	b.WriteString(kind)
	b.WriteString("|t=")
	b.WriteString(strconv.Quote(string(criteria.Type)))
	b.WriteString("|u=")
	b.WriteString(strconv.Quote(criteria.UserID))
	b.WriteString("|v=")
	b.WriteString(strconv.Quote(criteria.ViewableID))
	b.WriteString("|s=")
	b.WriteString(formatBound(criteria.Start))
	b.WriteString("|e=")
	b.WriteString(formatBound(criteria.End))
	b.WriteString("|q=")
	b.WriteString(strconv.Quote(strings.ToLower(strings.TrimSpace(criteria.Search))))
	b.WriteString("|o=")
	b.WriteString(strconv.Quote(string(order)))
	b.WriteString("|fp=")
	b.WriteString(strconv.FormatUint(fingerprint, 16))
	return b.String()
}

func formatBound(t *time.Time) string {
	if t == nil {
		return ""
	}
	return strconv.FormatInt(t.UnixNano(), 10)
}
