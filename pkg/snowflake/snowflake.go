// Package snowflake 处理嵌入时间戳的帖子标识：
// 高 42 位编码相对固定纪元的毫秒时间戳，新鲜度/年龄计算不需要
// 额外的时间戳字段。
package snowflake

import "time"

// Epoch 是标识方案的固定纪元（毫秒，2010-11-04 01:42:54.657 UTC）。
const Epoch int64 = 1288834974657

const timestampShift = 22

// TimestampMillis 从标识中解出创建时间（毫秒）。
func TimestampMillis(id int64) int64 {
	return (id >> timestampShift) + Epoch
}

// Age 返回标识距今的年龄。时钟偏差导致"未来"标识时返回 ok=false。
func Age(id int64, now time.Time) (time.Duration, bool) {
	created := TimestampMillis(id)
	nowMS := now.UnixMilli()
	if nowMS <= created {
		return 0, false
	}
	return time.Duration(nowMS-created) * time.Millisecond, true
}

// FromTimestamp 由毫秒时间戳构造标识（低位全零，测试用）。
func FromTimestamp(tsMillis int64) int64 {
	return (tsMillis - Epoch) << timestampShift
}
