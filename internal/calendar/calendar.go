// Package calendar 学期日历：日期 → 学期分桶键（分区路由的唯一来源）。
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Half 学期半年标识
type Half string

const (
	Spring Half = "spring" // 1–6 月
	Fall   Half = "fall"   // 7–12 月
)

// BucketKey 学期分桶键，对应 attendance 表的一个 LIST 分区
type BucketKey struct {
	Year int
	Half Half
}

// BucketOf 将时间映射到学期分桶：1–6 月为 spring，其余为 fall。
// 仓库内所有分桶计算（Session 钩子、事实表、分析查询）都必须走这里。
func BucketOf(t time.Time) BucketKey {
	if t.Month() <= time.June {
		return BucketKey{Year: t.Year(), Half: Spring}
	}
	return BucketKey{Year: t.Year(), Half: Fall}
}

// String 返回 "{year}_{spring|fall}"
func (k BucketKey) String() string {
	return strconv.Itoa(k.Year) + "_" + string(k.Half)
}

// PartitionTable 分区物理表名
func (k BucketKey) PartitionTable() string {
	return "attendance_" + k.String()
}

// ParseBucketKey 解析 "{year}_{spring|fall}"
func ParseBucketKey(s string) (BucketKey, error) {
	yearPart, halfPart, ok := strings.Cut(s, "_")
	if !ok {
		return BucketKey{}, fmt.Errorf("无效的学期分桶键 %q", s)
	}
	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return BucketKey{}, fmt.Errorf("无效的学期分桶键 %q: %w", s, err)
	}
	switch Half(halfPart) {
	case Spring, Fall:
		return BucketKey{Year: year, Half: Half(halfPart)}, nil
	default:
		return BucketKey{}, fmt.Errorf("无效的学期分桶键 %q", s)
	}
}

// Distinct 对日期集合求去重后的分桶键，保持首次出现顺序
func Distinct(dates []time.Time) []BucketKey {
	seen := make(map[BucketKey]struct{}, 2)
	keys := make([]BucketKey, 0, 2)
	for _, d := range dates {
		k := BucketOf(d)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}
	return keys
}

// TeachingWindow 授课周期窗口（含端点）：
// spring 为 2/1–6/30；fall 为 9/1–次年 1/31。用于受众报告，不参与分区路由。
func TeachingWindow(year int, half Half) (time.Time, time.Time) {
	if half == Spring {
		return time.Date(year, time.February, 1, 0, 0, 0, 0, time.UTC),
			time.Date(year, time.June, 30, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(year, time.September, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year+1, time.January, 31, 0, 0, 0, 0, time.UTC)
}
