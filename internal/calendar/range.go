package calendar

import (
	"errors"
	"time"
)

var (
	// ErrInvalidRange 起始日期晚于结束日期
	ErrInvalidRange = errors.New("起始日期不能晚于结束日期")
	// ErrBadDate 日期不是 YYYY-MM-DD
	ErrBadDate = errors.New("日期格式应为 YYYY-MM-DD")
)

// DateLayout 区间端点的文本格式
const DateLayout = "2006-01-02"

// DateRange 按自然日计算的闭区间，nil 端点表示该侧不设限
// To 当天的任意时刻都在区间内
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Validate 校验端点顺序
func (r DateRange) Validate() error {
	if r.From != nil && r.To != nil && dayStart(*r.From).After(dayStart(*r.To)) {
		return ErrInvalidRange
	}
	return nil
}

// Lower 下界（含），为 From 当天零点
func (r DateRange) Lower() *time.Time {
	if r.From == nil {
		return nil
	}
	t := dayStart(*r.From)
	return &t
}

// UpperExclusive 上界（不含），为 To 次日零点
func (r DateRange) UpperExclusive() *time.Time {
	if r.To == nil {
		return nil
	}
	t := dayStart(*r.To).AddDate(0, 0, 1)
	return &t
}

// Contains 判断时刻是否落在区间内
func (r DateRange) Contains(t time.Time) bool {
	if lo := r.Lower(); lo != nil && t.Before(*lo) {
		return false
	}
	if hi := r.UpperExclusive(); hi != nil && !t.Before(*hi) {
		return false
	}
	return true
}

// ParseDateRange 解析 YYYY-MM-DD 端点（UTC），空串表示不限
func ParseDateRange(from, to string) (DateRange, error) {
	var r DateRange
	if from != "" {
		t, err := time.Parse(DateLayout, from)
		if err != nil {
			return r, ErrBadDate
		}
		r.From = &t
	}
	if to != "" {
		t, err := time.Parse(DateLayout, to)
		if err != nil {
			return r, ErrBadDate
		}
		r.To = &t
	}
	return r, r.Validate()
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
