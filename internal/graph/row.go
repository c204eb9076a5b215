package graph

import (
	"fmt"
	"strconv"
	"time"
)

// Row 一行来源数据：节点 id、标量属性、按 Parents 顺序排列的父 id（nil 表示外键为空）
type Row struct {
	ID      int64
	Attrs   map[string]interface{}
	Parents []*int64
}

// RowFromMap 按描述将来源行转换为 Row
func RowFromMap(d Descriptor, m map[string]interface{}) (Row, error) {
	id, ok := toInt64(m["id"])
	if !ok {
		return Row{}, fmt.Errorf("%s 行缺少有效 id: %v", d.Label, m["id"])
	}

	row := Row{
		ID:      id,
		Attrs:   make(map[string]interface{}, len(d.Attrs)),
		Parents: make([]*int64, len(d.Parents)),
	}
	for _, a := range d.Attrs {
		row.Attrs[a] = graphValue(m[a])
	}
	for i, p := range d.Parents {
		if v, ok := toInt64(m[p.FK]); ok {
			row.Parents[i] = &v
		}
	}
	return row, nil
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int32:
		return int64(n), true
	case int:
		return int64(n), true
	case int16:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

// graphValue 归一为 Neo4j 驱动支持的属性类型
func graphValue(v interface{}) interface{} {
	switch x := v.(type) {
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int:
		return int64(x)
	case float32:
		return float64(x)
	case []byte:
		return string(x)
	case time.Time:
		return x.UTC()
	}
	return v
}
