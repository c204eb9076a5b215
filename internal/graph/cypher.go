package graph

import (
	"fmt"
	"strings"
)

// UpsertCypher 生成通用的 "匹配父节点 → MERGE 节点 → SET 属性 → MERGE 边" 语句
// 父节点参数为 $p0..$pn；任一父节点不存在时 MATCH 无结果，matched 为 0
func UpsertCypher(d Descriptor) string {
	var b strings.Builder

	if len(d.Parents) > 0 {
		matches := make([]string, len(d.Parents))
		for i, p := range d.Parents {
			matches[i] = fmt.Sprintf("(p%d:%s {id: $p%d})", i, p.Label, i)
		}
		b.WriteString("MATCH ")
		b.WriteString(strings.Join(matches, ", "))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "MERGE (n:%s {id: $id})\n", d.Label)
	b.WriteString("SET n += $attrs\n")

	for i, p := range d.Parents {
		if p.Outgoing {
			fmt.Fprintf(&b, "MERGE (p%d)-[:%s]->(n)\n", i, p.Edge)
		} else {
			fmt.Fprintf(&b, "MERGE (n)-[:%s]->(p%d)\n", p.Edge, i)
		}
	}

	b.WriteString("RETURN count(n) AS matched")
	return b.String()
}

// ConstraintCypher 节点 id 唯一约束
func ConstraintCypher(label string) string {
	return fmt.Sprintf(
		"CREATE CONSTRAINT %s_id IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
		strings.ToLower(label), label,
	)
}

// upsertParams 组装 UpsertCypher 的参数
func upsertParams(row Row) map[string]interface{} {
	params := map[string]interface{}{
		"id":    row.ID,
		"attrs": row.Attrs,
	}
	for i, p := range row.Parents {
		if p != nil {
			params[fmt.Sprintf("p%d", i)] = *p
		}
	}
	return params
}
