package delegation

import "github.com/roach88/delegation/internal/ir"

// JoinKind is the join flavor.
type JoinKind string

const (
	JoinInner JoinKind = "inner"
	JoinLeft  JoinKind = "left"
	JoinRight JoinKind = "right"
	JoinFull  JoinKind = "full"
)

// ParseJoinKind accepts Inner, Left, Right and Full in any case, with or
// without a "JoinType." prefix.
func ParseJoinKind(s string) (JoinKind, bool) {
	switch normalizeEnumName(s, "JoinType") {
	case "inner":
		return JoinInner, true
	case "left":
		return JoinLeft, true
	case "right":
		return JoinRight, true
	case "full":
		return JoinFull, true
	}
	return "", false
}

// JoinNode describes an equi-join on single-column keys.
type JoinNode struct {
	SourceTable      string       `json:"source_table"`
	ForeignTable     string       `json:"foreign_table"`
	SourceAttribute  string       `json:"source_attribute"`
	ForeignAttribute string       `json:"foreign_attribute"`
	Kind             JoinKind     `json:"kind"`
	ForeignAlias     string       `json:"foreign_alias"`
	ForeignColumns   []ColumnInfo `json:"foreign_columns,omitempty"`

	foreignNode ir.Node
}

// NewJoinNode creates a join descriptor. Keys must have exactly one column
// each; anything else is an invariant violation because the join processor
// rejects composite keys before building the descriptor.
func NewJoinNode(source, foreign string, sourceKey, foreignKey []string, kind JoinKind, foreignNode ir.Node, foreignCols []ColumnInfo) *JoinNode {
	if len(sourceKey) != 1 || len(foreignKey) != 1 {
		violate("join-single-key", "join %s/%s requires single-column keys, got %v and %v", source, foreign, sourceKey, foreignKey)
	}
	return &JoinNode{
		SourceTable:      source,
		ForeignTable:     foreign,
		SourceAttribute:  sourceKey[0],
		ForeignAttribute: foreignKey[0],
		Kind:             kind,
		ForeignAlias:     "j_" + foreign,
		ForeignColumns:   append([]ColumnInfo(nil), foreignCols...),
		foreignNode:      foreignNode,
	}
}

// ForeignNode returns the node that denotes the foreign table.
func (j *JoinNode) ForeignNode() ir.Node { return j.foreignNode }
