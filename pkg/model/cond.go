package model

import (
	"fmt"
	"strings"
)

// Operator is a SQL comparison operator.
type Operator string

const (
	// OpEqual represents the = operator.
	OpEqual Operator = "="
	// OpNotEqual represents the != operator.
	OpNotEqual Operator = "!="
	// OpGreaterThan represents the > operator.
	OpGreaterThan Operator = ">"
	// OpGreaterThanOrEqual represents the >= operator.
	OpGreaterThanOrEqual Operator = ">="
	// OpLessThan represents the < operator.
	OpLessThan Operator = "<"
	// OpLessThanOrEqual represents the <= operator.
	OpLessThanOrEqual Operator = "<="
	// OpIn represents the IN operator.
	OpIn Operator = "IN"
	// OpNotIn represents the NOT IN operator.
	OpNotIn Operator = "NOT IN"
	// OpLike represents the LIKE operator.
	OpLike Operator = "LIKE"
	// OpILike represents the ILIKE operator (case-insensitive).
	OpILike Operator = "ILIKE"
	// OpIsNull represents the IS NULL operator.
	OpIsNull Operator = "IS NULL"
	// OpIsNotNull represents the IS NOT NULL operator.
	OpIsNotNull Operator = "IS NOT NULL"
)

// LogicOperator joins adjacent conditions.
type LogicOperator string

const (
	// LogicAnd represents the AND operator.
	LogicAnd LogicOperator = "AND"
	// LogicOr represents the OR operator.
	LogicOr LogicOperator = "OR"
)

// Condition is a single WHERE predicate. Conditions are combined with the
// Logic operator of the condition that follows them.
type Condition struct {
	Column   string
	Operator Operator
	Value    any
	Logic    LogicOperator
	Not      bool
	Group    []Condition
}

// whereBuilder renders a condition list as a parameterized WHERE clause.
type whereBuilder struct {
	conditions []Condition
	paramStart int
}

func newWhereBuilder(conditions []Condition) *whereBuilder {
	return &whereBuilder{conditions: conditions, paramStart: 1}
}

func newWhereBuilderWithStart(conditions []Condition, paramStart int) *whereBuilder {
	return &whereBuilder{conditions: conditions, paramStart: paramStart}
}

// build generates the WHERE clause SQL and arguments. An empty condition
// list yields an empty clause.
func (w *whereBuilder) build() (string, []any, error) {
	if len(w.conditions) == 0 {
		return "", nil, nil
	}

	sql, args, err := w.buildConditions(w.conditions, w.paramStart)
	if err != nil {
		return "", nil, err
	}
	return "WHERE " + sql, args, nil
}

func (w *whereBuilder) buildConditions(conditions []Condition, paramStart int) (string, []any, error) {
	var parts []string
	var args []any
	paramNum := paramStart

	for i, cond := range conditions {
		if len(cond.Group) > 0 {
			groupSQL, groupArgs, err := w.buildConditions(cond.Group, paramNum)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, "("+groupSQL+")")
			args = append(args, groupArgs...)
			paramNum += len(groupArgs)
		} else {
			condSQL, condArgs, err := w.buildCondition(cond, paramNum)
			if err != nil {
				return "", nil, err
			}

			if cond.Not {
				condSQL = "NOT (" + condSQL + ")"
			}

			parts = append(parts, condSQL)
			args = append(args, condArgs...)
			paramNum += len(condArgs)
		}

		if i < len(conditions)-1 {
			logic := conditions[i+1].Logic
			if logic == "" {
				logic = LogicAnd
			}
			parts[len(parts)-1] += " " + string(logic)
		}
	}

	return strings.Join(parts, " "), args, nil
}

func (w *whereBuilder) buildCondition(cond Condition, paramNum int) (string, []any, error) {
	column := cond.Column
	operator := cond.Operator
	value := cond.Value

	switch operator {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterThanOrEqual, OpLessThan, OpLessThanOrEqual:
		return fmt.Sprintf("%s %s $%d", column, operator, paramNum), []any{value}, nil

	case OpLike, OpILike:
		return fmt.Sprintf("%s %s $%d", column, operator, paramNum), []any{value}, nil

	case OpIn, OpNotIn:
		values, ok := value.([]any)
		if !ok {
			return "", nil, fmt.Errorf("IN/NOT IN operator requires []any value")
		}
		if len(values) == 0 {
			return "", nil, fmt.Errorf("IN/NOT IN operator requires at least one value")
		}

		placeholders := make([]string, len(values))
		for i := range values {
			placeholders[i] = fmt.Sprintf("$%d", paramNum+i)
		}

		sql := fmt.Sprintf("%s %s (%s)", column, operator, strings.Join(placeholders, ", "))
		return sql, values, nil

	case OpIsNull:
		return fmt.Sprintf("%s IS NULL", column), nil, nil

	case OpIsNotNull:
		return fmt.Sprintf("%s IS NOT NULL", column), nil, nil

	default:
		return "", nil, fmt.Errorf("unknown operator: %s", operator)
	}
}

// Helper functions for building conditions

// Eq creates an equality condition.
func Eq(column string, value any) Condition {
	return Condition{
		Column:   column,
		Operator: OpEqual,
		Value:    value,
		Logic:    LogicAnd,
	}
}

// NotEq creates a not-equal condition.
func NotEq(column string, value any) Condition {
	return Condition{
		Column:   column,
		Operator: OpNotEqual,
		Value:    value,
		Logic:    LogicAnd,
	}
}

// Gt creates a greater-than condition.
func Gt(column string, value any) Condition {
	return Condition{
		Column:   column,
		Operator: OpGreaterThan,
		Value:    value,
		Logic:    LogicAnd,
	}
}

// Gte creates a greater-than-or-equal condition.
func Gte(column string, value any) Condition {
	return Condition{
		Column:   column,
		Operator: OpGreaterThanOrEqual,
		Value:    value,
		Logic:    LogicAnd,
	}
}

// Lt creates a less-than condition.
func Lt(column string, value any) Condition {
	return Condition{
		Column:   column,
		Operator: OpLessThan,
		Value:    value,
		Logic:    LogicAnd,
	}
}

// Lte creates a less-than-or-equal condition.
func Lte(column string, value any) Condition {
	return Condition{
		Column:   column,
		Operator: OpLessThanOrEqual,
		Value:    value,
		Logic:    LogicAnd,
	}
}

// In creates an IN condition.
func In(column string, values ...any) Condition {
	return Condition{
		Column:   column,
		Operator: OpIn,
		Value:    values,
		Logic:    LogicAnd,
	}
}

// NotIn creates a NOT IN condition.
func NotIn(column string, values ...any) Condition {
	return Condition{
		Column:   column,
		Operator: OpNotIn,
		Value:    values,
		Logic:    LogicAnd,
	}
}

// Like creates a LIKE condition.
func Like(column string, pattern string) Condition {
	return Condition{
		Column:   column,
		Operator: OpLike,
		Value:    pattern,
		Logic:    LogicAnd,
	}
}

// ILike creates an ILIKE condition (case-insensitive).
func ILike(column string, pattern string) Condition {
	return Condition{
		Column:   column,
		Operator: OpILike,
		Value:    pattern,
		Logic:    LogicAnd,
	}
}

// IsNull creates an IS NULL condition.
func IsNull(column string) Condition {
	return Condition{
		Column:   column,
		Operator: OpIsNull,
		Logic:    LogicAnd,
	}
}

// IsNotNull creates an IS NOT NULL condition.
func IsNotNull(column string) Condition {
	return Condition{
		Column:   column,
		Operator: OpIsNotNull,
		Logic:    LogicAnd,
	}
}

// Or sets the logic operator to OR for the condition.
func Or(cond Condition) Condition {
	cond.Logic = LogicOr
	return cond
}

// Not negates a condition.
func Not(cond Condition) Condition {
	cond.Not = true
	return cond
}

// Group nests conditions inside parentheses.
func Group(conditions ...Condition) Condition {
	return Condition{
		Group: conditions,
		Logic: LogicAnd,
	}
}
