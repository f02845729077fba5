package model

import (
	"strings"
	"testing"
)

func TestWhereBuilder_Build(t *testing.T) {
	tests := []struct {
		name           string
		conditions     []Condition
		expectedSQL    string
		expectedArgLen int
	}{
		{
			name:           "empty conditions",
			conditions:     []Condition{},
			expectedSQL:    "",
			expectedArgLen: 0,
		},
		{
			name: "single equality condition",
			conditions: []Condition{
				Eq("grade", "A"),
			},
			expectedSQL:    "WHERE grade = $1",
			expectedArgLen: 1,
		},
		{
			name: "multiple AND conditions",
			conditions: []Condition{
				Eq("grade", "A"),
				Eq("name", "Ada"),
			},
			expectedSQL:    "WHERE grade = $1 AND name = $2",
			expectedArgLen: 2,
		},
		{
			name: "OR condition",
			conditions: []Condition{
				Eq("credits", 3),
				Or(Eq("credits", 4)),
			},
			expectedSQL:    "WHERE credits = $1 OR credits = $2",
			expectedArgLen: 2,
		},
		{
			name: "IN condition",
			conditions: []Condition{
				In("grade", "A", "B", "C"),
			},
			expectedSQL:    "WHERE grade IN ($1, $2, $3)",
			expectedArgLen: 3,
		},
		{
			name: "NOT IN condition",
			conditions: []Condition{
				NotIn("id", 1, 2),
			},
			expectedSQL:    "WHERE id NOT IN ($1, $2)",
			expectedArgLen: 2,
		},
		{
			name: "IS NULL condition",
			conditions: []Condition{
				IsNull("grade"),
			},
			expectedSQL:    "WHERE grade IS NULL",
			expectedArgLen: 0,
		},
		{
			name: "IS NOT NULL condition",
			conditions: []Condition{
				IsNotNull("email"),
			},
			expectedSQL:    "WHERE email IS NOT NULL",
			expectedArgLen: 0,
		},
		{
			name: "LIKE condition",
			conditions: []Condition{
				Like("name", "%Ada%"),
			},
			expectedSQL:    "WHERE name LIKE $1",
			expectedArgLen: 1,
		},
		{
			name: "ILIKE condition",
			conditions: []Condition{
				ILike("email", "%@example.com"),
			},
			expectedSQL:    "WHERE email ILIKE $1",
			expectedArgLen: 1,
		},
		{
			name: "NOT condition",
			conditions: []Condition{
				Not(Eq("grade", "F")),
			},
			expectedSQL:    "WHERE NOT (grade = $1)",
			expectedArgLen: 1,
		},
		{
			name: "complex mixed conditions",
			conditions: []Condition{
				Gte("credits", 3),
				Lt("credits", 6),
				Or(Like("name", "%seminar%")),
			},
			expectedSQL:    "WHERE credits >= $1 AND credits < $2 OR name LIKE $3",
			expectedArgLen: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := newWhereBuilder(tt.conditions).build()
			if err != nil {
				t.Fatalf("build() error = %v", err)
			}

			if sql != tt.expectedSQL {
				t.Errorf("build() sql = %v, want %v", sql, tt.expectedSQL)
			}

			if len(args) != tt.expectedArgLen {
				t.Errorf("build() args length = %v, want %v", len(args), tt.expectedArgLen)
			}
		})
	}
}

func TestWhereBuilder_ParamStart(t *testing.T) {
	conditions := []Condition{
		Eq("student_id", 7),
		Eq("course_id", 9),
	}

	sql, args, err := newWhereBuilderWithStart(conditions, 3).build()
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}

	want := "WHERE student_id = $3 AND course_id = $4"
	if sql != want {
		t.Errorf("build() sql = %v, want %v", sql, want)
	}
	if len(args) != 2 {
		t.Errorf("build() args length = %v, want 2", len(args))
	}
}

func TestWhereBuilder_EmptyIn(t *testing.T) {
	_, _, err := newWhereBuilder([]Condition{In("id")}).build()
	if err == nil {
		t.Fatal("expected error for IN with no values")
	}
}

func TestConditionHelpers(t *testing.T) {
	t.Run("Eq creates equality condition", func(t *testing.T) {
		cond := Eq("name", "Ada")
		if cond.Column != "name" || cond.Operator != OpEqual || cond.Value != "Ada" {
			t.Error("Eq() did not create correct condition")
		}
	})

	t.Run("NotEq creates not-equal condition", func(t *testing.T) {
		cond := NotEq("grade", "F")
		if cond.Operator != OpNotEqual {
			t.Error("NotEq() did not set correct operator")
		}
	})

	t.Run("Gt creates greater-than condition", func(t *testing.T) {
		cond := Gt("credits", 3)
		if cond.Operator != OpGreaterThan {
			t.Error("Gt() did not set correct operator")
		}
	})

	t.Run("Gte creates greater-than-or-equal condition", func(t *testing.T) {
		cond := Gte("credits", 3)
		if cond.Operator != OpGreaterThanOrEqual {
			t.Error("Gte() did not set correct operator")
		}
	})

	t.Run("Lt creates less-than condition", func(t *testing.T) {
		cond := Lt("credits", 6)
		if cond.Operator != OpLessThan {
			t.Error("Lt() did not set correct operator")
		}
	})

	t.Run("Lte creates less-than-or-equal condition", func(t *testing.T) {
		cond := Lte("credits", 6)
		if cond.Operator != OpLessThanOrEqual {
			t.Error("Lte() did not set correct operator")
		}
	})

	t.Run("In creates IN condition", func(t *testing.T) {
		cond := In("grade", "A", "B")
		if cond.Operator != OpIn {
			t.Error("In() did not set correct operator")
		}
	})

	t.Run("Like creates LIKE condition", func(t *testing.T) {
		cond := Like("name", "%intro%")
		if cond.Operator != OpLike {
			t.Error("Like() did not set correct operator")
		}
	})

	t.Run("Or sets OR logic", func(t *testing.T) {
		cond := Or(Eq("credits", 3))
		if cond.Logic != LogicOr {
			t.Error("Or() did not set correct logic operator")
		}
	})

	t.Run("Not negates condition", func(t *testing.T) {
		cond := Not(Eq("grade", "F"))
		if !cond.Not {
			t.Error("Not() did not set Not flag")
		}
	})
}

func TestGroupedConditions(t *testing.T) {
	conditions := []Condition{
		Eq("course_id", 9),
		Group(
			Eq("grade", "A"),
			Or(Eq("grade", "B")),
		),
	}

	sql, args, err := newWhereBuilder(conditions).build()
	if err != nil {
		t.Fatalf("build() error = %v", err)
	}

	want := "WHERE course_id = $1 AND (grade = $2 OR grade = $3)"
	if sql != want {
		t.Errorf("build() sql = %v, want %v", sql, want)
	}

	if !strings.Contains(sql, "(") || !strings.Contains(sql, ")") {
		t.Error("Expected parentheses in grouped condition SQL")
	}

	if len(args) != 3 {
		t.Errorf("Expected 3 args, got %d", len(args))
	}
}
