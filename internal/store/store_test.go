package store

import (
	"strings"
	"testing"
)

func TestAggExpr(t *testing.T) {
	tests := []struct {
		method AggMethod
		want   string
	}{
		{AggAvg, "avgOrNull(`value`)"},
		{AggSum, "sumOrNull(`value`)"},
		{AggMin, "minOrNull(`value`)"},
		{AggMax, "maxOrNull(`value`)"},
	}

	for _, tt := range tests {
		got, err := aggExpr(tt.method, "value")
		if err != nil {
			t.Fatalf("aggExpr(%s) failed: %v", tt.method, err)
		}
		if got != tt.want {
			t.Errorf("aggExpr(%s) = %q, want %q", tt.method, got, tt.want)
		}
	}
}

func TestAggExprCountIsNullableFloat(t *testing.T) {
	got, err := aggExpr(AggCount, "value")
	if err != nil {
		t.Fatal(err)
	}
	// filled gap rows must default to NULL, and every method must scan as
	// the same float type
	if !strings.Contains(got, "toNullable") || !strings.Contains(got, "toFloat64") {
		t.Errorf("count expression %q must be a nullable float", got)
	}
}

func TestAggExprRejectsUnknown(t *testing.T) {
	if _, err := aggExpr(AggMethod("median"), "value"); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestValidAggMethods(t *testing.T) {
	methods := ValidAggMethods()
	if len(methods) != 5 {
		t.Fatalf("got %d methods", len(methods))
	}
	for _, m := range methods {
		if _, err := aggExpr(m, "v"); err != nil {
			t.Errorf("valid method %s has no expression: %v", m, err)
		}
	}
}
