package masking

import "testing"

func testEngine() *Engine {
	return NewEngine(
		[]string{ColumnEmail, ColumnFirstName, ColumnDailySales},
		[]RoleConfig{
			{Name: "admin", PermittedColumns: []string{ColumnEmail, ColumnFirstName, ColumnDailySales}},
			{Name: "analyst", PermittedColumns: []string{ColumnDailySales}},
		},
	)
}

func TestApplyPermittedRoleSeesValue(t *testing.T) {
	e := testEngine()

	got := e.Apply(ColumnEmail, "maria@example.com", "admin")
	if got != "maria@example.com" {
		t.Errorf("Expected value passthrough for admin, got %v", got)
	}
}

func TestApplyMasksIndependentOfValue(t *testing.T) {
	e := testEngine()

	values := []interface{}{"maria@example.com", nil, 42, 15.50}
	for _, v := range values {
		if got := e.Apply(ColumnEmail, v, "analyst"); got != RedactedMarker {
			t.Errorf("Apply(email, %v, analyst) = %v, want redaction marker", v, got)
		}
	}
}

func TestUnknownRoleFailsClosed(t *testing.T) {
	e := testEngine()

	if got := e.Apply(ColumnEmail, "x", "intern"); got != RedactedMarker {
		t.Errorf("Expected unknown role to be masked, got %v", got)
	}
	if got := e.Apply(ColumnDailySales, 15.50, ""); got != RedactedMarker {
		t.Errorf("Expected empty role to be masked, got %v", got)
	}
}

func TestUnprotectedColumnsVisibleToAll(t *testing.T) {
	e := testEngine()

	if got := e.Apply("city", "Hamburg", "intern"); got != "Hamburg" {
		t.Errorf("Expected unprotected column to pass through, got %v", got)
	}
}

func TestMaskRecordEvaluatesColumnsIndependently(t *testing.T) {
	e := testEngine()

	record := map[string]interface{}{
		ColumnEmail:      "maria@example.com",
		ColumnDailySales: 15.50,
		"city":           "Hamburg",
	}

	masked := e.MaskRecord(record, "analyst")

	if masked[ColumnEmail] != RedactedMarker {
		t.Errorf("Expected email masked, got %v", masked[ColumnEmail])
	}
	if masked[ColumnDailySales] != 15.50 {
		t.Errorf("Expected daily_sales visible, got %v", masked[ColumnDailySales])
	}
	if masked["city"] != "Hamburg" {
		t.Errorf("Expected city visible, got %v", masked["city"])
	}

	// The stored record is untouched.
	if record[ColumnEmail] != "maria@example.com" {
		t.Errorf("Expected source record unmutated, got %v", record[ColumnEmail])
	}
}
