package core

import (
	"strings"
	"testing"
)

func validRecord() Record {
	return Record{
		Name:         "Asha Verma",
		Email:        "asha@example.com",
		Phone:        "9876543210",
		City:         CityMohali,
		PropertyType: PropertyPlot,
		Purpose:      PurposeBuy,
		Timeline:     TimelineExploring,
		Source:       SourceWebsite,
		Status:       StatusNew,
		Tags:         []string{},
	}
}

func TestValidateRecord_Valid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
	}{
		{"baseline", func(*Record) {}},
		{"no email", func(r *Record) { r.Email = "" }},
		{"apartment with bhk", func(r *Record) { r.PropertyType = PropertyApartment; r.BHK = BHKTwo }},
		{"plot with bhk", func(r *Record) { r.BHK = BHKStudio }},
		{"equal budgets", func(r *Record) { r.BudgetMin = intPtr(100); r.BudgetMax = intPtr(100) }},
		{"only max budget", func(r *Record) { r.BudgetMax = intPtr(100) }},
		{"two char name", func(r *Record) { r.Name = "Al" }},
		{"fifteen digit phone", func(r *Record) { r.Phone = "123456789012345" }},
		{"notes at limit", func(r *Record) { r.Notes = strings.Repeat("n", 1000) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)
			if errs := ValidateRecord(rec); errs != nil {
				t.Errorf("ValidateRecord() = %v, want no errors", errs)
			}
		})
	}
}

func TestValidateRecord_Rules(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Record)
		wantField string
		wantMsg   string
	}{
		{"short name", func(r *Record) { r.Name = "A" }, FieldName, msgNameShort},
		{"missing name", func(r *Record) { r.Name = "" }, FieldName, msgNameShort},
		{"long name", func(r *Record) { r.Name = strings.Repeat("a", 81) }, FieldName, msgNameLong},
		{"bad email", func(r *Record) { r.Email = "asha-at-example" }, FieldEmail, msgEmail},
		{"short phone", func(r *Record) { r.Phone = "12345" }, FieldPhone, msgPhone},
		{"phone with dashes", func(r *Record) { r.Phone = "98765-43210" }, FieldPhone, msgPhone},
		{"missing phone", func(r *Record) { r.Phone = "" }, FieldPhone, msgPhone},
		{"missing city", func(r *Record) { r.City = "" }, FieldCity, "city is required"},
		{"unknown city", func(r *Record) { r.City = "DELHI" }, FieldCity, "Invalid city. Expected one of: CHANDIGARH, MOHALI, ZIRAKPUR, PANCHKULA, OTHER"},
		{"villa without bhk", func(r *Record) { r.PropertyType = PropertyVilla }, FieldBHK, msgBHKRequired},
		{"bad bhk", func(r *Record) { r.BHK = "SIX" }, FieldBHK, "Invalid bhk. Expected one of: ONE, TWO, THREE, FOUR, STUDIO"},
		{"budget inverted", func(r *Record) { r.BudgetMin = intPtr(200); r.BudgetMax = intPtr(100) }, FieldBudgetMax, msgBudgetRange},
		{"zero budget", func(r *Record) { r.BudgetMin = intPtr(0) }, FieldBudgetMin, "budgetMin must be a positive number"},
		{"budget over cap", func(r *Record) { r.BudgetMin = intPtr(MaxBudget + 1) }, FieldBudgetMin, msgBudgetTooLarge},
		{"max budget over cap", func(r *Record) { r.BudgetMax = intPtr(3000000000) }, FieldBudgetMax, msgBudgetTooLarge},
		{"unknown timeline", func(r *Record) { r.Timeline = "SOON" }, FieldTimeline, "Invalid timeline. Expected one of: ZERO_TO_THREE_MONTHS, THREE_TO_SIX_MONTHS, MORE_THAN_SIX_MONTHS, EXPLORING"},
		{"unknown status", func(r *Record) { r.Status = "LOST" }, FieldStatus, "Invalid status. Expected one of: NEW, QUALIFIED, CONTACTED, VISITED, NEGOTIATION, CONVERTED, DROPPED"},
		{"long notes", func(r *Record) { r.Notes = strings.Repeat("n", 1001) }, FieldNotes, msgNotesLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)

			errs := ValidateRecord(rec)
			if len(errs) != 1 {
				t.Fatalf("ValidateRecord() = %v, want exactly one error", errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("Field = %q, want %q", errs[0].Field, tt.wantField)
			}
			if errs[0].Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", errs[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestValidateRecord_CollectsAllFields(t *testing.T) {
	rec := validRecord()
	rec.Notes = strings.Repeat("n", 1001)
	rec.Name = "A"
	rec.Phone = "abc"
	rec.City = "DELHI"
	rec.PropertyType = PropertyApartment

	errs := ValidateRecord(rec)

	want := []string{FieldName, FieldPhone, FieldCity, FieldBHK, FieldNotes}
	if len(errs) != len(want) {
		t.Fatalf("got %d errors %v, want fields %v", len(errs), errs, want)
	}
	for i, field := range want {
		if errs[i].Field != field {
			t.Errorf("errs[%d].Field = %q, want %q", i, errs[i].Field, field)
		}
	}
	if errs[2].Value != "DELHI" {
		t.Errorf("city Value = %q, want DELHI", errs[2].Value)
	}
}

func TestValidateRow_UsesRawValue(t *testing.T) {
	r := ImportRow{Row: 7, Values: map[string]string{FieldCity: " delhi "}}
	rec := validRecord()
	rec.City = City(enumToken(r.Raw(FieldCity)))

	errs := ValidateRow(r, rec)
	if len(errs) != 1 {
		t.Fatalf("ValidateRow() = %v, want one error", errs)
	}
	if errs[0].Row != 7 {
		t.Errorf("Row = %d, want 7", errs[0].Row)
	}
	if errs[0].Value != " delhi " {
		t.Errorf("Value = %q, want raw cell %q", errs[0].Value, " delhi ")
	}
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: FieldName, Message: msgNameShort},
		{Row: 3, Field: FieldPhone, Message: msgPhone},
	}
	want := "validation failed: name: " + msgNameShort + "; row 3: phone: " + msgPhone
	if got := errs.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
