package core

// validation.go applies the lead business rules to a normalized Record.
//
// Rules live as go-playground/validator tags on recordRules, plus one
// struct-level rule for the two cross-field checks (BHK presence and budget
// ordering). Every violated field yields exactly one ValidationError carrying
// the first rule that failed for it; all fields are checked.

import (
	"fmt"
	"math"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError is a field-level problem with one row.
type ValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value"`
}

func (e ValidationError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s: %s", e.Row, e.Field, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors is returned by the create and update operations when the
// submitted record is invalid.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, ve := range e {
		msgs[i] = ve.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

const (
	msgNameShort      = "Full name must be at least 2 characters"
	msgNameLong       = "Full name must be less than 80 characters"
	msgEmail          = "Invalid email format"
	msgPhone          = "Phone must be 10-15 digits"
	msgBHKRequired    = "BHK is required for Apartment and Villa property types"
	msgBudgetRange    = "Maximum budget must be greater than or equal to minimum budget"
	msgBudgetTooLarge = "Budget must not exceed 2147483647"
	msgNotesLong      = "Notes must be less than 1000 characters"
	msgDuplicateFile  = "Duplicate email found within the CSV file"
	msgDuplicateStore = "A lead with this email already exists in your database"
)

// MaxBudget is the largest budget every store can hold. The lte rules on the
// budget fields must match it.
const MaxBudget = math.MaxInt32

var phonePattern = regexp.MustCompile(`^\d{10,15}$`)

// recordRules is the validation view of a Record.
type recordRules struct {
	Name         string `json:"name" validate:"min=2,max=80"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"phone"`
	City         string `json:"city" validate:"required,vocab=city"`
	PropertyType string `json:"propertyType" validate:"required,vocab=propertyType"`
	BHK          string `json:"bhk" validate:"omitempty,vocab=bhk"`
	Purpose      string `json:"purpose" validate:"required,vocab=purpose"`
	BudgetMin    *int   `json:"budgetMin" validate:"omitempty,gt=0,lte=2147483647"`
	BudgetMax    *int   `json:"budgetMax" validate:"omitempty,gt=0,lte=2147483647"`
	Timeline     string `json:"timeline" validate:"required,vocab=timeline"`
	Source       string `json:"source" validate:"required,vocab=source"`
	Status       string `json:"status" validate:"required,vocab=status"`
	Notes        string `json:"notes" validate:"max=1000"`
}

func rulesFor(r Record) recordRules {
	return recordRules{
		Name:         r.Name,
		Email:        r.Email,
		Phone:        r.Phone,
		City:         string(r.City),
		PropertyType: string(r.PropertyType),
		BHK:          string(r.BHK),
		Purpose:      string(r.Purpose),
		BudgetMin:    r.BudgetMin,
		BudgetMax:    r.BudgetMax,
		Timeline:     string(r.Timeline),
		Source:       string(r.Source),
		Status:       string(r.Status),
		Notes:        r.Notes,
	}
}

var recordValidator = newRecordValidator()

func newRecordValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("json")
	})

	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("vocab", func(fl validator.FieldLevel) bool {
		return InVocabulary(fl.Param(), fl.Field().String())
	})

	v.RegisterStructValidation(func(sl validator.StructLevel) {
		r := sl.Current().Interface().(recordRules)
		if PropertyType(r.PropertyType).RequiresBHK() && r.BHK == "" {
			sl.ReportError(r.BHK, FieldBHK, "BHK", "bhk_required", "")
		}
		if r.BudgetMin != nil && r.BudgetMax != nil && *r.BudgetMax < *r.BudgetMin {
			sl.ReportError(r.BudgetMax, FieldBudgetMax, "BudgetMax", "budget_range", "")
		}
	}, recordRules{})

	return v
}

// ValidateRecord checks r against the business rules and returns one error
// per violated field, in tracked-field order. A nil result means r is valid.
// Row is left zero and Value holds the normalized value.
func ValidateRecord(r Record) []ValidationError {
	err := recordValidator.Struct(rulesFor(r))
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []ValidationError{{Message: err.Error()}}
	}

	seen := make(map[string]bool, len(fieldErrs))
	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Field()
		if seen[field] {
			continue
		}
		seen[field] = true
		out = append(out, ValidationError{
			Field:   field,
			Message: ruleMessage(field, fe.Tag()),
			Value:   r.FieldString(field),
		})
	}

	slices.SortStableFunc(out, func(a, b ValidationError) int {
		return fieldOrder(a.Field) - fieldOrder(b.Field)
	})
	return out
}

// ValidateRow validates a normalized import row. Errors carry the row number
// and the raw cell text as the offending value.
func ValidateRow(row ImportRow, r Record) []ValidationError {
	errs := ValidateRecord(r)
	for i := range errs {
		errs[i].Row = row.Row
		errs[i].Value = row.Raw(errs[i].Field)
	}
	return errs
}

func ruleMessage(field, tag string) string {
	switch tag {
	case "bhk_required":
		return msgBHKRequired
	case "budget_range":
		return msgBudgetRange
	case "required":
		return field + " is required"
	case "vocab":
		return fmt.Sprintf("Invalid %s. Expected one of: %s", field, strings.Join(Vocabularies[field], ", "))
	case "gt":
		return field + " must be a positive number"
	case "lte":
		if field == FieldBudgetMin || field == FieldBudgetMax {
			return msgBudgetTooLarge
		}
	}

	switch field {
	case FieldName:
		if tag == "max" {
			return msgNameLong
		}
		return msgNameShort
	case FieldEmail:
		return msgEmail
	case FieldPhone:
		return msgPhone
	case FieldNotes:
		return msgNotesLong
	}
	return fmt.Sprintf("%s failed %s validation", field, tag)
}

func fieldOrder(field string) int {
	if i := slices.Index(TrackedFields, field); i >= 0 {
		return i
	}
	return len(TrackedFields)
}

// FieldString renders a tracked field as display text. Absent values render
// as "".
func (r Record) FieldString(field string) string {
	switch field {
	case FieldName:
		return r.Name
	case FieldEmail:
		return r.Email
	case FieldPhone:
		return r.Phone
	case FieldCity:
		return string(r.City)
	case FieldPropertyType:
		return string(r.PropertyType)
	case FieldBHK:
		return string(r.BHK)
	case FieldPurpose:
		return string(r.Purpose)
	case FieldBudgetMin:
		return intString(r.BudgetMin)
	case FieldBudgetMax:
		return intString(r.BudgetMax)
	case FieldTimeline:
		return string(r.Timeline)
	case FieldSource:
		return string(r.Source)
	case FieldStatus:
		return string(r.Status)
	case FieldNotes:
		return r.Notes
	case FieldTags:
		return strings.Join(r.Tags, ",")
	}
	return ""
}

func intString(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
