package core

import (
	"strconv"
	"strings"
	"unicode"
)

// Normalize converts a raw row into a Record. It never fails: values that do
// not parse are left absent and reported later by validation.
func Normalize(row ImportRow) Record {
	return Record{
		Name:         clean(row.Raw(FieldName)),
		Email:        clean(row.Raw(FieldEmail)),
		Phone:        clean(row.Raw(FieldPhone)),
		City:         City(enumToken(row.Raw(FieldCity))),
		PropertyType: PropertyType(enumToken(row.Raw(FieldPropertyType))),
		BHK:          BHK(enumToken(row.Raw(FieldBHK))),
		Purpose:      Purpose(enumToken(row.Raw(FieldPurpose))),
		BudgetMin:    parseBudget(row.Raw(FieldBudgetMin)),
		BudgetMax:    parseBudget(row.Raw(FieldBudgetMax)),
		Timeline:     Timeline(underscoreToken(row.Raw(FieldTimeline))),
		Source:       Source(underscoreToken(row.Raw(FieldSource))),
		Status:       defaultStatus(Status(enumToken(row.Raw(FieldStatus)))),
		Notes:        clean(row.Raw(FieldNotes)),
		Tags:         splitTags(row.Raw(FieldTags)),
	}
}

// NormalizeRecord applies the same rules to a record submitted directly, as
// from the create and update API.
func NormalizeRecord(r Record) Record {
	out := Record{
		Name:         clean(r.Name),
		Email:        clean(r.Email),
		Phone:        clean(r.Phone),
		City:         City(enumToken(string(r.City))),
		PropertyType: PropertyType(enumToken(string(r.PropertyType))),
		BHK:          BHK(enumToken(string(r.BHK))),
		Purpose:      Purpose(enumToken(string(r.Purpose))),
		Timeline:     Timeline(underscoreToken(string(r.Timeline))),
		Source:       Source(underscoreToken(string(r.Source))),
		Status:       defaultStatus(Status(enumToken(string(r.Status)))),
		Notes:        clean(r.Notes),
		Tags:         make([]string, 0, len(r.Tags)),
	}
	if r.BudgetMin != nil {
		v := *r.BudgetMin
		out.BudgetMin = &v
	}
	if r.BudgetMax != nil {
		v := *r.BudgetMax
		out.BudgetMax = &v
	}
	for _, tag := range r.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out.Tags = append(out.Tags, tag)
		}
	}
	return out
}

// NormalizeFilter brings list filter values into the stored token form, so
// "Mohali" and "walk in" match the same leads as MOHALI and WALK_IN.
func NormalizeFilter(f LeadFilter) LeadFilter {
	f.Search = clean(f.Search)
	f.City = City(enumToken(string(f.City)))
	f.PropertyType = PropertyType(enumToken(string(f.PropertyType)))
	f.Status = Status(enumToken(string(f.Status)))
	f.Timeline = Timeline(underscoreToken(string(f.Timeline)))
	return f
}

func clean(s string) string {
	return strings.TrimSpace(s)
}

func enumToken(s string) string {
	return strings.ToUpper(clean(s))
}

// underscoreToken turns values such as "walk in" into "WALK_IN".
func underscoreToken(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), "_"))
}

func defaultStatus(s Status) Status {
	if s == "" {
		return StatusNew
	}
	return s
}

// parseBudget parses an integer amount. Grouping separators and a leading
// currency marker are tolerated; anything else yields nil.
func parseBudget(s string) *int {
	s = clean(s)
	for _, prefix := range []string{"₹", "$", "Rs.", "Rs", "INR"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
			break
		}
	}
	s = strings.Map(func(r rune) rune {
		if r == ',' || r == '_' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}

func splitTags(s string) []string {
	tags := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}
