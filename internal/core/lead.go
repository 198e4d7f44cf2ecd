package core

import (
	"slices"
	"time"
)

// City is a lead's city token.
type City string

const (
	CityChandigarh City = "CHANDIGARH"
	CityMohali     City = "MOHALI"
	CityZirakpur   City = "ZIRAKPUR"
	CityPanchkula  City = "PANCHKULA"
	CityOther      City = "OTHER"
)

// PropertyType is the kind of property a lead is looking for.
type PropertyType string

const (
	PropertyApartment PropertyType = "APARTMENT"
	PropertyVilla     PropertyType = "VILLA"
	PropertyPlot      PropertyType = "PLOT"
	PropertyOffice    PropertyType = "OFFICE"
	PropertyRetail    PropertyType = "RETAIL"
)

// RequiresBHK reports whether leads of this property type must carry a BHK.
func (p PropertyType) RequiresBHK() bool {
	return p == PropertyApartment || p == PropertyVilla
}

// BHK is the bedroom/hall/kitchen configuration.
type BHK string

const (
	BHKOne    BHK = "ONE"
	BHKTwo    BHK = "TWO"
	BHKThree  BHK = "THREE"
	BHKFour   BHK = "FOUR"
	BHKStudio BHK = "STUDIO"
)

// Purpose is buy or rent.
type Purpose string

const (
	PurposeBuy  Purpose = "BUY"
	PurposeRent Purpose = "RENT"
)

// Timeline is how soon the lead expects to transact.
type Timeline string

const (
	TimelineZeroToThree Timeline = "ZERO_TO_THREE_MONTHS"
	TimelineThreeToSix  Timeline = "THREE_TO_SIX_MONTHS"
	TimelineMoreThanSix Timeline = "MORE_THAN_SIX_MONTHS"
	TimelineExploring   Timeline = "EXPLORING"
)

// Source is where the lead came from.
type Source string

const (
	SourceWebsite  Source = "WEBSITE"
	SourceReferral Source = "REFERRAL"
	SourceWalkIn   Source = "WALK_IN"
	SourceCall     Source = "CALL"
	SourceOther    Source = "OTHER"
)

// Status is the lead's pipeline stage.
type Status string

const (
	StatusNew         Status = "NEW"
	StatusQualified   Status = "QUALIFIED"
	StatusContacted   Status = "CONTACTED"
	StatusVisited     Status = "VISITED"
	StatusNegotiation Status = "NEGOTIATION"
	StatusConverted   Status = "CONVERTED"
	StatusDropped     Status = "DROPPED"
)

// Vocabularies lists the allowed tokens for every enum-valued field, keyed by
// field name. Order matches the order shown to users in error messages.
var Vocabularies = map[string][]string{
	FieldCity:         {"CHANDIGARH", "MOHALI", "ZIRAKPUR", "PANCHKULA", "OTHER"},
	FieldPropertyType: {"APARTMENT", "VILLA", "PLOT", "OFFICE", "RETAIL"},
	FieldBHK:          {"ONE", "TWO", "THREE", "FOUR", "STUDIO"},
	FieldPurpose:      {"BUY", "RENT"},
	FieldTimeline:     {"ZERO_TO_THREE_MONTHS", "THREE_TO_SIX_MONTHS", "MORE_THAN_SIX_MONTHS", "EXPLORING"},
	FieldSource:       {"WEBSITE", "REFERRAL", "WALK_IN", "CALL", "OTHER"},
	FieldStatus:       {"NEW", "QUALIFIED", "CONTACTED", "VISITED", "NEGOTIATION", "CONVERTED", "DROPPED"},
}

// InVocabulary reports whether token is an allowed value for field.
func InVocabulary(field, token string) bool {
	return slices.Contains(Vocabularies[field], token)
}

// Field names as they appear in CSV headers, API payloads, validation errors
// and audit diffs.
const (
	FieldName         = "name"
	FieldEmail        = "email"
	FieldPhone        = "phone"
	FieldCity         = "city"
	FieldPropertyType = "propertyType"
	FieldBHK          = "bhk"
	FieldPurpose      = "purpose"
	FieldBudgetMin    = "budgetMin"
	FieldBudgetMax    = "budgetMax"
	FieldTimeline     = "timeline"
	FieldSource       = "source"
	FieldStatus       = "status"
	FieldNotes        = "notes"
	FieldTags         = "tags"
)

// TrackedFields is the fixed, ordered list of attributes monitored for change
// auditing.
var TrackedFields = []string{
	FieldName, FieldEmail, FieldPhone, FieldCity, FieldPropertyType, FieldBHK,
	FieldPurpose, FieldBudgetMin, FieldBudgetMax, FieldTimeline, FieldSource,
	FieldStatus, FieldNotes, FieldTags,
}

// headerAliases maps alternate CSV header spellings onto canonical field names.
var headerAliases = map[string]string{
	"fullname":  FieldName,
	"full_name": FieldName,
	"full name": FieldName,
}

// Record is a normalized candidate lead. Empty strings and nil budgets mean
// the value is absent.
type Record struct {
	Name         string       `json:"name"`
	Email        string       `json:"email,omitempty"`
	Phone        string       `json:"phone"`
	City         City         `json:"city"`
	PropertyType PropertyType `json:"propertyType"`
	BHK          BHK          `json:"bhk,omitempty"`
	Purpose      Purpose      `json:"purpose"`
	BudgetMin    *int         `json:"budgetMin,omitempty"`
	BudgetMax    *int         `json:"budgetMax,omitempty"`
	Timeline     Timeline     `json:"timeline"`
	Source       Source       `json:"source"`
	Status       Status       `json:"status"`
	Notes        string       `json:"notes,omitempty"`
	Tags         []string     `json:"tags"`
}

// Lead is a persisted record owned by a single user.
type Lead struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	Record
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	out := r
	if r.BudgetMin != nil {
		v := *r.BudgetMin
		out.BudgetMin = &v
	}
	if r.BudgetMax != nil {
		v := *r.BudgetMax
		out.BudgetMax = &v
	}
	if r.Tags != nil {
		out.Tags = slices.Clone(r.Tags)
	}
	return out
}

// Clone returns a deep copy of the lead.
func (l Lead) Clone() Lead {
	l.Record = l.Record.Clone()
	return l
}
