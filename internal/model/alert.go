package model

import (
	"encoding/json"
	"strings"
)

// Delimiters for the alert filter columns. Wilaya and tender-type
// values never contain commas; category names can, so categories use a
// delimiter that cannot appear in a name.
const (
	ListDelimiter     = ","
	CategoryDelimiter = "|||"
)

// AlertFilters is the decoded form of an alert's filter columns.
type AlertFilters struct {
	Wilayas     []string
	TenderTypes []string
	Categories  []string
	Preferences NotificationPreferences
}

// EncodeFilters writes the filter lists and preferences onto the alert's
// persisted columns. Empty lists become NULL columns.
func (a *Alert) EncodeFilters(f AlertFilters) error {
	a.Wilaya = joinList(f.Wilayas, ListDelimiter)
	a.TenderType = joinList(f.TenderTypes, ListDelimiter)
	a.Category = joinList(f.Categories, CategoryDelimiter)

	prefs, err := json.Marshal(f.Preferences)
	if err != nil {
		return err
	}
	a.NotificationPreferences = prefs
	return nil
}

// DecodeFilters reads the persisted columns back into filter lists.
// A missing preferences document keeps in-app notifications on.
func (a *Alert) DecodeFilters() (AlertFilters, error) {
	f := AlertFilters{
		Wilayas:     splitList(a.Wilaya, ListDelimiter),
		TenderTypes: splitList(a.TenderType, ListDelimiter),
		Categories:  splitList(a.Category, CategoryDelimiter),
		Preferences: NotificationPreferences{InApp: true},
	}

	if len(a.NotificationPreferences) > 0 {
		if err := json.Unmarshal(a.NotificationPreferences, &f.Preferences); err != nil {
			return AlertFilters{}, err
		}
	}
	return f, nil
}

func joinList(values []string, sep string) *string {
	if len(values) == 0 {
		return nil
	}
	s := strings.Join(values, sep)
	return &s
}

func splitList(s *string, sep string) []string {
	if s == nil || *s == "" {
		return nil
	}
	return strings.Split(*s, sep)
}
