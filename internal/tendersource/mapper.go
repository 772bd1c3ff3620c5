package tendersource

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/tenderspro/backend/internal/model"
	"github.com/tenderspro/backend/pkg/datetime"
)

// Fallback values for records the source publishes incomplete.
const (
	defaultTitle  = "Untitled Tender"
	defaultWilaya = "Unknown"
)

// MapTender converts a raw upstream record into the canonical model.
// It is pure: the same input always produces the same output, and
// missing fields fall back to defaults rather than failing. Unparsable
// dates and prices are dropped, never guessed.
func MapTender(src *Tender, staticOrigin string) model.Tender {
	t := model.Tender{
		TenderID: strconv.FormatInt(src.ID, 10),
		Title:    defaultTitle,
		Wilaya:   defaultWilaya,
	}

	if s := strings.TrimSpace(src.Title); s != "" {
		t.Title = s
	}

	if src.RegionVerbose != nil && src.RegionVerbose.Name != "" {
		t.Wilaya = src.RegionVerbose.Name
		t.Region = strPtr(src.RegionVerbose.Name)
	}

	if len(src.CategoriesVerbose) > 0 && src.CategoriesVerbose[0].Name != "" {
		t.Category = strPtr(src.CategoriesVerbose[0].Name)
	}

	if d, err := datetime.ParseDate(src.PublishingDate); err == nil {
		t.PublicationDate = &d
	}
	if d, err := datetime.ParseDate(src.ExpirationDate); err == nil {
		t.Deadline = &d
	}

	if src.Type != "" {
		t.Type = strPtr(src.Type)
	}
	if src.CCAddress != "" {
		t.WithdrawalAddress = strPtr(src.CCAddress)
	}

	if src.CCPrice != "" {
		if price, err := decimal.NewFromString(src.CCPrice.String()); err == nil {
			t.SpecificationsPrice = &price
		}
	}

	if len(src.FilesVerbose) > 0 && src.FilesVerbose[0] != "" {
		path := src.FilesVerbose[0]
		t.Link = strPtr(path)
		t.OriginalImageURL = strPtr(path)
		t.ImageURL = strPtr(imageURL(staticOrigin, path))
	}

	mergeDetail(&t, src)

	return t
}

// mergeDetail fills the fields that only the per-record payload
// carries. Harmless on listing records, where they are empty.
func mergeDetail(t *model.Tender, src *Tender) {
	if src.TenderNumber != "" {
		t.TenderNumber = strPtr(src.TenderNumber)
	}
	if src.QualificationRequired != "" {
		t.QualificationRequired = strPtr(src.QualificationRequired)
	}
	if src.QualificationDetails != "" {
		t.QualificationDetails = strPtr(src.QualificationDetails)
	}
	if desc := stripMarkup(src.Description); desc != "" {
		t.ProjectDescription = strPtr(desc)
	}
	if src.Organization != nil {
		if src.Organization.Name != "" {
			t.OrganizationName = strPtr(src.Organization.Name)
		}
		if src.Organization.Address != "" {
			t.OrganizationAddress = strPtr(src.Organization.Address)
		}
	}
	if src.Status != "" {
		t.TenderStatus = strPtr(src.Status)
	}
}

// stripMarkup flattens the rich-text description the source publishes
// into plain text. Records that are already plain pass through.
func stripMarkup(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}

// imageURL resolves a source-relative file path against the static
// origin. Absolute URLs pass through untouched.
func imageURL(staticOrigin, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimSuffix(staticOrigin, "/") + "/" + strings.TrimPrefix(path, "/")
}

func strPtr(s string) *string { return &s }
