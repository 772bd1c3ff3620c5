package tendersource

import "encoding/json"

// NamedRef is how the upstream API nests lookup values.
type NamedRef struct {
	Name string `json:"name"`
}

// Organization is the announcing body as returned by the detail payload.
type Organization struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Tender is the raw upstream record. Listing pages carry most fields;
// a handful (tender number, qualifications, description) only appear
// when the record is fetched individually.
type Tender struct {
	ID                    int64       `json:"id"`
	Title                 string      `json:"title"`
	RegionVerbose         *NamedRef   `json:"region_verbose"`
	CategoriesVerbose     []NamedRef  `json:"categories_verbose"`
	PublishingDate        string      `json:"publishing_date"`
	ExpirationDate        string      `json:"expiration_date"`
	Type                  string      `json:"type"`
	CCPrice               json.Number `json:"cc_price"`
	CCAddress             string      `json:"cc_address"`
	FilesVerbose          []string    `json:"files_verbose"`
	TenderNumber          string      `json:"tender_number"`
	QualificationRequired string      `json:"qualification_required"`
	QualificationDetails  string      `json:"qualification_details"`
	Description           string      `json:"description"`
	Organization          *Organization `json:"organization"`
	Status                string      `json:"status"`
}

// Page is one listing page. Count is the total record count across all
// pages; Next is nil on the last page.
type Page struct {
	Count    int      `json:"count"`
	Next     *string  `json:"next"`
	Previous *string  `json:"previous"`
	Results  []Tender `json:"results"`
}

// HasMore reports whether another page follows this one.
func (p *Page) HasMore() bool {
	return p.Next != nil && *p.Next != ""
}
