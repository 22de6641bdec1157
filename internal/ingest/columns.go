package ingest

import (
	"strings"

	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

type field int

const (
	fieldApolloID field = iota + 1
	fieldName
	fieldWebsite
	fieldCity
	fieldState
	fieldCountry
	fieldFullAddress
	fieldPhoneNumber
	fieldGBPLink
	fieldGBPReviewCount
	fieldGBPCategory
	fieldCounty
	fieldEstimatedEmployees
	fieldEmails
)

// headerAliases maps a normalized header to the candidate field it fills.
var headerAliases = map[string]field{
	"apollo_id":               fieldApolloID,
	"apolloid":                fieldApolloID,
	"id":                      fieldApolloID,
	"name":                    fieldName,
	"company":                 fieldName,
	"company_name":            fieldName,
	"firm":                    fieldName,
	"firm_name":               fieldName,
	"website":                 fieldWebsite,
	"website_url":             fieldWebsite,
	"company_website":         fieldWebsite,
	"url":                     fieldWebsite,
	"domain":                  fieldWebsite,
	"city":                    fieldCity,
	"state":                   fieldState,
	"country":                 fieldCountry,
	"full_address":            fieldFullAddress,
	"address":                 fieldFullAddress,
	"phone_number":            fieldPhoneNumber,
	"phone":                   fieldPhoneNumber,
	"company_phone":           fieldPhoneNumber,
	"gbp_link":                fieldGBPLink,
	"google_business_profile": fieldGBPLink,
	"gbp_review_count":        fieldGBPReviewCount,
	"review_count":            fieldGBPReviewCount,
	"reviews":                 fieldGBPReviewCount,
	"gbp_category":            fieldGBPCategory,
	"category":                fieldGBPCategory,
	"county":                  fieldCounty,
	"estimated_num_employees": fieldEstimatedEmployees,
	"employees":               fieldEstimatedEmployees,
	"num_employees":           fieldEstimatedEmployees,
	"emails":                  fieldEmails,
	"email":                   fieldEmails,
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.NewReplacer(" ", "_", "-", "_", "#", "num").Replace(h)
	return strings.Trim(h, "_")
}

// columnMap resolves each header cell to a field. Unknown headers map to zero;
// the first column claiming a field wins.
func columnMap(header []string) []field {
	cols := make([]field, len(header))
	seen := make(map[field]bool)
	for i, h := range header {
		f := headerAliases[normalizeHeader(h)]
		if f == 0 || seen[f] {
			continue
		}
		seen[f] = true
		cols[i] = f
	}
	return cols
}

func (f field) set(c *lead.Candidate, v string) {
	switch f {
	case fieldApolloID:
		c.ApolloID = v
	case fieldName:
		c.Name = v
	case fieldWebsite:
		c.Website = v
	case fieldCity:
		c.City = v
	case fieldState:
		c.State = v
	case fieldCountry:
		c.Country = v
	case fieldFullAddress:
		c.FullAddress = v
	case fieldPhoneNumber:
		c.PhoneNumber = v
	case fieldGBPLink:
		c.GBPLink = v
	case fieldGBPReviewCount:
		c.GBPReviewCount = v
	case fieldGBPCategory:
		c.GBPCategory = v
	case fieldCounty:
		c.County = v
	case fieldEstimatedEmployees:
		c.EstimatedNumEmployees = v
	case fieldEmails:
		c.Emails = v
	}
}
