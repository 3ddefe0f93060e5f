package form990

import (
	"errors"
	"fmt"
	"strings"
)

// Section identifies one of the three field groups of an extraction result
type Section string

const (
	Page1Summary  Section = "page1"
	RevenueDetail Section = "part_viii"
	ExpenseDetail Section = "part_ix"
)

// ErrUnknownSection is returned when a section name cannot be resolved
var ErrUnknownSection = errors.New("unknown section")

var sectionOrder = []Section{Page1Summary, RevenueDetail, ExpenseDetail}

var sectionTitles = map[Section]string{
	Page1Summary:  "Page 1 Summary",
	RevenueDetail: "Part VIII - Revenue",
	ExpenseDetail: "Part IX - Expenses",
}

// Sections returns all sections in canonical order
func Sections() []Section {
	out := make([]Section, len(sectionOrder))
	copy(out, sectionOrder)
	return out
}

// Title returns the display name of the section
func (s Section) Title() string {
	if t, ok := sectionTitles[s]; ok {
		return t
	}
	return string(s)
}

// Valid reports whether s is one of the known sections
func (s Section) Valid() bool {
	_, ok := sectionTitles[s]
	return ok
}

// ParseSection resolves a wire key ("part_viii"), a display name
// ("Part VIII - Revenue") or a Go-style name ("RevenueDetail").
func ParseSection(name string) (Section, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for _, s := range sectionOrder {
		switch n {
		case string(s), strings.ToLower(s.Title()):
			return s, nil
		}
	}
	switch n {
	case "page1summary", "summary", "page 1":
		return Page1Summary, nil
	case "revenuedetail", "revenue", "part viii":
		return RevenueDetail, nil
	case "expensedetail", "expenses", "expense", "part ix":
		return ExpenseDetail, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSection, name)
}

// FieldDefinition names one datum of a section
type FieldDefinition struct {
	Key   string
	Label string
}

// SectionField is a field definition qualified by its section. The pair is the
// global identity of a field: the same key may appear in more than one section.
type SectionField struct {
	Section Section
	FieldDefinition
}

// ID returns the section-qualified key, e.g. "part_viii.total_revenue"
func (f SectionField) ID() string {
	return string(f.Section) + "." + f.Key
}

var page1Fields = []FieldDefinition{
	{Key: "employer_identification_number", Label: "Item D: EIN"},
	{Key: "gross_receipts", Label: "Item G: Gross Receipts"},
	{Key: "total_contributions", Label: "Row 8: Total Contributions"},
	{Key: "total_revenue", Label: "Row 12: Total Revenue"},
	{Key: "grants_and_similar_amounts_paid", Label: "Row 13: Grants Paid"},
	{Key: "salaries_compensation_benefits", Label: "Row 15: Salaries & Benefits"},
	{Key: "professional_fundraising_fees", Label: "Row 16a: Fundraising Fees"},
	{Key: "total_fundraising_expenses", Label: "Row 16b: Fundraising Expenses"},
	{Key: "total_assets", Label: "Row 20: Total Assets"},
	{Key: "total_liabilities", Label: "Row 21: Total Liabilities"},
	{Key: "net_assets_or_fund_balances", Label: "Row 22: Net Assets"},
}

var partVIIIFields = []FieldDefinition{
	{Key: "federated_campaigns", Label: "Row 1a: Federated Campaigns"},
	{Key: "membership_dues", Label: "Row 1b: Membership Dues"},
	{Key: "fundraising_events", Label: "Row 1c: Fundraising Events"},
	{Key: "related_organizations", Label: "Row 1d: Related Organizations"},
	{Key: "government_grants", Label: "Row 1e: Government Grants"},
	{Key: "all_other_contributions", Label: "Row 1f: Other Contributions"},
	{Key: "noncash_contributions", Label: "Row 1g: Noncash Contributions"},
	{Key: "contributions_total", Label: "Row 1h: Contributions Total"},
	{Key: "program_service_revenue_total", Label: "Row 2g: Program Service Revenue"},
	{Key: "investment_income", Label: "Row 3: Investment Income"},
	{Key: "tax_exempt_bond_income", Label: "Row 4: Tax Exempt Bond Income"},
	{Key: "royalties", Label: "Row 5: Royalties"},
	{Key: "gross_rents_real", Label: "Row 6a(i): Gross Rents (Real)"},
	{Key: "gross_rents_personal", Label: "Row 6a(ii): Gross Rents (Personal)"},
	{Key: "rental_expenses_real", Label: "Row 6b(i): Rental Expenses (Real)"},
	{Key: "rental_expenses_personal", Label: "Row 6b(ii): Rental Expenses (Personal)"},
	{Key: "rental_income_real", Label: "Row 6c(i): Rental Income (Real)"},
	{Key: "rental_income_personal", Label: "Row 6c(ii): Rental Income (Personal)"},
	{Key: "net_rental_income", Label: "Row 6d: Net Rental Income"},
	{Key: "gross_sales_securities", Label: "Row 7a(i): Gross Sales (Securities)"},
	{Key: "gross_sales_other", Label: "Row 7a(ii): Gross Sales (Other)"},
	{Key: "cost_basis_securities", Label: "Row 7b(i): Cost Basis (Securities)"},
	{Key: "cost_basis_other", Label: "Row 7b(ii): Cost Basis (Other)"},
	{Key: "gain_loss_securities", Label: "Row 7c(i): Gain/Loss (Securities)"},
	{Key: "gain_loss_other", Label: "Row 7c(ii): Gain/Loss (Other)"},
	{Key: "net_gain_loss", Label: "Row 7d: Net Gain/Loss"},
	{Key: "fundraising_gross_income", Label: "Row 8a: Fundraising Gross Income"},
	{Key: "fundraising_8a_other", Label: "Row 8a(ii): Fundraising Other"},
	{Key: "fundraising_direct_expenses", Label: "Row 8b: Fundraising Expenses"},
	{Key: "fundraising_net_income", Label: "Row 8c: Fundraising Net Income"},
	{Key: "gaming_gross_income", Label: "Row 9a: Gaming Gross Income"},
	{Key: "gaming_direct_expenses", Label: "Row 9b: Gaming Expenses"},
	{Key: "gaming_net_income", Label: "Row 9c: Gaming Net Income"},
	{Key: "inventory_gross_sales", Label: "Row 10a: Inventory Gross Sales"},
	{Key: "inventory_cost_of_goods", Label: "Row 10b: Cost of Goods"},
	{Key: "inventory_net_income", Label: "Row 10c: Inventory Net Income"},
	{Key: "other_revenue_total", Label: "Row 11e: Other Revenue Total"},
	{Key: "total_revenue", Label: "Row 12: Total Revenue"},
}

var partIXFields = []FieldDefinition{
	{Key: "grants_domestic_organizations", Label: "Row 1: Grants to Domestic Orgs"},
	{Key: "professional_fundraising_services", Label: "Row 11e: Professional Fundraising"},
	{Key: "affiliate_payments", Label: "Row 21: Payments to Affiliates"},
	{Key: "total_functional_expenses_a", Label: "Row 25(A): Total Expenses"},
	{Key: "total_functional_expenses_b", Label: "Row 25(B): Program Service"},
	{Key: "total_functional_expenses_c", Label: "Row 25(C): Management & General"},
	{Key: "total_functional_expenses_d", Label: "Row 25(D): Fundraising"},
	{Key: "joint_costs", Label: "Row 26: Joint Costs"},
}

var schema = map[Section][]FieldDefinition{
	Page1Summary:  page1Fields,
	RevenueDetail: partVIIIFields,
	ExpenseDetail: partIXFields,
}

func init() {
	if err := ValidateSchema(); err != nil {
		panic(err)
	}
}

// Fields returns the ordered field definitions of a section. Unknown sections
// have no fields.
func Fields(s Section) []FieldDefinition {
	defs := schema[s]
	out := make([]FieldDefinition, len(defs))
	copy(out, defs)
	return out
}

// AllFields returns every field of every section, in canonical section order.
// This is the column order of the tabular exports.
func AllFields() []SectionField {
	out := make([]SectionField, 0, FieldCount())
	for _, s := range sectionOrder {
		for _, f := range schema[s] {
			out = append(out, SectionField{Section: s, FieldDefinition: f})
		}
	}
	return out
}

// FieldCount returns the number of field definitions across all sections
func FieldCount() int {
	n := 0
	for _, s := range sectionOrder {
		n += len(schema[s])
	}
	return n
}

// ValidateSchema checks that keys are non-empty and unique within their section
// and that section-qualified ids are unique across the whole registry.
func ValidateSchema() error {
	ids := make(map[string]struct{})
	for _, s := range sectionOrder {
		keys := make(map[string]struct{})
		for i, f := range schema[s] {
			if f.Key == "" || f.Label == "" {
				return fmt.Errorf("section %s: field %d has an empty key or label", s, i)
			}
			if _, dup := keys[f.Key]; dup {
				return fmt.Errorf("section %s: duplicate key %q", s, f.Key)
			}
			keys[f.Key] = struct{}{}

			id := SectionField{Section: s, FieldDefinition: f}.ID()
			if _, dup := ids[id]; dup {
				return fmt.Errorf("duplicate field id %q", id)
			}
			ids[id] = struct{}{}
		}
	}
	return nil
}
