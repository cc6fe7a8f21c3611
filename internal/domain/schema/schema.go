// Package schema resolves a partner's raw column names to canonical
// semantic fields. Partners control their own file formats, so each engine
// profile supplies its own ordered alias tables; resolution picks the first
// alias present after a fuzzy normalization of both sides.
package schema

import "strings"

// Field is a canonical semantic concept resolved from raw column names.
type Field string

// Canonical fields known to the engines.
const (
	FieldPremiumAmount  Field = "premium_amount"
	FieldShareAmount    Field = "share_amount"
	FieldCoverageStart  Field = "coverage_start"
	FieldCoverageEnd    Field = "coverage_end"
	FieldMonth          Field = "month"
	FieldDate           Field = "date"
	FieldCallDate       Field = "call_date"
	FieldChannel        Field = "channel"
	FieldState          Field = "state"
	FieldPlanCategory   Field = "plan_category"
	FieldDeviceCategory Field = "device_plan_category"
	FieldProductCat     Field = "product_category"
	FieldBrand          Field = "brand"
	FieldClaimAmount    Field = "claim_amount"
	FieldDeductible     Field = "deductible"
	FieldCustomerPaid   Field = "customer_paid"
	FieldPartnerName    Field = "partner_name"
	FieldPolicyID       Field = "policy_id"
	FieldPlanDuration   Field = "plan_duration"
	FieldQuantity       Field = "quantity"
)

// AliasTable lists acceptable raw column names per canonical field,
// in resolution priority order.
type AliasTable map[Field][]string

// separator characters collapsed away during normalization.
const separators = "_ -/()"

// Normalize lower-cases a column name and strips whitespace, punctuation
// and separators so that "Plan_Category", "plan category" and
// "Plan Category " all compare equal.
func Normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if strings.ContainsRune(separators, r) || r == '\t' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Resolve returns the raw column matching field: the first alias from the
// table present among columns, compared in normalized form. Pure and total;
// a field with no matching alias resolves to ("", false), never an error.
func Resolve(columns []string, field Field, aliases AliasTable) (string, bool) {
	cands := aliases[field]
	if len(cands) == 0 {
		return "", false
	}
	normalized := make(map[string]string, len(columns))
	for _, c := range columns {
		key := Normalize(c)
		if _, ok := normalized[key]; !ok {
			normalized[key] = c
		}
	}
	for _, cand := range cands {
		if raw, ok := normalized[Normalize(cand)]; ok {
			return raw, true
		}
	}
	return "", false
}

// ResolveLiteral matches a single literal candidate list against columns,
// for ad-hoc lookups that do not go through a canonical field.
func ResolveLiteral(columns []string, candidates []string) (string, bool) {
	normalized := make(map[string]string, len(columns))
	for _, c := range columns {
		key := Normalize(c)
		if _, ok := normalized[key]; !ok {
			normalized[key] = c
		}
	}
	for _, cand := range candidates {
		if raw, ok := normalized[Normalize(cand)]; ok {
			return raw, true
		}
	}
	return "", false
}
