// Package domain guesses the business domain a schema models from the words
// used in its table and column names.
package domain

import (
	"regexp"
	"strings"

	"github.com/tordrt/schemagraph/internal/model"
)

// General is reported when no domain keyword matches.
const General = "General"

type profile struct {
	name     string
	keywords []string
	weight   float64
}

// profiles are checked in order; on a tie the earlier profile wins.
var profiles = []profile{
	{name: "E-commerce", weight: 1, keywords: []string{
		"customer", "product", "order", "cart", "payment", "shipment", "order_item",
		"sku", "sales", "invoice", "address", "firstname", "lastname", "email",
		"price", "quantity", "discount", "coupon", "tax", "checkout", "tracking",
		"merchant", "catalog", "return", "refund", "loyalty", "subscription",
	}},
	{name: "Healthcare", weight: 1, keywords: []string{
		"patient", "doctor", "appointment", "prescription", "diagnosis", "medical",
		"health", "treatment", "medication", "hospital", "clinic", "first_name",
		"last_name", "dob", "nurse", "insurance", "surgery", "emergency", "allergy",
		"pharmacy", "symptom", "vaccine", "procedure", "test_result", "lab", "record",
	}},
	{name: "Education", weight: 1, keywords: []string{
		"student", "course", "enrollment", "grade", "instructor", "class",
		"school", "university", "teacher", "first_name", "last_name", "subject",
		"curriculum", "degree", "assignment", "exam", "quiz", "attendance",
		"semester", "gpa", "timetable", "syllabus", "department", "certificate",
	}},
	{name: "Finance", weight: 1, keywords: []string{
		"account", "transaction", "balance", "loan", "investment", "finance",
		"customer", "branch", "credit", "debit", "first_name", "last_name",
		"currency", "interest_rate", "mortgage", "payment", "tax", "stock",
		"equity", "dividend", "expense", "ledger", "audit", "insurance", "budget",
	}},
	{name: "Supply Chain", weight: 1, keywords: []string{
		"supplier", "inventory", "shipment", "warehouse", "logistics", "supply",
		"demand", "product", "order", "sku", "item", "stock", "procurement",
		"distribution", "transport", "retail", "wholesale", "supply_chain",
		"forecasting", "sourcing", "logistic_cost", "delivery", "tracking", "replenishment",
	}},
	{name: "Social Media", weight: 1, keywords: []string{
		"user", "post", "comment", "like", "friend", "message", "social",
		"profile", "username", "content", "follow", "first_name", "last_name",
		"share", "media", "video", "image", "story", "reaction", "hashtag",
		"follower", "influencer", "trend", "advertisement", "engagement", "community",
	}},
	{name: "Retail", weight: 1, keywords: []string{
		"store", "shop", "mall", "retailer", "barcode", "checkout",
		"point_of_sale", "purchase", "customer", "product", "sales", "invoice",
		"promotion", "discount", "return_policy", "membership", "shopping", "brand",
	}},
	{name: "Real Estate", weight: 1, keywords: []string{
		"property", "listing", "agent", "broker", "mortgage", "valuation",
		"rental", "lease", "tenant", "landlord", "appraisal", "commercial",
		"residential", "contract", "commission", "real_estate", "zoning", "inspection",
	}},
	{name: "Cybersecurity", weight: 1, keywords: []string{
		"encryption", "firewall", "threat", "attack", "intrusion", "malware",
		"hacker", "breach", "incident", "password", "authentication", "access_control",
		"data_leak", "phishing", "network_security", "compliance", "ransomware", "risk",
	}},
	{name: "Telecommunications", weight: 1, keywords: []string{
		"network", "signal", "bandwidth", "cellular", "telecom", "carrier",
		"router", "broadband", "fiber", "5g", "4g", "isp", "mobile", "sms",
		"voice_call", "data_usage", "coverage", "roaming", "satellite", "modem",
	}},
}

var patterns = compilePatterns()

func compilePatterns() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp)
	for _, p := range profiles {
		for _, kw := range p.keywords {
			if _, ok := out[kw]; !ok {
				out[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
			}
		}
	}
	return out
}

// Scores returns the score of every domain for the schema.
func Scores(s *model.Schema) map[string]float64 {
	names := vocabulary(s)
	scores := make(map[string]float64, len(profiles))
	for _, p := range profiles {
		var score float64
		for _, kw := range p.keywords {
			re := patterns[kw]
			for _, name := range names {
				if re.MatchString(name) {
					score += p.weight
				}
			}
		}
		scores[p.name] = score
	}
	return scores
}

// Detect returns the highest-scoring domain, or General when nothing matches.
func Detect(s *model.Schema) string {
	scores := Scores(s)
	best, bestScore := General, 0.0
	for _, p := range profiles {
		if scores[p.name] > bestScore {
			best, bestScore = p.name, scores[p.name]
		}
	}
	return best
}

func vocabulary(s *model.Schema) []string {
	if s == nil {
		return nil
	}
	var names []string
	for _, t := range s.Tables {
		names = append(names, strings.ToLower(t.Name))
		for _, c := range t.Columns {
			names = append(names, strings.ToLower(c.Name))
		}
	}
	return names
}
