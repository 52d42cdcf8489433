package services

import "strings"

// keywordEntry maps a default category name to merchant and description
// keywords. The table is ordered; the first entry whose keyword appears in
// the search text wins.
type keywordEntry struct {
	category string
	keywords []string
}

// incomeCategoryName is the seeded income category keyword matching targets
// for inflow transactions.
const incomeCategoryName = "Income"

var keywordTable = []keywordEntry{
	{"Food & Dining", []string{
		"restaurant", "cafe", "coffee", "pizza", "burger", "doordash", "ubereats",
		"grubhub", "starbucks", "mcdonald", "chipotle", "subway", "dunkin", "taco",
		"wendys", "chick-fil-a", "panera", "dominos", "instacart", "postmates",
	}},
	{"Transportation", []string{
		"uber", "lyft", "gas", "fuel", "parking", "transit", "metro", "shell",
		"chevron", "exxon", "bp", "mobil", "speedway", "wawa", "sunoco",
		"car wash", "toll", "dmv", "parking meter",
	}},
	{"Shopping", []string{
		"amazon", "target", "walmart", "costco", "ebay", "etsy", "bestbuy",
		"home depot", "lowes", "ikea", "macys", "nordstrom", "kohls", "tj maxx",
		"marshalls", "ross", "old navy", "gap", "zara", "h&m",
	}},
	{"Entertainment", []string{
		"netflix", "spotify", "hulu", "disney", "hbo", "movie", "theater",
		"concert", "ticketmaster", "amc", "regal", "apple music", "youtube",
		"playstation", "xbox", "nintendo", "steam", "twitch",
	}},
	{"Utilities", []string{
		"electric", "water", "internet", "phone", "verizon", "att", "comcast",
		"xfinity", "spectrum", "t-mobile", "sprint", "pge", "edison", "gas bill",
	}},
	{"Healthcare", []string{
		"pharmacy", "cvs", "walgreens", "doctor", "hospital", "medical", "dental",
		"optometrist", "urgent care", "clinic", "rite aid", "prescription",
		"health insurance", "copay",
	}},
	{"Subscriptions", []string{
		"subscription", "membership", "annual", "monthly fee", "patreon",
		"substack", "medium", "linkedin premium", "dropbox", "icloud",
		"google storage", "adobe",
	}},
	{"Housing", []string{
		"rent", "mortgage", "hoa", "property tax", "home insurance",
		"renters insurance", "apartment", "landlord",
	}},
	{"Personal Care", []string{
		"salon", "barber", "spa", "nail", "haircut", "massage", "gym",
		"fitness", "planet fitness", "equinox", "sephora", "ulta",
	}},
	{"Education", []string{
		"tuition", "school", "university", "college", "textbook", "udemy",
		"coursera", "skillshare", "masterclass", "student loan",
	}},
	{incomeCategoryName, []string{
		"payroll", "direct deposit", "salary", "paycheck", "wages",
		"dividend", "interest", "refund", "reimbursement", "venmo", "zelle",
	}},
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// keywordCategory returns the name of the first category whose keywords
// appear in the merchant or description text. Income keywords are consulted
// only for inflows; the expense entries apply to either sign, mirroring how
// a refund at a known merchant still belongs to that merchant's category.
func keywordCategory(merchant, description string, inflow bool) (string, bool) {
	searchText := strings.ToLower(merchant) + " " + strings.ToLower(description)

	if inflow {
		for _, e := range keywordTable {
			if e.category == incomeCategoryName && containsAny(searchText, e.keywords) {
				return incomeCategoryName, true
			}
		}
	}
	for _, e := range keywordTable {
		if e.category == incomeCategoryName {
			continue
		}
		if containsAny(searchText, e.keywords) {
			return e.category, true
		}
	}
	return "", false
}
