package payments

// Package is a purchasable lead bundle. Prices are in paise.
type Package struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Leads     int    `json:"leads"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	IsPopular bool   `json:"is_popular"`
}

const Currency = "INR"

var Packages = []Package{
	{ID: "basic", Name: "Basic", Leads: 100, Amount: 9900, Currency: Currency},
	{ID: "pro", Name: "Pro", Leads: 500, Amount: 39900, Currency: Currency, IsPopular: true},
	{ID: "enterprise", Name: "Enterprise", Leads: 1000, Amount: 69900, Currency: Currency},
}

func LookupPackage(id string) (Package, bool) {
	for _, p := range Packages {
		if p.ID == id {
			return p, true
		}
	}
	return Package{}, false
}
