package usecase

import "strings"

type storeName struct {
	domain string
	name   string
}

// knownStores maps storefront domains to display names. Matching is substring containment
// on the hostname and the first hit wins, so more specific domains come first.
var knownStores = []storeName{
	{"elkjop.no", "Elkjøp"},
	{"komplett.no", "Komplett"},
	{"power.no", "POWER"},
	{"netonnet.no", "NetOnNet"},
	{"proshop.no", "Proshop"},
	{"xxl.no", "XXL"},
	{"gsport.no", "G-Sport"},
	{"intersport.no", "Intersport"},
	{"zalando.no", "Zalando"},
	{"boozt.com", "Boozt"},
	{"hm.com", "H&M"},
	{"clasohlson.com", "Clas Ohlson"},
	{"jula.no", "Jula"},
	{"biltema.no", "Biltema"},
	{"jernia.no", "Jernia"},
	{"ikea.com", "IKEA"},
	{"kitchn.no", "Kitchn"},
	{"tilbords.no", "Tilbords"},
	{"cdon.no", "CDON"},
	{"adlibris.com", "Adlibris"},
	{"norli.no", "Norli"},
	{"outland.no", "Outland"},
	{"platekompaniet.no", "Platekompaniet"},
	{"lekia.no", "Lekia"},
	{"apotek1.no", "Apotek 1"},
	{"vitusapotek.no", "Vitusapotek"},
	{"amazon.no", "Amazon"},
	{"amazon.com", "Amazon"},
	{"amazon.de", "Amazon"},
	{"amazon.co.uk", "Amazon"},
	{"ebay.com", "eBay"},
	{"etsy.com", "Etsy"},
	{"aliexpress.com", "AliExpress"},
}

// ResolveStoreName returns the display name for host, or host without a leading "www."
func ResolveStoreName(host string) string {
	host = strings.ToLower(host)
	for _, store := range knownStores {
		if strings.Contains(host, store.domain) {
			return store.name
		}
	}
	return strings.TrimPrefix(host, "www.")
}
