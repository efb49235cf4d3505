package store

// legacySellerChatID owns the listings that predate the admin flows.
const legacySellerChatID int64 = 100200300

// Defaults is the compiled-in fallback catalog: deep links that were
// handed out before the overlay file existed. Overlay entries override
// these per slug, and overlay tombstones hide them.
var Defaults = map[string]ProductRecord{
	"foto9063":     legacy("foto9063"),
	"foto1574":     legacy("foto1574"),
	"foto7391":     legacy("foto7391"),
	"car7419":      legacy("car7419"),
	"car5930":      legacy("car5930"),
	"car8167":      legacy("car8167"),
	"massage0681":  legacy("massage0681"),
	"yoga3851":     legacy("yoga3851"),
	"exchange4321": legacy("exchange4321"),
	"flowers3448":  legacy("flowers3448"),
	"tours4861":    legacy("tours4861"),
}

func legacy(name string) ProductRecord {
	return ProductRecord{
		ProductName:      name,
		SellerName:       "Seller",
		SellerChatID:     legacySellerChatID,
		SellerContactRaw: "100200300",
	}
}
