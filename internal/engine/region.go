package engine

// stateRegionCodes maps holiday-calendar state names to the region codes used by holiday feeds.
var stateRegionCodes = map[string]string{
	"Baden-Wuerttemberg":     "DE-BW",
	"Bayern":                 "DE-BY",
	"Berlin":                 "DE-BE",
	"Brandenburg":            "DE-BB",
	"Bremen":                 "DE-HB",
	"Hamburg":                "DE-HH",
	"Hessen":                 "DE-HE",
	"Mecklenburg-Vorpommern": "DE-MV",
	"Niedersachsen":          "DE-NI",
	"NRW":                    "DE-NW",
	"Rheinland-Pfalz":        "DE-RP",
	"Saarland":               "DE-SL",
	"Sachsen":                "DE-SN",
	"Sachsen-Anhalt":         "DE-ST",
	"Schleswig-Holstein":     "DE-SH",
	"Thueringen":             "DE-TH",
}

// RegionCode returns the region code for a holiday-calendar state, or "" when unmapped.
func RegionCode(state string) string {
	return stateRegionCodes[state]
}
