package service

// stationCorrections maps historical station names used by the bulk feed to
// text that matches exactly one current supercharger.
var stationCorrections = map[string]string{
	"Hiltpoltstein":             "poltstein",
	"Hamburg SEC":               "Hamburg-Essener Straße",
	"Aix en Provence":           "Aix-en-Provence",
	"Mosjoen":                   "Mosjøen",
	"Orange":                    "Orange Supercharger",
	"Anif":                      "Salzburg",
	"Modena":                    "Modena Supercharger",
	"Stjördal":                  "stjordalsupercharger",
	"Service Center Schönefeld": "Berlin-Schönefeld",
	"Berlin Sec":                "Berlin-Schönefeld",
	"Gol":                       "golsupercharger",
	"Vystrkov":                  "Humpolec",
	"Eselsfürth":                "Kaiserslautern",
	"Carpiano":                  "Melegnano",
	"Rivera":                    "Monte Ceneri",
	"Stockholm Infracity":       "Sollentuna",
	"Palmanova":                 "Palmanova Supercharger 2",
	"Hamburg":                   "Hamburg Supercharger",
}

// CorrectStationName applies the correction table to a feed station name.
func CorrectStationName(name string) string {
	if corrected, ok := stationCorrections[name]; ok {
		return corrected
	}
	return name
}
