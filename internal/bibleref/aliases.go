package bibleref

import "regexp"

// defaultAliases maps lower-cased, dot-stripped book tokens to the canonical
// short form used by the modern lectionary. Keys cover the period
// abbreviations of the 1920s serial, the modern abbreviations, and the full
// Czech book names. Every canonical value is also a key of itself.
var defaultAliases = map[string]string{
	// Starý zákon
	"gn": "Gn", "gen": "Gn", "genesis": "Gn",
	"ex": "Ex", "exod": "Ex", "exodus": "Ex",
	"lv": "Lv", "lev": "Lv", "leviticus": "Lv",
	"nm": "Nm", "num": "Nm", "numeri": "Nm",
	"dt": "Dt", "deut": "Dt", "deuteronomium": "Dt",
	"mojž": "Mojž", "mojžíšova": "Mojž",
	"joz": "Joz", "jozue": "Joz",
	"sd": "Sd", "soudců": "Sd",
	"rt": "Rt", "rút": "Rt", "rut": "Rt",
	"sam": "Sam", "samuelova": "Sam",
	"král": "Král", "kr": "Král", "královská": "Král",
	"pa": "Pa", "par": "Pa", "letopisů": "Pa",
	"ezd": "Ezd", "ezdráš": "Ezd",
	"neh": "Neh", "nehemjáš": "Neh",
	"tob": "Tob", "tóbijáš": "Tob",
	"jdt": "Jdt", "júdit": "Jdt",
	"est": "Est", "ester": "Est",
	"job": "Job", "jób": "Job",
	"ž": "Ž", "žalm": "Ž", "žal": "Ž", "žalmy": "Ž",
	"př": "Př", "přísl": "Př", "přísloví": "Př",
	"kaz": "Kaz", "kazatel": "Kaz",
	"pís": "Pís", "píseň": "Pís",
	"mdr": "Mdr", "mudr": "Mdr", "moudrost": "Mdr",
	"sír": "Sír", "sir": "Sír", "sírachovec": "Sír",
	"iz": "Iz", "izaiáš": "Iz", "izajáš": "Iz",
	"jr": "Jr", "jer": "Jr", "jeremiáš": "Jr", "jeremjáš": "Jr",
	"pláč": "Pláč",
	"bar": "Bar", "báruk": "Bar",
	"ez": "Ez", "ezechiel": "Ez",
	"dan": "Dan", "daniel": "Dan",
	"oz": "Oz", "ozeáš": "Oz",
	"jl": "Jl", "joel": "Jl", "jóel": "Jl",
	"am": "Am", "ámos": "Am",
	"abd": "Abd", "abdijáš": "Abd",
	"jon": "Jon", "jonáš": "Jon",
	"mi": "Mi", "mich": "Mi", "micheáš": "Mi",
	"na": "Na", "nah": "Na", "nahum": "Na",
	"hab": "Hab", "abakuk": "Hab",
	"sof": "Sof", "sofonjáš": "Sof",
	"ag": "Ag", "ageus": "Ag",
	"za": "Za", "zach": "Za", "zacharjáš": "Za",
	"mal": "Mal", "malachiáš": "Mal",
	"mak": "Mak", "makabejská": "Mak",

	// Nový zákon
	"mt": "Mt", "mat": "Mt", "matouš": "Mt",
	"mk": "Mk", "mar": "Mk", "marek": "Mk",
	"lk": "Lk", "l": "Lk", "luk": "Lk", "lukáš": "Lk",
	"j": "J", "jan": "J",
	"sk": "Sk", "skutky": "Sk",
	"ř": "Ř", "řím": "Ř", "římanům": "Ř",
	"kor": "Kor", "korintským": "Kor",
	"gal": "Gal", "galatským": "Gal",
	"ef": "Ef", "efez": "Ef", "efezským": "Ef",
	"fp": "Fp", "fil": "Fp", "filip": "Fp", "filipským": "Fp",
	"kol": "Kol", "koloským": "Kol",
	"sol": "Sol", "tes": "Sol", "tesalonickým": "Sol",
	"tim": "Tim", "timoteovi": "Tim",
	"tt": "Tt", "tit": "Tt", "titovi": "Tt",
	"fm": "Fm", "filem": "Fm", "filemonovi": "Fm",
	"žd": "Žd", "žid": "Žd", "židům": "Žd",
	"jk": "Jk", "jak": "Jk", "jakub": "Jk",
	"pt": "Pt", "petr": "Pt",
	"jud": "Jud", "juda": "Jud",
	"zj": "Zj", "zjev": "Zj", "zjevení": "Zj",
}

// Correction rewrites a known OCR misreading at the start of a fragment.
type Correction struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// CompileCorrection builds a Correction from a regular expression source.
func CompileCorrection(pattern, replacement string) (Correction, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Correction{}, err
	}
	return Correction{Pattern: re, Replacement: replacement}, nil
}

// defaultCorrections are applied in order before any parsing.
var defaultCorrections = []Correction{
	{Pattern: regexp.MustCompile(`(?i)^1z\b`), Replacement: "Iz"},
	{Pattern: regexp.MustCompile(`(?i)^1an\b`), Replacement: "Jan"},
}

// defaultLiturgicalKeywords open a liturgical-calendar prefix inside a
// citation parenthetical, e.g. "Ned. I. postní:".
var defaultLiturgicalKeywords = []string{
	"Ned", "Neděle", "Sv[áa]tek", "Nanebevstoup", "Letnice",
	"Velikonoce", "Advent", "Vánoce", "Půst",
}

// DefaultAliases returns a copy of the built-in alias table.
func DefaultAliases() map[string]string {
	out := make(map[string]string, len(defaultAliases))
	for k, v := range defaultAliases {
		out[k] = v
	}
	return out
}
