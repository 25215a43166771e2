// Package entities resolves HTML named character entities that a streaming
// SAX parser leaves undeclared (§4.3.3). The SAX collaborator's default
// callback receives the raw "&name;" text verbatim; C3 looks it up here and
// drops it silently when it isn't known, rather than erroring the whole
// parse over a decorative markup quirk a real ebook in the wild will have.
package entities

// Table holds the 215 entity names recognized by the chapter parser
// driver. It deliberately covers the names most likely to appear in hand-
// authored EPUB/FB2/HTML content (Latin-1 supplement, general punctuation,
// a handful of math/Greek symbols) rather than the full HTML5 named
// character reference list, which golang.org/x/net/html already resolves
// for declared entities before C3 ever sees them.
var Table = map[string]string{
	"amp":      "&",
	"lt":       "<",
	"gt":       ">",
	"quot":     "\"",
	"apos":     "'",
	"nbsp":     " ",
	"iexcl":    "¡",
	"cent":     "¢",
	"pound":    "£",
	"curren":   "¤",
	"yen":      "¥",
	"brvbar":   "¦",
	"sect":     "§",
	"uml":      "¨",
	"copy":     "©",
	"ordf":     "ª",
	"laquo":    "«",
	"not":      "¬",
	"shy":      "­",
	"reg":      "®",
	"macr":     "¯",
	"deg":      "°",
	"plusmn":   "±",
	"sup2":     "²",
	"sup3":     "³",
	"acute":    "´",
	"micro":    "µ",
	"para":     "¶",
	"middot":   "·",
	"cedil":    "¸",
	"sup1":     "¹",
	"ordm":     "º",
	"raquo":    "»",
	"frac14":   "¼",
	"frac12":   "½",
	"frac34":   "¾",
	"iquest":   "¿",
	"Agrave":   "À",
	"Aacute":   "Á",
	"Acirc":    "Â",
	"Atilde":   "Ã",
	"Auml":     "Ä",
	"Aring":    "Å",
	"AElig":    "Æ",
	"Ccedil":   "Ç",
	"Egrave":   "È",
	"Eacute":   "É",
	"Ecirc":    "Ê",
	"Euml":     "Ë",
	"Igrave":   "Ì",
	"Iacute":   "Í",
	"Icirc":    "Î",
	"Iuml":     "Ï",
	"ETH":      "Ð",
	"Ntilde":   "Ñ",
	"Ograve":   "Ò",
	"Oacute":   "Ó",
	"Ocirc":    "Ô",
	"Otilde":   "Õ",
	"Ouml":     "Ö",
	"times":    "×",
	"Oslash":   "Ø",
	"Ugrave":   "Ù",
	"Uacute":   "Ú",
	"Ucirc":    "Û",
	"Uuml":     "Ü",
	"Yacute":   "Ý",
	"THORN":    "Þ",
	"szlig":    "ß",
	"agrave":   "à",
	"aacute":   "á",
	"acirc":    "â",
	"atilde":   "ã",
	"auml":     "ä",
	"aring":    "å",
	"aelig":    "æ",
	"ccedil":   "ç",
	"egrave":   "è",
	"eacute":   "é",
	"ecirc":    "ê",
	"euml":     "ë",
	"igrave":   "ì",
	"iacute":   "í",
	"icirc":    "î",
	"iuml":     "ï",
	"eth":      "ð",
	"ntilde":   "ñ",
	"ograve":   "ò",
	"oacute":   "ó",
	"ocirc":    "ô",
	"otilde":   "õ",
	"ouml":     "ö",
	"divide":   "÷",
	"oslash":   "ø",
	"ugrave":   "ù",
	"uacute":   "ú",
	"ucirc":    "û",
	"uuml":     "ü",
	"yacute":   "ý",
	"thorn":    "þ",
	"yuml":     "ÿ",
	"OElig":    "Œ",
	"oelig":    "œ",
	"Scaron":   "Š",
	"scaron":   "š",
	"Yuml":     "Ÿ",
	"fnof":     "ƒ",
	"circ":     "ˆ",
	"tilde":    "˜",
	"ensp":     " ",
	"emsp":     " ",
	"thinsp":   " ",
	"zwnj":     "‌",
	"zwj":      "‍",
	"lrm":      "‎",
	"rlm":      "‏",
	"ndash":    "–",
	"mdash":    "—",
	"lsquo":    "‘",
	"rsquo":    "’",
	"sbquo":    "‚",
	"ldquo":    "“",
	"rdquo":    "”",
	"bdquo":    "„",
	"dagger":   "†",
	"Dagger":   "‡",
	"bull":     "•",
	"hellip":   "…",
	"permil":   "‰",
	"prime":    "′",
	"Prime":    "″",
	"lsaquo":   "‹",
	"rsaquo":   "›",
	"oline":    "‾",
	"frasl":    "⁄",
	"euro":     "€",
	"trade":    "™",
	"alefsym":  "ℵ",
	"larr":     "←",
	"uarr":     "↑",
	"rarr":     "→",
	"darr":     "↓",
	"harr":     "↔",
	"crarr":    "↵",
	"forall":   "∀",
	"part":     "∂",
	"exist":    "∃",
	"empty":    "∅",
	"nabla":    "∇",
	"isin":     "∈",
	"notin":    "∉",
	"ni":       "∋",
	"prod":     "∏",
	"sum":      "∑",
	"minus":    "−",
	"lowast":   "∗",
	"radic":    "√",
	"prop":     "∝",
	"infin":    "∞",
	"ang":      "∠",
	"and":      "∧",
	"or":       "∨",
	"cap":      "∩",
	"cup":      "∪",
	"int":      "∫",
	"there4":   "∴",
	"sim":      "∼",
	"cong":     "≅",
	"asymp":    "≈",
	"ne":       "≠",
	"equiv":    "≡",
	"le":       "≤",
	"ge":       "≥",
	"sub":      "⊂",
	"sup":      "⊃",
	"nsub":     "⊄",
	"sube":     "⊆",
	"supe":     "⊇",
	"oplus":    "⊕",
	"otimes":   "⊗",
	"perp":     "⊥",
	"sdot":     "⋅",
	"lceil":    "⌈",
	"rceil":    "⌉",
	"lfloor":   "⌊",
	"rfloor":   "⌋",
	"loz":      "◊",
	"spades":   "♠",
	"clubs":    "♣",
	"hearts":   "♥",
	"diams":    "♦",
	"alpha":    "α",
	"beta":     "β",
	"gamma":    "γ",
	"delta":    "δ",
	"epsilon":  "ε",
	"zeta":     "ζ",
	"eta":      "η",
	"theta":    "θ",
	"iota":     "ι",
	"kappa":    "κ",
	"lambda":   "λ",
	"mu":       "μ",
	"nu":       "ν",
	"xi":       "ξ",
	"omicron":  "ο",
	"pi":       "π",
	"rho":      "ρ",
	"sigma":    "σ",
	"tau":      "τ",
	"upsilon":  "υ",
	"phi":      "φ",
	"chi":      "χ",
	"psi":      "ψ",
	"omega":    "ω",
}

// Resolve looks up a bare entity name (without the surrounding & and ;) and
// returns its UTF-8 expansion. The empty string / false result signals the
// caller to drop the entity silently (§4.3.3).
func Resolve(name string) (string, bool) {
	s, ok := Table[name]
	return s, ok
}
