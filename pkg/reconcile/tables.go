package reconcile

// Closed translation tables. A raw value missing from one of these is a
// LookupError and aborts the run; the open tables (actions, categories)
// pass unknown values through unchanged.

// actions maps the feed's casting-time wording to the store vocabulary.
var actions = map[string]string{
	"Two Actions":                    "2",
	"Reaction":                       "reaction",
	"Single Action":                  "1",
	"Single Action to Three Actions": "1 to 3",
	"Single Action or Three Actions": "1 or 3",
	"Single Action to Two Actions":   "1 to 2",
	"Single Action or Two Actions":   "1 or 2",
	"Two Actions to Three Actions":   "2 to 3",
	"Two Actions or Three Actions":   "2 or 3",
	"Three Actions":                  "3",
	"Free Action":                    "free",
	"Two Actions to 2 rounds":        "2 to 2 rounds",
	"Single Action or more":          "1 to 3",
	"Single Action or more Actions":  "1 to 3",
}

const (
	tableAlignment = "alignment"
	tableAbility   = "ability"
	tableSkill     = "skill"
	tableRarity    = "rarity"
)

var abilities = map[string]string{
	"Intelligence": "int",
	"Wisdom":       "wis",
	"Strength":     "str",
	"Charisma":     "cha",
	"Constitution": "con",
	"Dexterity":    "dex",
}

var skills = map[string]string{
	"Acrobatics":   "acr",
	"Arcana":       "arc",
	"Athletics":    "ath",
	"Crafting":     "cra",
	"Deception":    "dec",
	"Diplomacy":    "dip",
	"Intimidation": "itm",
	"Medicine":     "med",
	"Nature":       "nat",
	"Occultism":    "occ",
	"Performance":  "prf",
	"Religion":     "rel",
	"Society":      "soc",
	"Stealth":      "ste",
	"Survival":     "sur",
	"Thievery":     "thi",
}

// alignments maps feed alignments to the stored code. A nil entry means the
// deity has no alignment of its own.
var alignments = map[string]any{
	"all":          nil,
	"Any":          nil,
	"No Alignment": nil,
	"CE":           "CE",
	"CG":           "CG",
	"CN":           "CN",
	"LE":           "LE",
	"LG":           "LG",
	"LN":           "LN",
	"N":            "N",
	"NE":           "NE",
	"NG":           "NG",
	"CE plus N if following the Reaper of Reputation": "CE",
}

var rarities = map[string]bool{
	"common":   true,
	"uncommon": true,
	"rare":     true,
	"unique":   true,
}

// rarityTraits are the rarity tokens as they appear in trait lists.
var rarityTraits = map[string]bool{
	"Common":   true,
	"Uncommon": true,
	"Rare":     true,
	"Unique":   true,
}

var categories = map[string]string{
	"Focus":  "focus",
	"Ritual": "ritual",
	"Spell":  "spell",
}

var schools = map[string]bool{
	"Abjuration":    true,
	"Conjuration":   true,
	"Divination":    true,
	"Enchantment":   true,
	"Evocation":     true,
	"Illusion":      true,
	"Necromancy":    true,
	"Transmutation": true,
}

var traditions = map[string]bool{
	"Arcane": true,
	"Divine": true,
	"Occult": true,
	"Primal": true,
}

// classTraits are not reconciled from the feed. When the store already
// carries them they are kept.
var classTraits = []string{"druid", "cleric"}

// skipTrait reports whether a raw trait token lives in a dedicated field or
// is known noise.
func skipTrait(raw string) bool {
	switch {
	case rarityTraits[raw], schools[raw], traditions[raw]:
		return true
	case raw == "Legacy - Age of Ashes":
		return true
	case raw == "Druid", raw == "Cleric":
		return true
	}
	return false
}
