package reconcile

import (
	"fmt"
	"strings"

	"github.com/agentstation/packsync/internal/text"
	"github.com/agentstation/packsync/pkg/diagnostics"
	"github.com/agentstation/packsync/pkg/errors"
	"github.com/agentstation/packsync/pkg/store"
)

// Document paths owned by the rules.
var (
	pathSource       = store.ParsePath("data.source.value")
	pathLevel        = store.ParsePath("data.level")
	pathLevelValue   = store.ParsePath("data.level.value")
	pathTraits       = store.ParsePath("data.traits")
	pathRarity       = store.ParsePath("data.traits.rarity")
	pathTraitValues  = store.ParsePath("data.traits.value")
	pathPrice        = store.ParsePath("data.price")
	pathPriceValue   = store.ParsePath("data.price.value")
	pathHP           = store.ParsePath("data.hp")
	pathSpeed        = store.ParsePath("data.speed")
	pathLore         = store.ParsePath("data.trainedLore")
	pathAlignment    = store.ParsePath("data.alignment.own")
	pathFollower     = store.ParsePath("data.alignment.follower")
	pathAbility      = store.ParsePath("data.ability")
	pathSkill        = store.ParsePath("data.skill")
	pathWeapons      = store.ParsePath("data.weapons")
	pathDomains      = store.ParsePath("data.domains")
	pathFont         = store.ParsePath("data.font")
	pathTraditions   = store.ParsePath("data.traditions.value")
	pathCategory     = store.ParsePath("data.category.value")
	pathSchool       = store.ParsePath("data.school.value")
	pathTime         = store.ParsePath("data.time.value")
	pathComponents   = store.ParsePath("data.components")
	pathPrimaryCheck = store.ParsePath("data.primarycheck.value")
)

var componentFlags = []string{"material", "somatic", "verbal"}

const (
	darkArchive       = "Dark Archive"
	excludedTradition = "elemental"
)

// Common rules, run for every record in this order.

func sourceRule() Rule {
	return Rule{
		Field:   "source",
		Path:    pathSource,
		Extract: Field("source", nil),
		Normalize: func(in *Input, raw any) (any, error) {
			names := toStrings(raw)
			out := make([]any, 0, len(names))
			for _, n := range names {
				if in.Overrides != nil {
					n = in.Overrides.SourceAlias(n)
				}
				out = append(out, n)
			}
			return out, nil
		},
		Apply: KeepIfMember(false),
	}
}

func levelRule() Rule {
	return Rule{
		Field:   "level",
		Path:    pathLevelValue,
		Guard:   PathExists(pathLevel),
		Extract: Field("level", 0),
		Normalize: func(_ *Input, raw any) (any, error) {
			n, err := toInt(raw)
			if err != nil {
				return nil, errors.NewValidationError("level", raw, err.Error())
			}
			return n, nil
		},
		Apply: Exact,
	}
}

func rarityRule() Rule {
	return Rule{
		Field:   "rarity",
		Path:    pathRarity,
		Guard:   PathExists(pathTraits),
		Extract: Field("rarity", "common"),
		Normalize: func(_ *Input, raw any) (any, error) {
			s, _ := raw.(string)
			r := strings.ToLower(strings.TrimSpace(s))
			if !rarities[r] {
				return nil, errors.NewLookupError(tableRarity, fmt.Sprint(raw))
			}
			return r, nil
		},
		Apply: Exact,
	}
}

func priceRule() Rule {
	return Rule{
		Field:   "price",
		Path:    pathPriceValue,
		Guard:   PathExists(pathPrice),
		Extract: Field("price_raw", ""),
		Normalize: func(_ *Input, raw any) (any, error) {
			s, _ := raw.(string)
			out := map[string]any{}
			for k, v := range ParsePrice(s) {
				out[k] = v
			}
			return out, nil
		},
		Apply: Breakdown(Denominations),
	}
}

func traitsRule() Rule {
	return Rule{
		Field:   "traits",
		Path:    pathTraitValues,
		Guard:   PathExists(pathTraits),
		Extract: Field("trait_raw", []any{}),
		Normalize: func(in *Input, raw any) (any, error) {
			var out []string
			for _, t := range toStrings(raw) {
				if skipTrait(t) {
					continue
				}
				out = append(out, hyphenate(t))
			}
			cur, _ := in.Doc.Get(pathTraitValues)
			stored := toStrings(cur)
			for _, class := range classTraits {
				if contains(stored, class) {
					out = append(out, class)
				}
			}
			return stringList(out), nil
		},
		Apply: SetEqual,
	}
}

// Ancestry rules.

func hpRule() Rule {
	return Rule{
		Field:   "hp",
		Path:    pathHP,
		Extract: Field("hp", nil),
		Normalize: func(_ *Input, raw any) (any, error) {
			n, err := toInt(raw)
			if err != nil {
				return nil, errors.NewValidationError("hp", raw, err.Error())
			}
			return n, nil
		},
		Apply: Exact,
	}
}

func speedRule() Rule {
	return Rule{
		Field: "speed",
		Path:  pathSpeed,
		Extract: func(in *Input) (any, bool) {
			land, ok := in.Record.Map("speed")["land"]
			if !ok || !truthy(land) {
				return nil, false
			}
			return land, true
		},
		Normalize: func(_ *Input, raw any) (any, error) {
			n, err := toInt(raw)
			if err != nil {
				return nil, errors.NewValidationError("speed", raw, err.Error())
			}
			return n, nil
		},
		Apply: Exact,
	}
}

// Background rules.

// loreRule is kept disabled: the feed lists lore skills loosely and the
// comparison produced mostly false positives.
func loreRule() Rule {
	return Rule{Field: "lore", Path: pathLore, Disabled: true}
}

// Deity rules.

func alignmentRule() Rule {
	return Rule{
		Field:   "alignment",
		Path:    pathAlignment,
		Extract: Field("alignment", nil),
		Normalize: func(_ *Input, raw any) (any, error) {
			if raw == nil {
				return nil, nil
			}
			return lookupAlignment(raw)
		},
		Apply: Exact,
	}
}

func followerAlignmentRule() Rule {
	return Rule{
		Field:   "follower_alignment",
		Path:    pathFollower,
		Extract: Field("follower_alignment", []any{}),
		Normalize: func(_ *Input, raw any) (any, error) {
			list := toList(raw)
			out := make([]any, 0, len(list))
			for _, a := range list {
				v, err := lookupAlignment(a)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			return out, nil
		},
		Apply: SetEqual,
	}
}

func abilityRule() Rule {
	return Rule{
		Field:     "ability",
		Path:      pathAbility,
		Extract:   Field("ability", []any{}),
		Normalize: translate(tableAbility, abilities),
		Apply:     SetEqual,
	}
}

func skillRule() Rule {
	return Rule{
		Field:     "skill",
		Path:      pathSkill,
		Extract:   Field("skill", []any{}),
		Normalize: translate(tableSkill, skills),
		Apply:     KeepIfMember(true),
	}
}

func weaponsRule() Rule {
	return Rule{
		Field:   "weapons",
		Path:    pathWeapons,
		Extract: Field("favored_weapon", []any{}),
		Normalize: func(in *Input, raw any) (any, error) {
			names := toStrings(raw)
			out := make([]string, 0, len(names))
			for _, w := range names {
				if in.Overrides != nil {
					w = in.Overrides.WeaponAlias(w)
				}
				out = append(out, hyphenate(w))
			}
			return stringList(out), nil
		},
		Apply: SetEqual,
	}
}

// domainsRule compares the feed's single domain list with the store's
// primary and alternate lists. The two cannot be mapped onto each other, so
// a mismatch is only reported.
func domainsRule() Rule {
	return Rule{
		Field:     "domains",
		Path:      pathDomains,
		Extract:   Field("domain", []any{}),
		Normalize: func(_ *Input, raw any) (any, error) { return stringList(toStrings(raw)), nil },
		Check: func(in *Input, path store.Path, want any) *diagnostics.Diagnostic {
			primary, _ := in.Doc.Get(path.Child("primary"))
			alternate, _ := in.Doc.Get(path.Child("alternate"))
			stored := append(append([]any{}, toList(primary)...), toList(alternate)...)
			if sameSet(toList(want), stored) {
				return nil
			}
			return &diagnostics.Diagnostic{
				Kind:     diagnostics.AmbiguousDomain,
				Location: in.Doc.Location().String(),
				Record:   label(in.Record),
				Message: fmt.Sprintf("feed domains %v do not match store %v/%v",
					toStrings(want), toStrings(primary), toStrings(alternate)),
			}
		},
	}
}

func fontRule() Rule {
	return Rule{
		Field:   "font",
		Path:    pathFont,
		Extract: Field("divine_font", []any{}),
		Normalize: func(_ *Input, raw any) (any, error) {
			names := toStrings(raw)
			out := make([]string, len(names))
			for i, f := range names {
				out[i] = strings.ToLower(f)
			}
			return stringList(out), nil
		},
		Apply: SetEqual,
	}
}

// Spell family rules.

// traditionsRule skips records from a publication whose spells carry no
// traditions in the feed but do in the store.
func traditionsRule() Rule {
	return Rule{
		Field:   "traditions",
		Path:    pathTraditions,
		Extract: Field("tradition", []any{}),
		Normalize: func(in *Input, raw any) (any, error) {
			var out []string
			for _, t := range toStrings(raw) {
				if strings.EqualFold(t, excludedTradition) {
					continue
				}
				out = append(out, strings.ToLower(t))
			}
			if len(out) == 0 {
				if src := in.Record.Strings("source"); len(src) > 0 && src[0] == darkArchive {
					return nil, ErrSkip
				}
			}
			return stringList(out), nil
		},
		Apply: SetEqual,
	}
}

func categoryRule() Rule {
	return Rule{
		Field: "category",
		Path:  pathCategory,
		Extract: func(in *Input) (any, bool) {
			return string(in.Record.Type), true
		},
		Normalize: func(_ *Input, raw any) (any, error) {
			s, _ := raw.(string)
			if c, ok := categories[s]; ok {
				return c, nil
			}
			return strings.ToLower(s), nil
		},
		Apply: Exact,
	}
}

func schoolRule() Rule {
	return Rule{
		Field:   "school",
		Path:    pathSchool,
		Extract: Field("school", nil),
		Normalize: func(_ *Input, raw any) (any, error) {
			if raw == nil {
				return nil, nil
			}
			s, _ := raw.(string)
			return strings.ToLower(strings.TrimSpace(s)), nil
		},
		Apply: Exact,
	}
}

func timeRule() Rule {
	return Rule{
		Field:   "time",
		Path:    pathTime,
		Extract: Field("actions", ""),
		Normalize: func(_ *Input, raw any) (any, error) {
			s, _ := raw.(string)
			// Stored on save in ASCII, so compare in ASCII too.
			s, err := text.ASCII(s)
			if err != nil {
				return nil, err
			}
			if t, ok := actions[s]; ok {
				return t, nil
			}
			return s, nil
		},
		Apply: FoldEqual,
	}
}

func componentsRule() Rule {
	return Rule{
		Field:   "components",
		Path:    pathComponents,
		Extract: Field("component", []any{}),
		Normalize: func(_ *Input, raw any) (any, error) {
			out := make(map[string]any, len(componentFlags))
			present := toStrings(raw)
			for _, c := range componentFlags {
				out[c] = contains(present, c)
			}
			return out, nil
		},
		Apply: Flags(componentFlags),
	}
}

func primaryCheckRule() Rule {
	return Rule{
		Field:   "primary_check",
		Path:    pathPrimaryCheck,
		Extract: Field("primary_check", ""),
		Normalize: func(_ *Input, raw any) (any, error) {
			s, _ := raw.(string)
			folded, err := text.ASCII(s)
			if err != nil {
				return nil, err
			}
			return text.CollapseSpaces(folded), nil
		},
		Apply: Exact,
	}
}

// translate maps every raw list entry through a closed table.
func translate(table string, m map[string]string) func(*Input, any) (any, error) {
	return func(_ *Input, raw any) (any, error) {
		names := toStrings(raw)
		out := make([]any, 0, len(names))
		for _, n := range names {
			code, ok := m[n]
			if !ok {
				return nil, errors.NewLookupError(table, n)
			}
			out = append(out, code)
		}
		return out, nil
	}
}

func lookupAlignment(raw any) (any, error) {
	s, _ := raw.(string)
	v, ok := alignments[s]
	if !ok {
		return nil, errors.NewLookupError(tableAlignment, fmt.Sprint(raw))
	}
	return v, nil
}

func hyphenate(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "-")
}

func contains(ss []string, s string) bool {
	for _, e := range ss {
		if e == s {
			return true
		}
	}
	return false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	}
	if f, ok := toFloat(v); ok {
		return f != 0
	}
	return true
}
