package reconcile

import (
	"strings"

	"github.com/agentstation/packsync/pkg/records"
)

// Kind tags the rule set a record is reconciled with.
type Kind int

// Rule set kinds.
const (
	KindCommon Kind = iota
	KindAncestry
	KindBackground
	KindDeity
	KindSpell
	KindCantrip
	KindRitual
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindAncestry:
		return "ancestry"
	case KindBackground:
		return "background"
	case KindDeity:
		return "deity"
	case KindSpell:
		return "spell"
	case KindCantrip:
		return "cantrip"
	case KindRitual:
		return "ritual"
	default:
		return "common"
	}
}

// RuleSet is the ordered list of rules for one kind of record.
type RuleSet struct {
	Kind  Kind
	Rules []Rule
}

// Fields lists the rule fields in order.
func (rs RuleSet) Fields() []string {
	out := make([]string, len(rs.Rules))
	for i, r := range rs.Rules {
		out[i] = r.Field
	}
	return out
}

func commonRules() []Rule {
	return []Rule{sourceRule(), levelRule(), rarityRule(), priceRule(), traitsRule()}
}

func spellRules(kind Kind) []Rule {
	rules := []Rule{traditionsRule()}
	if kind != KindCantrip {
		rules = append(rules, categoryRule())
	}
	rules = append(rules, schoolRule(), timeRule(), componentsRule())
	if kind == KindRitual {
		rules = append(rules, primaryCheckRule())
	}
	return rules
}

// ruleSets holds one RuleSet per kind, built once.
var ruleSets = func() map[Kind]RuleSet {
	typed := map[Kind][]Rule{
		KindCommon:     nil,
		KindAncestry:   {hpRule(), speedRule()},
		KindBackground: {loreRule()},
		KindDeity: {
			alignmentRule(), followerAlignmentRule(), abilityRule(), skillRule(),
			weaponsRule(), domainsRule(), fontRule(),
		},
		KindSpell:   spellRules(KindSpell),
		KindCantrip: spellRules(KindCantrip),
		KindRitual:  spellRules(KindRitual),
	}
	sets := make(map[Kind]RuleSet, len(typed))
	for k, rules := range typed {
		sets[k] = RuleSet{Kind: k, Rules: append(commonRules(), rules...)}
	}
	return sets
}()

// KindOf returns the rule set kind for a record. Ancestry records naming a
// versatile heritage use the common rules, as heritages do.
func KindOf(rec records.Record) Kind {
	switch rec.Type {
	case records.TypeAncestry:
		if strings.Contains(rec.Name, "Heritage") {
			return KindCommon
		}
		return KindAncestry
	case records.TypeBackground:
		return KindBackground
	case records.TypeDeity:
		return KindDeity
	case records.TypeCantrip:
		return KindCantrip
	case records.TypeRitual:
		return KindRitual
	case records.TypeSpell, records.TypeFocus:
		return KindSpell
	}
	return KindCommon
}

// For returns the rule set for a record.
func For(rec records.Record) RuleSet {
	return ruleSets[KindOf(rec)]
}
