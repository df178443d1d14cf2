package extract

// Word lists driving clause splitting and claim classification.

var subordinators = map[string]bool{
	"although": true, "though": true, "while": true, "when": true, "whenever": true,
	"if": true, "unless": true, "whereas": true, "since": true, "after": true,
	"before": true, "as": true, "once": true, "until": true, "because": true,
}

var hedges = []string{
	"perhaps", "maybe", "probably", "possibly", "might", "rumored", "rumoured",
	"allegedly", "supposedly", "seemed", "some say", "it is said",
}

var motivationMarkers = []string{
	"because", "in order to", "so that", "to avenge", "wanted", "sought",
	"desire", "desired", "motivated", "driven", "determined to", "vowed",
	"hoped", "dreamed", "longed", "swore", "ambition", "revenge",
}

var relationshipNouns = map[string]bool{
	"mother": true, "father": true, "brother": true, "sister": true, "son": true,
	"daughter": true, "wife": true, "husband": true, "friend": true, "lover": true,
	"uncle": true, "aunt": true, "cousin": true, "mentor": true, "master": true,
	"servant": true, "fiancé": true, "fiancee": true, "fiancée": true, "enemy": true,
	"rival": true, "married": true, "betrothed": true, "orphan": true, "orphaned": true,
	"parents": true, "grandfather": true, "grandmother": true, "guardian": true, "ally": true,
}

var copulas = map[string]bool{
	"was": true, "is": true, "were": true, "are": true, "became": true,
	"becomes": true, "seemed": true, "remained": true, "grew": true, "felt": true,
}

var traitAdjectives = map[string]bool{
	"wealthy": true, "rich": true, "poor": true, "brave": true, "kind": true,
	"cruel": true, "cowardly": true, "loyal": true, "honest": true, "shy": true,
	"proud": true, "humble": true, "strong": true, "weak": true, "clever": true,
	"foolish": true, "gentle": true, "bitter": true, "generous": true, "greedy": true,
	"noble": true, "educated": true, "illiterate": true, "sickly": true, "healthy": true,
	"calm": true, "violent": true, "quiet": true, "ambitious": true, "lonely": true,
}

var traitSuffixes = []string{"ous", "ful", "less", "ive", "ish"}

// irregularVerbs are main verbs not caught by the -ed rule
var irregularVerbs = map[string]bool{
	"born": true, "grew": true, "became": true, "fled": true, "met": true,
	"fought": true, "left": true, "lost": true, "won": true, "took": true,
	"gave": true, "made": true, "saw": true, "knew": true, "went": true,
	"came": true, "ran": true, "sold": true, "bought": true, "built": true,
	"taught": true, "wrote": true, "stole": true, "hid": true, "swore": true,
	"fell": true, "rose": true, "began": true, "spent": true, "kept": true,
	"sought": true, "held": true, "found": true, "broke": true, "led": true,
	"sail": true, "fight": true, "kill": true, "escape": true, "marry": true,
	"avenge": true, "steal": true, "protect": true, "serve": true, "read": true,
	"write": true, "hunt": true, "travel": true, "study": true, "rule": true,
}

// notVerbs end in -ed but are rarely verbs in backstories
var notVerbs = map[string]bool{
	"hundred": true, "indeed": true, "bed": true, "red": true, "need": true,
	"seed": true, "speed": true, "creed": true, "breed": true, "sacred": true,
	"wicked": true, "naked": true, "rugged": true, "beloved": true, "aged": true,
}

// nonEntities are capitalized words that do not name anyone or anything
var nonEntities = map[string]bool{
	"he": true, "she": true, "they": true, "his": true, "her": true, "their": true,
	"i": true, "we": true, "it": true, "the": true, "a": true, "an": true,
	"this": true, "that": true, "there": true, "later": true, "then": true,
	"after": true, "before": true, "when": true, "while": true, "as": true,
	"although": true, "though": true, "despite": true, "during": true, "growing": true,
	"once": true, "since": true, "because": true, "in": true, "at": true, "on": true,
}
