package retrieve

import (
	"github.com/ppiankov/backcheck/internal/model"
	"github.com/ppiankov/backcheck/internal/text"
)

var honorifics = map[string]bool{
	"mr": true, "mrs": true, "miss": true, "ms": true, "dr": true,
	"sir": true, "lady": true, "lord": true, "madame": true, "monsieur": true,
	"captain": true, "count": true, "countess": true, "baron": true,
}

// Mentions reports whether body names the character, by full name or by
// any name part of three or more letters ("Dantes" for "Edmond Dantes")
func Mentions(body, name string) bool {
	parts := text.Words(name)
	if len(parts) == 0 {
		return false
	}
	words := text.Words(body)
	if text.ContainsPhrase(words, name) {
		return true
	}
	for _, p := range parts {
		if len([]rune(p)) < 3 || honorifics[p] {
			continue
		}
		for _, w := range words {
			if w == p || w == p+"'s" {
				return true
			}
		}
	}
	return false
}

// ApplyCharacterPolicy filters or boosts items by character mention.
// Without a character name the items are returned unchanged.
func ApplyCharacterPolicy(items []model.EvidenceItem, character string, policy model.FilterPolicy, boost float64) []model.EvidenceItem {
	if character == "" || policy == model.FilterOff {
		return items
	}

	out := make([]model.EvidenceItem, 0, len(items))
	for _, it := range items {
		mentioned := Mentions(it.Text(), character)
		switch policy {
		case model.FilterBoost:
			if mentioned {
				it.Factors.CharacterBoost = boost
				it.QualityScore = min(1, it.QualityScore+boost)
			}
			out = append(out, it)
		default:
			if mentioned {
				out = append(out, it)
			}
		}
	}
	return out
}
