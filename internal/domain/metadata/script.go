// Package metadata derives canonical tag fields from noisy upstream video metadata.
package metadata

// cjkRanges are the Hiragana, Katakana, CJK ideograph and Hangul syllable blocks.
var cjkRanges = [][2]rune{
	{0x3040, 0x309F},
	{0x30A0, 0x30FF},
	{0x4E00, 0x9FFF},
	{0xAC00, 0xD7AF},
}

// HasCJK reports whether s contains any character from the CJK ranges.
func HasCJK(s string) bool {
	for _, r := range s {
		for _, rng := range cjkRanges {
			if r >= rng[0] && r <= rng[1] {
				return true
			}
		}
	}
	return false
}
