package continuation

import (
	"unicode/utf8"

	"plotline-cli/internal/model"
)

var fallbackText = map[model.Style]string{
	model.StyleDefault: "The story pressed on. What had seemed settled in the last chapter came apart within a single night, " +
		"and the protagonist was forced to choose between the promise already made and the truth only now revealed.",
	model.StyleFantasy: "Beyond the broken ward-stones the old road glowed faintly, as if remembering the armies that once marched it. " +
		"The heir felt the bloodline seal stir in her chest, answering a call from the sealed valley below.",
	model.StyleSciFi: "The relay buoy's signal arrived eleven minutes late, which meant the jump had not gone where the charts said. " +
		"On the bridge, the navigator began recomputing their position against stars nobody aboard recognized.",
	model.StyleUrban: "By the time the rain let up, the deal at the tower on the riverfront had already collapsed. " +
		"He stood in the lobby reading the message twice, then turned back toward the old neighborhood he had sworn never to visit again.",
	model.StyleXianxia: "At the summit of the sect's outer peak, the disciple sat through the ninth thunder tribulation with his meridians burning. " +
		"When the clouds parted, an elder's voice rang across the mountain, naming him for the inner court.",
	model.StyleHistory: "News of the border garrison's fall reached the capital on the third day of the month. " +
		"In the audience hall the ministers argued until nightfall, while a junior secretary quietly copied the one map that told the truth.",
}

// Fallback returns the canned continuation for style. It is deterministic and
// always marked Fallback.
func Fallback(style model.Style) model.GenerationResult {
	text, ok := fallbackText[style]
	if !ok {
		text = fallbackText[model.StyleDefault]
	}
	return model.GenerationResult{
		Content:    text,
		TokensUsed: utf8.RuneCountInString(text),
		Fallback:   true,
	}
}
