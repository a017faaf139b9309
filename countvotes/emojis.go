package countvotes

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ReactionCount returns how many times m was reacted to with emoji. Custom
// emojis match on their name, the "name:id" API form or the message form
// ("<:name:id>", "<a:name:id>" when animated).
func ReactionCount(m *discordgo.Message, emoji string) int {
	if m == nil {
		return 0
	}
	for _, r := range m.Reactions {
		if r == nil || r.Emoji == nil {
			continue
		}
		if matchEmoji(r.Emoji, emoji) {
			return r.Count
		}
	}
	return 0
}

func matchEmoji(e *discordgo.Emoji, want string) bool {
	want = strings.TrimPrefix(strings.TrimSuffix(want, ">"), "<")
	want = strings.TrimPrefix(strings.TrimPrefix(want, "a:"), ":")
	if e.Name == want {
		return true
	}
	return e.ID != "" && e.APIName() == want
}
