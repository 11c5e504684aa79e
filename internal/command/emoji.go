package command

const (
	EmojiOK        = "✅"
	EmojiX         = "❌"
	EmojiChecked   = "☑️"
	EmojiWarning   = "⚠️"
	EmojiAlarm     = "⏰"
	EmojiFolder    = "📁"
	EmojiScroll    = "📜"
	EmojiYarn      = "🧶"
	EmojiDividers  = "🗂️"
	EmojiDie       = "🎲"
	EmojiSlider    = "🎚️"
	EmojiDetective = "🕵️"
	EmojiInvader   = "👾"
	EmojiFlag      = "🏁"
	EmojiInfo      = "ℹ️"
	EmojiMailbox   = "📪"
	EmojiMail      = "📬"
	EmojiNote      = "🎵"
)
