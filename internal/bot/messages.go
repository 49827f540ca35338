package bot

// Version — версия справки по командам.
var Version = "1.2.0"

// Тексты ответов.
const (
	msgNotUnderstood  = "Sorry, I do not understand you. Please type `help` for help"
	msgGenericFailure = "Sorry, something went wrong. Please try again later."
	msgFeelDuplicate  = "We have your mood today. Reach out to me tomorrow."
	msgFeltDuplicate  = "We already have your mood for yesterday."
	msgMoodSaved      = "Mood saved!"
	msgSnippetSaved   = "Snippet saved!"
	msgNoMood         = "No mood found!"
	msgNoSnippet      = "No snippet found!"
	msgNoUsers        = "No users found!"
	msgMoodsMissing   = "Sorry, I could not find your moods!"
	msgUserMissing    = "User does not exist!"
	msgSnippetMissing = "Sorry, I could not find your snippets!"
	msgQuotesHeader   = "Quotes:"

	historyDateLayout = "Mon Jan 02 2006"
)

func helpText() string {
	return "*command list* (v" + Version + ")\n" +
		"> echo `get the average mood from the past week`\n" +
		"> history `get the mood from the past week`\n" +
		"> feel [emoji] [value(1-6)] (\"[snippet]\") `tell the bot how you feel now`\n" +
		"> felt [emoji] [value(1-6)] (\"[snippet]\") `tell the bot how you felt yesterday`\n" +
		"> quotes `get the snippets from the past week`\n" +
		"> users `list registered users`\n" +
		"> whoami `show your name`\n" +
		"> help `get help info`\n" +
		"```1 (depressed), 2 (sad), 3 (unhappy), 4 (satisfied), 5 (joyful), 6 (exuberant)```"
}
