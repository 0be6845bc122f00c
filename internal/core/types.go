package core

const (
	BotName       = "Personal Voice Bot"
	BotUserAgent  = "VoiceBot/1.0"
	BotVersion    = "1.0.0"
	BotRepository = "https://github.com/sandevgo/voicebot"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// AudioFormat names an encoding understood by the speech providers.
type AudioFormat string

const (
	AudioWAV  AudioFormat = "wav"
	AudioOpus AudioFormat = "opus"
	AudioMP3  AudioFormat = "mp3"
)
