package tts

// OpenAI voice options
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceFable   = "fable"
	VoiceOnyx    = "onyx"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

// OpenAI model options
const (
	ModelTTS1   = "tts-1"    // Standard quality, faster
	ModelTTS1HD = "tts-1-hd" // Higher quality, slower
)

// openAIVoices is the fixed catalog the speech endpoint accepts.
// Fable is tagged en-GB; everything else speaks with a US accent.
var openAIVoices = []Voice{
	{ID: VoiceAlloy, Name: "Alloy", Locale: "en-US"},
	{ID: VoiceEcho, Name: "Echo", Locale: "en-US"},
	{ID: VoiceFable, Name: "Fable", Locale: "en-GB"},
	{ID: VoiceOnyx, Name: "Onyx", Locale: "en-US"},
	{ID: VoiceNova, Name: "Nova", Locale: "en-US"},
	{ID: VoiceShimmer, Name: "Shimmer", Locale: "en-US"},
}

// OpenAIVoices returns a copy of the OpenAI voice catalog with def marked as default.
func OpenAIVoices(def string) []Voice {
	out := make([]Voice, len(openAIVoices))
	copy(out, openAIVoices)
	for i := range out {
		out[i].Default = out[i].ID == def
	}
	return out
}

// IsOpenAIVoice returns true if id names a known OpenAI voice.
func IsOpenAIVoice(id string) bool {
	for _, v := range openAIVoices {
		if v.ID == id {
			return true
		}
	}
	return false
}
