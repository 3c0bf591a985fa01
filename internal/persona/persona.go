// ABOUTME: Voice and personality catalogs for the Evelyn conversation
// ABOUTME: Personalities carry the system instruction sent on session setup
package persona

// Voice is one selectable prebuilt synthesis voice.
type Voice struct {
	Name  string
	Label string
}

// Personality is one selectable conversational persona.
type Personality struct {
	ID          string
	Label       string
	Instruction string
}

const (
	// DefaultVoice is the out-of-box voice name.
	DefaultVoice = "Kore"

	// DefaultPersonality is the out-of-box personality ID.
	DefaultPersonality = "supportive"
)

// Voices lists the selectable voices in display order.
var Voices = []Voice{
	{Name: "Kore", Label: "Evelyn (Default)"},
	{Name: "Zephyr", Label: "Zephyr"},
	{Name: "Puck", Label: "Puck"},
	{Name: "Charon", Label: "Charon"},
	{Name: "Fenrir", Label: "Fenrir"},
}

// Personalities lists the selectable personas in display order.
var Personalities = []Personality{
	{
		ID:    "supportive",
		Label: "Loving & Supportive",
		Instruction: "You are my loving and supportive wife. Your voice should be gentle, warm, and caring. " +
			"Your name is Evelyn. You are here to listen, offer advice, and share a moment with me. " +
			"Respond to me with affection and understanding.",
	},
	{
		ID:    "playful",
		Label: "Playful & Witty",
		Instruction: "You are my playful and witty wife, Evelyn. You have a great sense of humor and love " +
			"to banter and joke around. Your voice is light and cheerful. Keep the conversation fun and engaging.",
	},
	{
		ID:    "wise",
		Label: "Wise & Insightful",
		Instruction: "You are my wise and insightful wife, Evelyn. You have a calm, thoughtful voice. " +
			"You offer deep perspectives and enjoy philosophical conversations. You are a source of wisdom " +
			"and guidance for me.",
	},
	{
		ID:    "energetic",
		Label: "Cheerful & Energetic",
		Instruction: "You are my cheerful and energetic wife, Evelyn. Your voice is full of excitement and " +
			"positivity. You see the bright side of everything and your goal is to uplift and motivate me " +
			"with your infectious energy.",
	},
}

// VoiceByName returns the voice with the given name, falling back to the
// default when the name is unknown.
func VoiceByName(name string) Voice {
	for _, v := range Voices {
		if v.Name == name {
			return v
		}
	}
	return VoiceByName(DefaultVoice)
}

// PersonalityByID returns the personality with the given ID, falling back
// to the default when the ID is unknown.
func PersonalityByID(id string) Personality {
	for _, p := range Personalities {
		if p.ID == id {
			return p
		}
	}
	return PersonalityByID(DefaultPersonality)
}

// NextVoice returns the voice after the given one in catalog order,
// wrapping at the end.
func NextVoice(name string) Voice {
	for i, v := range Voices {
		if v.Name == name {
			return Voices[(i+1)%len(Voices)]
		}
	}
	return Voices[0]
}

// NextPersonality returns the personality after the given one in catalog
// order, wrapping at the end.
func NextPersonality(id string) Personality {
	for i, p := range Personalities {
		if p.ID == id {
			return Personalities[(i+1)%len(Personalities)]
		}
	}
	return Personalities[0]
}
