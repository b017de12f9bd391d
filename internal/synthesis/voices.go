package synthesis

import "strings"

// VoiceBank groups the prebuilt voices by register so callers can offer
// a sensible default per gender.
type VoiceBank struct {
	Label   string
	Default string
	Voices  []VoiceProfile
}

var VoiceBanks = map[string]VoiceBank{
	"female": {
		Label:   "female voices",
		Default: "Achernar",
		Voices: []VoiceProfile{
			{Name: "Achernar", Gender: "FEMALE", DisplayName: "Achernar"},
			{Name: "Aoede", Gender: "FEMALE", DisplayName: "Aoede"},
			{Name: "Autonoe", Gender: "FEMALE", DisplayName: "Autonoe"},
			{Name: "Callirrhoe", Gender: "FEMALE", DisplayName: "Callirrhoe"},
			{Name: "Despina", Gender: "FEMALE", DisplayName: "Despina"},
			{Name: "Erinome", Gender: "FEMALE", DisplayName: "Erinome"},
			{Name: "Gacrux", Gender: "FEMALE", DisplayName: "Gacrux"},
			{Name: "Kore", Gender: "FEMALE", DisplayName: "Kore"},
			{Name: "Laomedeia", Gender: "FEMALE", DisplayName: "Laomedeia"},
			{Name: "Leda", Gender: "FEMALE", DisplayName: "Leda"},
			{Name: "Sulafat", Gender: "FEMALE", DisplayName: "Sulafat"},
			{Name: "Vindemiatrix", Gender: "FEMALE", DisplayName: "Vindemiatrix"},
			{Name: "Zephyr", Gender: "FEMALE", DisplayName: "Zephyr"},
		},
	},
	"male": {
		Label:   "male voices",
		Default: "Achird",
		Voices: []VoiceProfile{
			{Name: "Achird", Gender: "MALE", DisplayName: "Achird"},
			{Name: "Algenib", Gender: "MALE", DisplayName: "Algenib"},
			{Name: "Algieba", Gender: "MALE", DisplayName: "Algieba"},
			{Name: "Alnilam", Gender: "MALE", DisplayName: "Alnilam"},
			{Name: "Charon", Gender: "MALE", DisplayName: "Charon"},
			{Name: "Enceladus", Gender: "MALE", DisplayName: "Enceladus"},
			{Name: "Fenrir", Gender: "MALE", DisplayName: "Fenrir"},
			{Name: "Iapetus", Gender: "MALE", DisplayName: "Iapetus"},
			{Name: "Orus", Gender: "MALE", DisplayName: "Orus"},
			{Name: "Pulcherrima", Gender: "MALE", DisplayName: "Pulcherrima"},
			{Name: "Puck", Gender: "MALE", DisplayName: "Puck"},
			{Name: "Rasalgethi", Gender: "MALE", DisplayName: "Rasalgethi"},
			{Name: "Sadachbia", Gender: "MALE", DisplayName: "Sadachbia"},
			{Name: "Sadaltager", Gender: "MALE", DisplayName: "Sadaltager"},
			{Name: "Schedar", Gender: "MALE", DisplayName: "Schedar"},
			{Name: "Umbriel", Gender: "MALE", DisplayName: "Umbriel"},
			{Name: "Zubenelgenubi", Gender: "MALE", DisplayName: "Zubenelgenubi"},
		},
	},
}

// VoiceByName finds a voice across all banks, case-insensitively.
func VoiceByName(name string) (VoiceProfile, bool) {
	for _, bank := range VoiceBanks {
		for _, v := range bank.Voices {
			if strings.EqualFold(v.Name, name) {
				return v, true
			}
		}
	}
	return VoiceProfile{}, false
}

// DefaultVoice returns the bank's default, falling back to the female
// bank for unknown genders.
func DefaultVoice(gender string) VoiceProfile {
	bank, ok := VoiceBanks[strings.ToLower(gender)]
	if !ok {
		bank = VoiceBanks["female"]
	}
	v, _ := VoiceByName(bank.Default)
	return v
}
