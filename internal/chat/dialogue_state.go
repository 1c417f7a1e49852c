package chat

type DialogueState string

const (
	StateNeedName   DialogueState = "NEED_NAME"
	StateNeedAge    DialogueState = "NEED_AGE"
	StateNeedGender DialogueState = "NEED_GENDER"
	StateReady      DialogueState = "READY"
)

// ResolveDialogueState derives what is still missing from the profile. There
// is no stored state: out-of-band profile edits are picked up on the next turn.
func ResolveDialogueState(profile ChildProfile) DialogueState {
	switch {
	case !profile.HasName():
		return StateNeedName
	case !profile.HasDateOfBirth():
		return StateNeedAge
	case !profile.HasGender():
		return StateNeedGender
	default:
		return StateReady
	}
}
