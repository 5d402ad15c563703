package events

const (
	KindOverlayWake              Kind = "overlay.wake"
	KindOverlayVisibilityToggled Kind = "overlay.visibility_toggled"
	KindAvatarUpdated            Kind = "overlay.avatar_updated"
)

type OverlayWake struct{ Base }

func NewOverlayWake() OverlayWake {
	return OverlayWake{Base: NewBase(KindOverlayWake)}
}

type OverlayVisibilityToggled struct {
	Base
	Visible bool
}

func NewOverlayVisibilityToggled(visible bool) OverlayVisibilityToggled {
	return OverlayVisibilityToggled{Base: NewBase(KindOverlayVisibilityToggled), Visible: visible}
}

// AvatarUpdated is a snapshot of the avatar's visual state.
type AvatarUpdated struct {
	Base
	Awake    bool
	Thinking bool
	Visible  bool
}

func NewAvatarUpdated(awake, thinking, visible bool) AvatarUpdated {
	return AvatarUpdated{Base: NewBase(KindAvatarUpdated), Awake: awake, Thinking: thinking, Visible: visible}
}
