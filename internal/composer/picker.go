package composer

// PickerMode identifies which attachment source is active while the picker
// is expanded.
type PickerMode string

const (
	PickerModeNone            PickerMode = "none"
	PickerModeMedia           PickerMode = "media"
	PickerModeFiles           PickerMode = "files"
	PickerModeCamera          PickerMode = "camera"
	PickerModeInstantCommands PickerMode = "instantCommands"
	PickerModeCustom          PickerMode = "custom"
)

// PickerState is the expandable attachment-source selector. Only one mode is
// active at a time; a collapsed picker has no mode.
type PickerState struct {
	Expanded bool       `json:"expanded"`
	Mode     PickerMode `json:"mode"`
}

// CollapsedPicker returns the default, closed picker state.
func CollapsedPicker() PickerState {
	return PickerState{Expanded: false, Mode: PickerModeNone}
}

// ExpandedPicker returns an expanded picker with the given mode active.
func ExpandedPicker(mode PickerMode) PickerState {
	return PickerState{Expanded: true, Mode: mode}
}

// CameraPickerShown reports whether the camera source is active. Derived on
// every read; never cached.
func (p PickerState) CameraPickerShown() bool {
	return p.Expanded && p.Mode == PickerModeCamera
}

// FilePickerShown reports whether the file source is active.
func (p PickerState) FilePickerShown() bool {
	return p.Expanded && p.Mode == PickerModeFiles
}

// OverlayShown reports whether any attachment-source overlay should render.
func (p PickerState) OverlayShown() bool {
	return p.Expanded && p.Mode != PickerModeNone
}
