package tui

// Keybinding constants
const (
	KeyTab        = "tab"
	KeyShiftTab   = "shift+tab"
	KeyQuit       = "q"
	KeyCtrlC      = "ctrl+c"
	KeyEsc        = "esc"
	KeyPane1      = "1"
	KeyPane2      = "2"
	KeyUp         = "up"
	KeyDown       = "down"
	KeyJ          = "j"
	KeyK          = "k"
	KeyReschedule = "r"
	KeyRefresh    = "g"
)

// HelpView returns a one-line help bar with common keybindings.
func HelpView() string {
	return StyleHelp.Render("Tab: cycle focus | 1/2: jump to pane | j/k: select task | r: delay/reschedule | g: refresh | q: quit")
}
