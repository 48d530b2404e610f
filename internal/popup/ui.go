package popup

// Texts shown by the popup.
const (
	BusyLabel       = "Processing..."
	LoadingText     = "Loading..."
	EmptyInputText  = "Please enter a message."
	NoActiveTabText = "No active tab found."
	OpenVideoText   = "Open a YouTube video to use this extension."
	NoAnswerText    = "No answer received."
	ErrorPrefix     = "Error: "
)

// Button is the submit control.
type Button interface {
	SetEnabled(enabled bool)
	SetLabel(label string)
	// DefaultLabel is the label to restore after a request.
	DefaultLabel() string
}

// MessageView is the message area.
type MessageView interface {
	SetText(text string)
}

// Input is the question field.
type Input interface {
	Value() string
}

// UI bundles the three handles the controller drives.
type UI struct {
	Button  Button
	Message MessageView
	Input   Input
}

func (u UI) setBusy() {
	u.Button.SetEnabled(false)
	u.Button.SetLabel(BusyLabel)
	u.Message.SetText(LoadingText)
}

func (u UI) restore() {
	u.Button.SetEnabled(true)
	u.Button.SetLabel(u.Button.DefaultLabel())
}
