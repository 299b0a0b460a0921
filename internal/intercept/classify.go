package intercept

import "strings"

// Method tags one classified bypass attempt for the audit trail.
type Method string

const (
	MethodCmdQBlocked        Method = "cmd_q_blocked"
	MethodCmdWBlocked        Method = "cmd_w_blocked"
	MethodCmdMBlocked        Method = "cmd_m_blocked"
	MethodCmdTabBlocked      Method = "cmd_tab_blocked"
	MethodWindowCloseBlocked Method = "window_close_blocked"
	MethodVisibilityChange   Method = "visibility_change_blocked"
	MethodEscapeKey          Method = "escape_key"
)

// MouseEvent is a click-family mouse event type as reported by the overlay.
type MouseEvent string

const (
	MouseClick       MouseEvent = "click"
	MouseDown        MouseEvent = "mousedown"
	MouseUp          MouseEvent = "mouseup"
	MouseDoubleClick MouseEvent = "dblclick"
	MouseContextMenu MouseEvent = "contextmenu"
	MouseMove        MouseEvent = "mousemove"
)

// ClassifyKey maps a blocked keyboard event to its audit method. The four
// recognized system shortcuts get dedicated tags; everything else falls
// back to keyboard_blocked_<key>.
func ClassifyKey(event KeyEvent) Method {
	if event.Cmd {
		switch normalizeKey(event.Key) {
		case "q":
			return MethodCmdQBlocked
		case "w":
			return MethodCmdWBlocked
		case "m":
			return MethodCmdMBlocked
		case "tab":
			return MethodCmdTabBlocked
		}
	}
	return Method("keyboard_blocked_" + normalizeKey(event.Key))
}

// ClassifyMouse maps a blocked click-family event to its audit method.
// Mouse movement is never blocked and must not reach this function.
func ClassifyMouse(event MouseEvent) Method {
	return Method("mouse_blocked_" + string(event))
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
