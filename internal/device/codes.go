// Package device forwards joystick output to synthetic input sinks.
package device

import (
	"fmt"
	"strings"
)

// Axis is a Linux evdev absolute axis code.
type Axis uint16

// Axis codes from linux/input-event-codes.h.
const (
	AbsX  Axis = 0x00
	AbsY  Axis = 0x01
	AbsRX Axis = 0x03
	AbsRY Axis = 0x04
)

var axisNames = map[Axis]string{
	AbsX:  "ABS_X",
	AbsY:  "ABS_Y",
	AbsRX: "ABS_RX",
	AbsRY: "ABS_RY",
}

func (a Axis) String() string {
	if n, ok := axisNames[a]; ok {
		return n
	}
	return fmt.Sprintf("ABS_%#x", uint16(a))
}

// Button is a Linux evdev key code.
type Button uint16

// Button codes from linux/input-event-codes.h.
const (
	BtnLeft      Button = 0x110
	BtnRight     Button = 0x111
	BtnA         Button = 0x130
	BtnB         Button = 0x131
	BtnX         Button = 0x133
	BtnY         Button = 0x134
	BtnTL        Button = 0x136
	BtnTR        Button = 0x137
	BtnSelect    Button = 0x13a
	BtnStart     Button = 0x13b
	BtnThumbR    Button = 0x13e
	BtnDpadUp    Button = 0x220
	BtnDpadDown  Button = 0x221
	BtnDpadLeft  Button = 0x222
	BtnDpadRight Button = 0x223
)

var buttonNames = map[Button]string{
	BtnLeft:      "BTN_LEFT",
	BtnRight:     "BTN_RIGHT",
	BtnA:         "BTN_A",
	BtnB:         "BTN_B",
	BtnX:         "BTN_X",
	BtnY:         "BTN_Y",
	BtnTL:        "BTN_TL",
	BtnTR:        "BTN_TR",
	BtnSelect:    "BTN_SELECT",
	BtnStart:     "BTN_START",
	BtnThumbR:    "BTN_THUMBR",
	BtnDpadUp:    "BTN_DPAD_UP",
	BtnDpadDown:  "BTN_DPAD_DOWN",
	BtnDpadLeft:  "BTN_DPAD_LEFT",
	BtnDpadRight: "BTN_DPAD_RIGHT",
}

func (b Button) String() string {
	if n, ok := buttonNames[b]; ok {
		return n
	}
	return fmt.Sprintf("BTN_%#x", uint16(b))
}

// Buttons returns every button the virtual gamepad advertises.
func Buttons() []Button {
	return []Button{
		BtnLeft, BtnRight, BtnA, BtnB, BtnX, BtnY, BtnTL, BtnTR,
		BtnSelect, BtnStart, BtnThumbR,
		BtnDpadUp, BtnDpadDown, BtnDpadLeft, BtnDpadRight,
	}
}

// ParseButton resolves an evdev name such as "BTN_X". The prefix and
// case are optional.
func ParseButton(name string) (Button, bool) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(n, "BTN_") {
		n = "BTN_" + n
	}
	for b, s := range buttonNames {
		if s == n {
			return b, true
		}
	}
	return 0, false
}

// Stick selects which analog stick receives the head motion.
type Stick string

const (
	StickLeft  Stick = "left"
	StickRight Stick = "right"
)

// Axes returns the horizontal and vertical axis of the stick.
func (s Stick) Axes() (Axis, Axis) {
	if s == StickLeft {
		return AbsX, AbsY
	}
	return AbsRX, AbsRY
}

// Valid reports whether s names a known stick.
func (s Stick) Valid() bool {
	return s == StickLeft || s == StickRight
}
