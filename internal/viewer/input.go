package viewer

import "github.com/veandco/go-sdl2/sdl"

// input collects one frame of SDL events.
type input struct {
	quit     bool
	keys     []sdl.Scancode
	dragX    float32
	dragY    float32
	wheel    float32
	dragging bool
}

// poll drains the SDL queue.
func (in *input) poll() {
	in.keys = in.keys[:0]
	in.dragX, in.dragY, in.wheel = 0, 0, 0

	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		switch e := event.(type) {
		case *sdl.QuitEvent:
			in.quit = true

		case *sdl.KeyboardEvent:
			if e.Type == sdl.KEYDOWN && e.Repeat == 0 {
				in.keys = append(in.keys, e.Keysym.Scancode)
			}

		case *sdl.MouseButtonEvent:
			if e.Button == sdl.BUTTON_LEFT {
				in.dragging = e.State == sdl.PRESSED
			}

		case *sdl.MouseMotionEvent:
			if in.dragging {
				in.dragX += float32(e.XRel)
				in.dragY += float32(e.YRel)
			}

		case *sdl.MouseWheelEvent:
			in.wheel += float32(e.Y)
		}
	}
}

// keyActions maps scancodes to settings actions.
var keyActions = map[sdl.Scancode]Action{
	sdl.Scancode(sdl.SCANCODE_B):            ActionToggleBorder,
	sdl.Scancode(sdl.SCANCODE_A):            ActionToggleAutoDepth,
	sdl.Scancode(sdl.SCANCODE_LEFTBRACKET):  ActionThresholdDown,
	sdl.Scancode(sdl.SCANCODE_RIGHTBRACKET): ActionThresholdUp,
	sdl.Scancode(sdl.SCANCODE_MINUS):        ActionDepthDown,
	sdl.Scancode(sdl.SCANCODE_EQUALS):       ActionDepthUp,
	sdl.Scancode(sdl.SCANCODE_R):            ActionRegenerate,
	sdl.Scancode(sdl.SCANCODE_P):            ActionSnapshot,
	sdl.Scancode(sdl.SCANCODE_ESCAPE):       ActionQuit,
}
