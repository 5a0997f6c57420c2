package viewer

import "github.com/Faultbox/midgard-extrude/internal/sprite"

// Action is a viewer command bound to a key.
type Action int

const (
	ActionNone Action = iota
	ActionToggleBorder
	ActionToggleAutoDepth
	ActionThresholdDown
	ActionThresholdUp
	ActionDepthDown
	ActionDepthUp
	ActionRegenerate
	ActionSnapshot
	ActionQuit
)

// Step sizes for the threshold and depth keys.
const (
	ThresholdStep = 0.05
	DepthStep     = 0.01
)

// Adjust applies a settings action and reports whether the settings changed.
// Values are clamped so the result always validates. The depth keys switch
// auto depth off since they only affect the manual depth.
func Adjust(s sprite.Settings, a Action) (sprite.Settings, bool) {
	prev := s
	switch a {
	case ActionToggleBorder:
		s.GenerateBorder = !s.GenerateBorder
	case ActionToggleAutoDepth:
		s.AutoBorderDepth = !s.AutoBorderDepth
	case ActionThresholdDown:
		s.Threshold = clamp01(s.Threshold - ThresholdStep)
	case ActionThresholdUp:
		s.Threshold = clamp01(s.Threshold + ThresholdStep)
	case ActionDepthDown:
		s.BorderDepth = max(s.BorderDepth-DepthStep, 0)
		s.AutoBorderDepth = false
	case ActionDepthUp:
		s.BorderDepth += DepthStep
		s.AutoBorderDepth = false
	default:
		return s, false
	}
	return s, s != prev
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}
