package montage

import (
	"encoding/json"
	"fmt"
	"os"
)

// scriptStep represents a single action in a playback script.
type scriptStep struct {
	Action string  `json:"action"`
	Label  string  `json:"label,omitempty"`
	Time   float64 `json:"time,omitempty"`
	Frames int     `json:"frames,omitempty"`
}

// scriptDoc is the top-level JSON structure for a playback script.
type scriptDoc struct {
	Steps []scriptStep `json:"steps"`
}

// scriptActions lists the actions a step may name.
var scriptActions = map[string]bool{
	"play":       true,
	"pause":      true,
	"stop":       true,
	"seek":       true,
	"refresh":    true,
	"wait":       true,
	"screenshot": true,
}

// Script sequences transport commands and screenshots across frames for
// automated visual checks of a movie. Attach to a Player via SetScript.
//
//	{"steps": [
//	  {"action": "seek", "time": 2.5},
//	  {"action": "refresh"},
//	  {"action": "wait", "frames": 2},
//	  {"action": "screenshot", "label": "title card"}
//	]}
type Script struct {
	steps     []scriptStep
	cursor    int
	waitCount int
	done      bool
}

// LoadScript parses a JSON playback script.
func LoadScript(jsonData []byte) (*Script, error) {
	var doc scriptDoc
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if len(doc.Steps) == 0 {
		return nil, fmt.Errorf("parse script: no steps")
	}
	for i, st := range doc.Steps {
		if !scriptActions[st.Action] {
			return nil, fmt.Errorf("parse script: step %d: unknown action %q", i, st.Action)
		}
	}
	return &Script{steps: doc.Steps}, nil
}

// Done reports whether every step has been executed.
func (s *Script) Done() bool {
	return s.done
}

// step advances the script by one frame. Called from Player.Update.
func (s *Script) step(p *Player) {
	if s.done {
		return
	}
	if s.waitCount > 0 {
		s.waitCount--
		return
	}
	if s.cursor >= len(s.steps) {
		s.done = true
		return
	}

	st := s.steps[s.cursor]
	s.cursor++

	m := p.Movie
	switch st.Action {
	case "play":
		if err := m.Play(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "[montage] script step %d: %v\n", s.cursor-1, err)
		}
	case "pause":
		m.Pause()
	case "stop":
		m.Stop()
	case "seek":
		m.SetCurrentTime(st.Time, true)
	case "refresh":
		m.Refresh(nil)
	case "screenshot":
		p.Screenshot(st.Label)
	case "wait":
		if st.Frames > 0 {
			s.waitCount = st.Frames - 1 // this frame counts as one
		}
	}

	if s.cursor >= len(s.steps) && s.waitCount == 0 {
		s.done = true
	}
}
