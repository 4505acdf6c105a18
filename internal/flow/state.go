// Package flow holds the per-session screen state machine:
// Empty -> ModeSelect -> Loading -> Result | Failed, with Reset back to Empty.
package flow

import "github.com/vbonduro/shotcoach/internal/domain"

// Screen names the UI screen a State renders as.
type Screen string

const (
	ScreenUpload     Screen = "upload"
	ScreenModeSelect Screen = "mode_select"
	ScreenLoading    Screen = "loading"
	ScreenResult     Screen = "result"
	ScreenError      Screen = "error"
)

// State is one of Empty, ModeSelect, Loading, Result or Failed.
type State interface {
	Screen() Screen
	isState()
}

type Empty struct{}

type ModeSelect struct {
	Image string
}

type Loading struct {
	Image     string
	Mode      domain.Mode
	RequestID string
}

type Result struct {
	Image    string
	Mode     domain.Mode
	Analysis *domain.Analysis
}

type Failed struct {
	Image   string
	Mode    domain.Mode
	Message string
}

func (Empty) Screen() Screen      { return ScreenUpload }
func (ModeSelect) Screen() Screen { return ScreenModeSelect }
func (Loading) Screen() Screen    { return ScreenLoading }
func (Result) Screen() Screen     { return ScreenResult }
func (Failed) Screen() Screen     { return ScreenError }

func (Empty) isState()      {}
func (ModeSelect) isState() {}
func (Loading) isState()    {}
func (Result) isState()     {}
func (Failed) isState()     {}

// View is the flat record templates render from.
type View struct {
	Screen   Screen
	Image    string
	Mode     domain.Mode
	Analysis *domain.Analysis
	Loading  bool
	Error    string
}

// ViewOf flattens s. Analysis is only set for Result, so it is never
// present together with Loading or Error.
func ViewOf(s State) View {
	v := View{Screen: s.Screen()}
	switch st := s.(type) {
	case ModeSelect:
		v.Image = st.Image
	case Loading:
		v.Image, v.Mode, v.Loading = st.Image, st.Mode, true
	case Result:
		v.Image, v.Mode, v.Analysis = st.Image, st.Mode, st.Analysis
	case Failed:
		v.Image, v.Mode, v.Error = st.Image, st.Mode, st.Message
	}
	return v
}
