package history

type Mode string

const (
	ModePaged  Mode = "paged"
	ModeSearch Mode = "search"
)

type event string

const (
	evPage   event = "page"
	evSearch event = "search"
	evClear  event = "clear"
	evRevert event = "revert"
)

// transitions lists where each user action (or the auto-revert timer) leads.
// A missing entry means the action is not valid in that mode.
var transitions = map[Mode]map[event]Mode{
	ModePaged: {
		evPage:   ModePaged,
		evSearch: ModeSearch,
		evClear:  ModePaged,
	},
	ModeSearch: {
		evPage:   ModeSearch,
		evSearch: ModeSearch,
		evClear:  ModePaged,
		evRevert: ModePaged,
	},
}

func next(from Mode, ev event) (Mode, bool) {
	to, ok := transitions[from][ev]
	return to, ok
}
