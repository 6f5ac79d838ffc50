package markdown

// EventKind discriminates the flat event stream produced by Extract.
type EventKind int

const (
	EventHeadingStart EventKind = iota
	EventHeadingEnd
	EventText
	EventCodeFenceStart
	EventCodeFenceEnd
	EventLink
)

func (k EventKind) String() string {
	switch k {
	case EventHeadingStart:
		return "heading_start"
	case EventHeadingEnd:
		return "heading_end"
	case EventText:
		return "text"
	case EventCodeFenceStart:
		return "code_fence_start"
	case EventCodeFenceEnd:
		return "code_fence_end"
	case EventLink:
		return "link"
	default:
		return "unknown"
	}
}

// Event is one element of the flat stream a document body linearizes
// into. Which fields are meaningful depends on Kind:
//
//	HeadingStart:   Level, Line, MarkerOffset, ATX
//	HeadingEnd:     Level
//	Text:           Text (raw source slice, or fence/heading content)
//	CodeFenceStart: Language, Info, Line
//	CodeFenceEnd:   Line
//	Link:           Destination, Text, Line
type Event struct {
	Kind  EventKind
	Level int
	Line  int
	Text  string

	// MarkerOffset is the byte offset of the heading's first marker
	// character in the original source, or -1 when it could not be
	// located. ATX reports whether the heading uses '#' markers and can
	// be rewritten in place.
	MarkerOffset int
	ATX          bool

	Language    string
	Info        string
	Destination string
}
