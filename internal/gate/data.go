package gate

// State is the readiness of the analytics transport. Transitions are
// NotStarted -> Loading -> Ready, and Loading -> NotStarted on a failed load.
// Ready is terminal.
type State int

const (
	StateNotStarted State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

type EventKind int

const (
	KindPageView EventKind = iota
	KindOutboundClick
	KindCustom
)

func (k EventKind) String() string {
	switch k {
	case KindPageView:
		return "page_view"
	case KindOutboundClick:
		return "outbound_click"
	default:
		return "custom"
	}
}

// Event is one tracking call. Attribute values are scalars.
type Event struct {
	Kind       EventKind
	Name       string
	Attributes map[string]any
}

const (
	EventNameClick    = "click"
	EventNamePageView = "page_view"
)

// Attribute names carried on outbound and page view events.
const (
	ParamEventCategory = "event_category"
	ParamEventLabel    = "event_label"
	ParamLinkURL       = "link_url"
	ParamLinkDomain    = "link_domain"
	ParamTransportType = "transport_type"
	ParamSendTo        = "send_to"
	ParamPagePath      = "page_path"
	ParamPageTitle     = "page_title"
	ParamPageLocation  = "page_location"
	// ParamClientID routes an event to a visitor. It is lifted out of the
	// params before delivery to the backend.
	ParamClientID = "client_id"
)

const (
	categoryOutbound = "outbound"
	transportBeacon  = "beacon"
)

// TitleResolver supplies the current document title for a path.
type TitleResolver interface {
	Title(path string) string
}

// TitleResolverFunc adapts a function to the TitleResolver interface.
type TitleResolverFunc func(path string) string

func (f TitleResolverFunc) Title(path string) string {
	return f(path)
}
