package models

// -----------------------------------------------------------------------------
// Dashboard State Structure (pushed to websocket clients)
// -----------------------------------------------------------------------------

// Message types
const (
	MsgInitial   = "INITIAL"
	MsgFrame     = "FRAME"
	MsgCapture   = "CAPTURE"
	MsgGifReady  = "GIF_READY"
	MsgError     = "ERROR"
	MsgRefreshed = "PERFORMANCE_REFRESHED"
)

// MStanding is one row of the standings list.
type MStanding struct {
	Rank      int     `json:"rank"`
	Index     int     `json:"index"`
	Name      string  `json:"name"`
	Color     string  `json:"color"`
	Value     float64 `json:"value"`
	ChangePct float64 `json:"change_pct"`
}

// MCaptureStatus reports GIF capture progress.
type MCaptureStatus struct {
	Active   bool   `json:"active"`
	Progress int    `json:"progress"` // percent
	Message  string `json:"message,omitempty"`
}

// MDashboardState is the frame broadcast after every render.
type MDashboardState struct {
	Type          string         `json:"type"`
	View          string         `json:"view"`
	Theme         string         `json:"theme"`
	Cursor        int            `json:"cursor"`
	Date          string         `json:"date,omitempty"`
	RaceState     string         `json:"race_state"`
	Speed         int            `json:"speed"`
	IncludeShort  bool           `json:"include_short"`
	ActivePlayers []int          `json:"active_players"`
	Standings     []MStanding    `json:"standings"`
	ChartPNG      []byte         `json:"chart_png,omitempty"` // base64 in JSON
	Capture       MCaptureStatus `json:"capture"`
	ExportURL     string         `json:"export_url,omitempty"`
	Error         string         `json:"error,omitempty"`
	Timestamp     int64          `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// ClientCommand for client messages
// -----------------------------------------------------------------------------

type MClientCommand struct {
	Command string `json:"command"`
	View    string `json:"view,omitempty"`
	Theme   string `json:"theme,omitempty"`
	Player  int    `json:"player,omitempty"`
	Speed   int    `json:"speed,omitempty"`
	Enabled bool   `json:"enabled,omitempty"`
}
