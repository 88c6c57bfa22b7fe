// Package protocol defines the wire messages exchanged with the game server
// and the tolerant decoding of inbound frames. The server's JSON is loose:
// field names drift between snake_case and camelCase, numbers arrive as
// strings, and payloads are sometimes nested as string-encoded JSON.
package protocol

// Message type tags observed on the wire.
const (
	TypeEnterGame       = "handle_enter_game"
	TypeNotifyEnterGame = "notify_enter_game"
	TypeNotifyIssueStat = "notify_issue_stat"
	TypeNotifyCountDown = "notify_count_down"
	TypeNotifyResult    = "notify_result"
)

// EnterGame is the handshake sent after connecting (and re-sent by the
// liveness monitor when the stream goes quiet).
type EnterGame struct {
	MsgType   string `json:"msg_type"`
	AssetType string `json:"asset_type"`
	UserID    int64  `json:"user_id"`
	SecretKey string `json:"user_secret_key"`
}

// NewEnterGame builds the handshake for an account.
func NewEnterGame(assetType string, userID int64, secretKey string) EnterGame {
	return EnterGame{
		MsgType:   TypeEnterGame,
		AssetType: assetType,
		UserID:    userID,
		SecretKey: secretKey,
	}
}

// FrameKind classifies an inbound frame after tolerant decoding.
type FrameKind int

const (
	KindUnknown FrameKind = iota
	KindEnterGame
	KindTelemetry
	KindCountdown
	KindResult
)

func (k FrameKind) String() string {
	switch k {
	case KindEnterGame:
		return "enter_game"
	case KindTelemetry:
		return "telemetry"
	case KindCountdown:
		return "countdown"
	case KindResult:
		return "result"
	default:
		return "unknown"
	}
}

// RoomTelemetry is one room's crowd data within a frame.
type RoomTelemetry struct {
	RoomID  int
	Players int
	Stake   float64
}

// Frame is the decoded, classified form of one inbound message. Absent
// fields keep their zero values; Countdown uses -1 for "not present" since 0
// is a legitimate countdown value.
type Frame struct {
	Kind    FrameKind
	MsgType string

	IssueID        int64
	Rooms          []RoomTelemetry
	Countdown      int
	KilledRoom     int
	LastKilledRoom int

	// Unix seconds; 0 when the server did not send them.
	StartTime float64
	EndTime   float64
}
