package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTelemetryFrame(t *testing.T) {
	raw := `{
		"msg_type": "notify_issue_stat",
		"issue_id": 101,
		"rooms": [
			{"room_id": 1, "user_cnt": 12, "total_bet_amount": 340},
			{"roomId": 2, "userCount": 7, "totalBet": "1,200"}
		]
	}`

	f, err := DecodeFrame([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, KindTelemetry, f.Kind)
	assert.Equal(t, int64(101), f.IssueID)
	require.Len(t, f.Rooms, 2)
	assert.Equal(t, RoomTelemetry{RoomID: 1, Players: 12, Stake: 340}, f.Rooms[0])
	assert.Equal(t, RoomTelemetry{RoomID: 2, Players: 7, Stake: 1200}, f.Rooms[1])
}

func TestDecodeSingleQuotedPayload(t *testing.T) {
	raw := `{'msg_type': 'notify_count_down', 'count_down': 9}`

	f, err := DecodeFrame([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, KindCountdown, f.Kind)
	assert.Equal(t, 9, f.Countdown)
}

func TestDecodeNestedStringData(t *testing.T) {
	inner, err := json.Marshal(map[string]any{
		"killed_room_id": 5,
		"issue_id":       77,
	})
	require.NoError(t, err)
	outer, err := json.Marshal(map[string]any{
		"msg_type": "notify_result",
		"data":     string(inner),
	})
	require.NoError(t, err)

	f, err := DecodeFrame(outer)
	require.NoError(t, err)
	assert.Equal(t, KindResult, f.Kind)
	assert.Equal(t, 5, f.KilledRoom)
	assert.Equal(t, int64(77), f.IssueID)
}

func TestDecodeResultKeyVariants(t *testing.T) {
	for _, key := range []string{"killed_room", "killed_room_id", "killedRoom", "killedRoomId", "kill_room"} {
		raw, err := json.Marshal(map[string]any{"msg_type": "notify_result", key: 3})
		require.NoError(t, err)
		f, err := DecodeFrame(raw)
		require.NoError(t, err)
		assert.Equal(t, 3, f.KilledRoom, "key %s", key)
	}

	// Nested under data object.
	f, err := DecodeFrame([]byte(`{"msg_type":"notify_result","data":{"killedRoom":4}}`))
	require.NoError(t, err)
	assert.Equal(t, 4, f.KilledRoom)
}

func TestDecodeEnterGame(t *testing.T) {
	raw := `{
		"msg_type": "notify_enter_game",
		"last_killed_room_id": 6,
		"info": {"start_time": 1700000000000, "end_time": 1700000060000},
		"room_stat": [{"room_id": 3, "user_cnt": 4, "total_bet_amount": 55}]
	}`

	f, err := DecodeFrame([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, KindEnterGame, f.Kind)
	assert.Equal(t, 6, f.LastKilledRoom)
	// Millisecond timestamps are normalized to seconds.
	assert.InDelta(t, 1.7e9, f.StartTime, 1)
	assert.InDelta(t, 1.7e9+60, f.EndTime, 1)
	require.Len(t, f.Rooms, 1)
	assert.Equal(t, RoomTelemetry{RoomID: 3, Players: 4, Stake: 55}, f.Rooms[0])
}

func TestDecodeCountdownZero(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"msg_type":"notify_count_down","count_down":0}`))
	require.NoError(t, err)
	assert.Equal(t, 0, f.Countdown)

	f, err = DecodeFrame([]byte(`{"msg_type":"notify_count_down"}`))
	require.NoError(t, err)
	assert.Equal(t, -1, f.Countdown, "absent countdown is -1")
}

func TestDecodeUnknownAndGarbage(t *testing.T) {
	f, err := DecodeFrame([]byte(`{"msg_type":"notify_other"}`))
	require.NoError(t, err)
	assert.Equal(t, KindUnknown, f.Kind)

	_, err = DecodeFrame([]byte(`not json at all`))
	assert.Error(t, err)
}

func TestEnterGameHandshake(t *testing.T) {
	msg := NewEnterGame("BUILD", 12345, "secret")
	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "handle_enter_game", decoded["msg_type"])
	assert.Equal(t, "BUILD", decoded["asset_type"])
	assert.Equal(t, float64(12345), decoded["user_id"])
	assert.Equal(t, "secret", decoded["user_secret_key"])
}
