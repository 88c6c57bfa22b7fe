package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tntool/escapebot/internal/numutil"
)

// issueKeys are tried in order when extracting the round id.
var issueKeys = []string{"issue_id", "issueId", "issue", "id"}

// killedKeys are the accepted spellings for the killed room in result frames.
var killedKeys = []string{"killed_room", "killed_room_id", "killedRoom", "killedRoomId", "kill_room"}

// DecodeFrame decodes and classifies one inbound message. Unparseable
// payloads return an error so the caller can drop the frame and continue;
// parseable frames with an unrecognized type come back as KindUnknown.
func DecodeFrame(data []byte) (*Frame, error) {
	obj, err := decodeLoose(data)
	if err != nil {
		return nil, err
	}

	msgType, _ := obj["msg_type"].(string)
	if msgType == "" {
		msgType, _ = obj["type"].(string)
	}

	f := &Frame{
		MsgType:   msgType,
		Countdown: -1,
	}
	f.IssueID = extractIssueID(obj)

	switch {
	case msgType == TypeNotifyEnterGame:
		f.Kind = KindEnterGame
		decodeEnterGame(obj, f)
	case msgType == TypeNotifyIssueStat || strings.Contains(msgType, "issue_stat"):
		f.Kind = KindTelemetry
		decodeTelemetry(obj, f)
	case msgType == TypeNotifyCountDown || strings.Contains(msgType, "count_down"):
		f.Kind = KindCountdown
		decodeCountdown(obj, f)
	case msgType == TypeNotifyResult || strings.Contains(msgType, "result"):
		f.Kind = KindResult
		decodeResult(obj, f)
	default:
		f.Kind = KindUnknown
	}
	return f, nil
}

// decodeLoose parses JSON with two fallbacks seen from the live server:
// single-quoted pseudo-JSON, and an outer envelope whose "data" field is a
// string containing the actual JSON payload (merged over the envelope).
func decodeLoose(data []byte) (map[string]any, error) {
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		requoted := strings.ReplaceAll(string(data), "'", `"`)
		if err2 := json.Unmarshal([]byte(requoted), &obj); err2 != nil {
			return nil, fmt.Errorf("decode frame: %w", err)
		}
	}

	if inner, ok := obj["data"].(string); ok {
		var nested map[string]any
		if err := json.Unmarshal([]byte(inner), &nested); err == nil {
			merged := make(map[string]any, len(obj)+len(nested))
			for k, v := range obj {
				merged[k] = v
			}
			for k, v := range nested {
				merged[k] = v
			}
			obj = merged
		}
	}
	return obj, nil
}

func decodeEnterGame(obj map[string]any, f *Frame) {
	if info, ok := obj["info"].(map[string]any); ok {
		f.StartTime = epochSeconds(info["start_time"])
		f.EndTime = epochSeconds(info["end_time"])
	}
	if v, ok := numutil.ParseInt(obj["last_killed_room_id"]); ok {
		f.LastKilledRoom = v
	}
	if rooms, ok := obj["room_stat"].([]any); ok {
		f.Rooms = decodeRooms(rooms)
	}
}

func decodeTelemetry(obj map[string]any, f *Frame) {
	rooms, _ := obj["rooms"].([]any)
	if rooms == nil {
		if d, ok := obj["data"].(map[string]any); ok {
			rooms, _ = d["rooms"].([]any)
		}
	}
	f.Rooms = decodeRooms(rooms)
	f.StartTime = epochSeconds(obj["start_time"])
	f.EndTime = epochSeconds(obj["end_time"])
}

func decodeCountdown(obj map[string]any, f *Frame) {
	for _, key := range []string{"count_down", "countDown", "count"} {
		if v, ok := numutil.ParseInt(obj[key]); ok {
			f.Countdown = v
			return
		}
	}
}

func decodeResult(obj map[string]any, f *Frame) {
	for _, key := range killedKeys {
		if v, ok := numutil.ParseInt(obj[key]); ok {
			f.KilledRoom = v
			return
		}
	}
	if d, ok := obj["data"].(map[string]any); ok {
		for _, key := range killedKeys {
			if v, ok := numutil.ParseInt(d[key]); ok {
				f.KilledRoom = v
				return
			}
		}
	}
}

func decodeRooms(rooms []any) []RoomTelemetry {
	out := make([]RoomTelemetry, 0, len(rooms))
	for _, raw := range rooms {
		rm, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		rt := RoomTelemetry{}
		idOK := false
		for _, key := range []string{"room_id", "roomId", "id"} {
			if v, ok := numutil.ParseInt(rm[key]); ok {
				rt.RoomID = v
				idOK = true
				break
			}
		}
		if !idOK {
			continue
		}
		for _, key := range []string{"user_cnt", "userCount"} {
			if v, ok := numutil.ParseInt(rm[key]); ok {
				rt.Players = v
				break
			}
		}
		for _, key := range []string{"total_bet_amount", "totalBet", "bet"} {
			if v, ok := numutil.Parse(rm[key]); ok {
				rt.Stake = v
				break
			}
		}
		out = append(out, rt)
	}
	return out
}

func extractIssueID(obj map[string]any) int64 {
	for _, key := range issueKeys {
		if v, ok := numutil.Parse(obj[key]); ok {
			return int64(v)
		}
	}
	if d, ok := obj["data"].(map[string]any); ok {
		for _, key := range issueKeys {
			if v, ok := numutil.Parse(d[key]); ok {
				return int64(v)
			}
		}
	}
	return 0
}

// epochSeconds normalizes a server timestamp that may be in seconds or
// milliseconds to Unix seconds.
func epochSeconds(v any) float64 {
	f, ok := numutil.Parse(v)
	if !ok || f <= 0 {
		return 0
	}
	// A value hundreds of times larger than "now" is in milliseconds.
	if f > float64(time.Now().Unix())*500 {
		f /= 1000
	}
	return f
}
