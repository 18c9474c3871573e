package event

import "time"

// Hello is sent to a newly admitted peer only.
func Hello(now time.Time, id, role string, total int) Event {
	return New(TypeHello, map[string]any{
		KeyServerTs:    Timestamp(now),
		"id":           id,
		"role":         role,
		"totalClients": total,
	})
}

// Ack answers every inbound WebSocket frame that was not dropped.
func Ack(now time.Time, ok bool, message string) Event {
	return New(TypeAck, map[string]any{
		KeyServerTs: Timestamp(now),
		"ok":        ok,
		"message":   message,
	})
}

// Leave announces a departed peer to the remaining ones.
func Leave(now time.Time, id, role string, total int) Event {
	return New(TypePresence, map[string]any{
		KeyServerTs:    Timestamp(now),
		"action":       "leave",
		"id":           id,
		"role":         role,
		"totalClients": total,
	})
}
