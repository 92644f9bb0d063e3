// Package ws implements both halves of the progress push channel: the
// server-side subscriber endpoint and the reconnecting client.
//
// Wire format: JSON envelopes {"type", ...}. Server to client types are
// "connected" (once on open), "progress" (generation progress fields inline),
// "error" and "pong". Client to server: "ping".
package ws

import "github.com/strogmv/forge/internal/domain"

const (
	TypeConnected = "connected"
	TypeProgress  = "progress"
	TypeError     = "error"
	TypePing      = "ping"
	TypePong      = "pong"
)

type connectedMsg struct {
	Type  string `json:"type"`
	JobID string `json:"jobId"`
}

type progressMsg struct {
	Type string `json:"type"`
	domain.Progress
}

type errorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type controlMsg struct {
	Type string `json:"type"`
}
