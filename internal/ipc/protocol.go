package ipc

// Request is one JSON-line command sent to the running daemon.
type Request struct {
	Command string `json:"command"`
	Text    string `json:"text,omitempty"`
}

// Response is the daemon's single-line reply.
type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
