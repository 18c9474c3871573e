package api

// HealthResponse is the payload for GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Port    int    `json:"port"`
	Clients int    `json:"clients"`
	Time    string `json:"time"` // ISO-8601 UTC, millisecond precision
}

// TriggerResponse is the success payload for POST /trigger.
type TriggerResponse struct {
	OK          bool `json:"ok"`
	DeliveredTo int  `json:"deliveredTo"`
}

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}
