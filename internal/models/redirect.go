package models

// Protocols accepted as a redirect target.
const (
	ProtocolHTTP  = "http"
	ProtocolHTTPS = "https"
)

// Redirect maps a set of source hostnames onto one target host and protocol.
// HostSources is not stored on this row; it is derived from the hostsource
// rows owned by the redirect.
type Redirect struct {
	ID             string   `json:"id" dynamodbav:"id"`
	ApplicationID  string   `json:"applicationId" dynamodbav:"applicationId"`
	TargetHost     string   `json:"targetHost" dynamodbav:"targetHost"`
	TargetProtocol string   `json:"targetProtocol" dynamodbav:"targetProtocol"`
	HostSources    []string `json:"hostSources" dynamodbav:"-"`
	CreatedAt      int64    `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt      int64    `json:"updatedAt" dynamodbav:"updatedAt"`
}

// RedirectHostSource binds one hostname to a redirect. The hostname is the
// sole primary key, so a hostname can route for at most one redirect across
// the whole system.
type RedirectHostSource struct {
	HostSource    string `json:"hostsource" dynamodbav:"hostsource"`
	ApplicationID string `json:"applicationId" dynamodbav:"applicationId"`
	RedirectID    string `json:"redirectId" dynamodbav:"redirectId"`
	CreatedAt     int64  `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt     int64  `json:"updatedAt" dynamodbav:"updatedAt"`
}

// ConversionJob is a queued file-conversion request for a redirect's
// from/to mapping file.
type ConversionJob struct {
	ID            string `json:"id"`
	ApplicationID string `json:"applicationId"`
	RedirectID    string `json:"redirectId"`
	File          string `json:"file"`
	State         string `json:"state"`
	CreatedAt     int64  `json:"createdAt"`
}

// Conversion job states.
const (
	JobStateWaiting   = "waiting"
	JobStateCompleted = "completed"
	JobStateFailed    = "failed"
)
