package invoice

// Status is the canonical outcome of a submission or status query.
type Status string

const (
	StatusAuthorized    Status = "AUTHORIZED"
	StatusProcessing    Status = "PROCESSING"
	StatusNotAuthorized Status = "NOT_AUTHORIZED"
	StatusError         Status = "ERROR"
)

// Authorization holds the authority's authorization number and timestamp.
type Authorization struct {
	Number string `json:"number"`
	Date   string `json:"date"`
}

// Result is returned for every submission and status query.
// byte slices are serialised as base64 by encoding/json.
type Result struct {
	Status             Status         `json:"status"`
	AccessKey          string         `json:"accessKey,omitempty"`
	Environment        Environment    `json:"environment,omitempty"`
	Authorization      *Authorization `json:"authorization,omitempty"`
	SignedDocument     []byte         `json:"xml_signed_base64,omitempty"`
	AuthorizedDocument []byte         `json:"xml_authorized_base64,omitempty"`
	Messages           []string       `json:"messages"`
	PayloadHash        string         `json:"payload_hash,omitempty"`
}

// ErrorResult builds an ERROR result carrying messages.
func ErrorResult(messages ...string) Result {
	if messages == nil {
		messages = []string{}
	}
	return Result{Status: StatusError, Messages: messages}
}

// Normalized returns r with a non-nil Messages slice so it always serialises as an array.
func (r Result) Normalized() Result {
	if r.Messages == nil {
		r.Messages = []string{}
	}
	return r
}
