package protocol

import "time"

// RecognitionRequest asks the runtime to recognize a captured screen
// region. Pixels are row-major BGRX samples, four bytes per pixel,
// base64-encoded on the wire.
type RecognitionRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Left      int    `json:"left"`
	Top       int    `json:"top"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Pixels    []byte `json:"pixels"`
}

// RecognizedWord locates one word in a flattened result.
type RecognizedWord struct {
	Offset int `json:"offset"`
	X      int `json:"x"`
	Y      int `json:"y"`
}

// RecognitionText carries a flattened recognition result: the full text
// plus the line and word offset tables consumers need for navigation.
type RecognitionText struct {
	SessionID      string           `json:"session_id"`
	Text           string           `json:"text"`
	LineEndOffsets []int            `json:"line_end_offsets"`
	Words          []RecognizedWord `json:"words"`
	OriginX        int              `json:"origin_x"`
	OriginY        int              `json:"origin_y"`
	Timestamp      time.Time        `json:"timestamp"`
}

// RecognitionFailure reports that a recognition session failed.
type RecognitionFailure struct {
	SessionID string    `json:"session_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectRecogRequest = "recog.capture.request"
	SubjectRecogResult  = "recog.text.result"
	SubjectRecogFailed  = "recog.text.failed"
)
