package listen

// InputType is the kind of an outbound message.
type InputType string

const (
	// CloseStream tells the server no more audio follows. It is the zero
	// value so an empty Input is the end-of-stream marker.
	CloseStream InputType = ""

	// Audio carries a chunk of PCM audio.
	Audio InputType = "Audio"

	// KeepAlive keeps an idle stream open without sending audio.
	KeepAlive InputType = "KeepAlive"
)

// Input is one outbound message.
type Input struct {
	Type  InputType
	Audio []byte
}

// ResultType is the type field of a server message.
type ResultType string

const (
	ResultTypeResults      ResultType = "Results"
	ResultTypeMetadata     ResultType = "Metadata"
	ResultTypeSpeechStart  ResultType = "SpeechStarted"
	ResultTypeUtteranceEnd ResultType = "UtteranceEnd"
)

// Result is a recognition result.
type Result struct {
	Type ResultType `json:"type" msgpack:"type"`

	// Start and Duration locate the result in the audio, in seconds.
	Start    float64 `json:"start" msgpack:"start"`
	Duration float64 `json:"duration" msgpack:"duration"`

	// IsFinal marks a result whose transcript will not change anymore.
	IsFinal bool `json:"is_final" msgpack:"is_final"`

	// SpeechFinal marks the end of an utterance.
	SpeechFinal bool `json:"speech_final" msgpack:"speech_final"`

	Channel Channel `json:"channel" msgpack:"channel"`
}

// Channel holds the alternatives for one audio channel.
type Channel struct {
	Alternatives []Alternative `json:"alternatives" msgpack:"alternatives"`
}

// Alternative is one transcription hypothesis.
type Alternative struct {
	Transcript string  `json:"transcript" msgpack:"transcript"`
	Confidence float64 `json:"confidence" msgpack:"confidence"`
	Words      []Word  `json:"words,omitempty" msgpack:"words,omitempty"`
}

// Word is a single recognized word with its timing.
type Word struct {
	Word       string  `json:"word" msgpack:"word"`
	Start      float64 `json:"start" msgpack:"start"`
	End        float64 `json:"end" msgpack:"end"`
	Confidence float64 `json:"confidence" msgpack:"confidence"`
}

// Transcript returns the transcript of the best alternative, or "" if there
// is none.
func (r Result) Transcript() string {
	if len(r.Channel.Alternatives) == 0 {
		return ""
	}
	return r.Channel.Alternatives[0].Transcript
}

// Confidence returns the confidence of the best alternative.
func (r Result) Confidence() float64 {
	if len(r.Channel.Alternatives) == 0 {
		return 0
	}
	return r.Channel.Alternatives[0].Confidence
}
