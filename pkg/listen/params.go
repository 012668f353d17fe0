package listen

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Path is the request path of the listen API.
const Path = "/v1/listen"

// DefaultSampleRate is used when Params.SampleRate is zero.
const DefaultSampleRate = 16000

// Params describes a transcription request.
type Params struct {
	// Endpoint is the server base URL, e.g. "wss://api.example.com". Path is
	// appended unless the URL already has a path.
	Endpoint string

	// APIKey is sent as "Authorization: Token <key>". Optional.
	APIKey string

	Model    string
	Language string

	// SampleRate and Channels describe the linear16 audio being sent.
	SampleRate int
	Channels   int

	InterimResults bool
	Punctuate      bool
	Keywords       []string

	// Extra query parameters passed through verbatim.
	Extra map[string]string
}

// URL builds the request URL.
func (p Params) URL() (string, error) {
	if p.Endpoint == "" {
		return "", errors.New("listen: missing endpoint")
	}
	u, err := url.Parse(p.Endpoint)
	if err != nil {
		return "", err
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = Path
	}

	q := u.Query()
	if p.Model != "" {
		q.Set("model", p.Model)
	}
	if p.Language != "" {
		q.Set("language", p.Language)
	}
	rate := p.SampleRate
	if rate == 0 {
		rate = DefaultSampleRate
	}
	channels := p.Channels
	if channels == 0 {
		channels = 1
	}
	q.Set("encoding", "linear16")
	q.Set("sample_rate", strconv.Itoa(rate))
	q.Set("channels", strconv.Itoa(channels))
	q.Set("interim_results", strconv.FormatBool(p.InterimResults))
	q.Set("punctuate", strconv.FormatBool(p.Punctuate))
	for _, kw := range p.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			q.Add("keywords", kw)
		}
	}
	for k, v := range p.Extra {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Header builds the request headers. Every call gets a fresh request id.
func (p Params) Header() http.Header {
	h := http.Header{}
	if p.APIKey != "" {
		h.Set("Authorization", "Token "+p.APIKey)
	}
	h.Set("X-Request-Id", uuid.NewString())
	return h
}
