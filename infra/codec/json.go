package codec

import "encoding/json"

type JSON struct{}

func (JSON) Name() string        { return "json" }
func (JSON) ContentType() string { return "application/json" }

func (JSON) Encode(e Envelope) ([]byte, error) {
	return json.Marshal(e)
}

func (JSON) Decode(b []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(b, &e)
	return e, err
}
