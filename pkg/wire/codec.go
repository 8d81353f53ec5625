package wire

// RoundTripView reports a decode, encode, decode cycle over one request.
type RoundTripView struct {
	Input     string       `json:"input"`
	Canonical string       `json:"canonical"`
	Request   OrderRequest `json:"request"`
	Equal     bool         `json:"equal"`
}

// RoundTrip decodes text as an order request, re-encodes it and decodes the
// result again. Equal is true when both decodes agree field for field.
func RoundTrip(text string) (RoundTripView, error) {
	first, err := DecodeOrderRequest(text)
	if err != nil {
		return RoundTripView{}, err
	}
	canonical, err := EncodeOrderRequest(first)
	if err != nil {
		return RoundTripView{}, err
	}
	second, err := DecodeOrderRequest(canonical)
	if err != nil {
		return RoundTripView{}, err
	}
	return RoundTripView{
		Input:     text,
		Canonical: canonical,
		Request:   first,
		Equal:     first.Equal(second),
	}, nil
}
