package server

// Identity is the static snake metadata returned on GET / and /start.
type Identity struct {
	Name           string
	Color          string
	SecondaryColor string
	HeadURL        string
	HeadType       string
	TailType       string
	Taunt          string
}

const defaultHeadURL = "http://vignette1.wikia.nocookie.net/nintendo/images/6/61/Bowser_Icon.png/revision/latest?cb=20120820000805&path-prefix=en"

func DefaultIdentity() Identity {
	return Identity{
		Name:     "Simple Snake",
		Color:    "#FF3497",
		HeadURL:  defaultHeadURL,
		HeadType: "dead",
		TailType: "pixel",
		Taunt:    "I can find food!",
	}
}

func (id Identity) StartResponse() StartResponse {
	return StartResponse{
		Name:           id.Name,
		Color:          id.Color,
		SecondaryColor: id.SecondaryColor,
		HeadURL:        id.HeadURL,
		HeadType:       id.HeadType,
		TailType:       id.TailType,
		Taunt:          id.Taunt,
	}
}
