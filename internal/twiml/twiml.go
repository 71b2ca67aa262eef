// Package twiml renders the call-control instruction documents consumed by
// the telephony platform. Verb order and attributes are part of the contract:
// the platform executes children of <Response> strictly in sequence.
package twiml

import (
	"encoding/xml"
	"strings"
)

// GatherTimeoutSeconds is the post-speech silence that ends capture.
const GatherTimeoutSeconds = 6

// Response is the root instruction document.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []interface{}
}

// Play instructs the platform to fetch and play audio from a URL. Relative
// URLs resolve against the webhook that returned the document.
type Play struct {
	XMLName xml.Name `xml:"Play"`
	URL     string   `xml:",chardata"`
}

// Say speaks text with the platform's own synthesis; the degraded path when
// our synthesizer is unavailable.
type Say struct {
	XMLName xml.Name `xml:"Say"`
	Text    string   `xml:",chardata"`
}

// Gather captures caller speech and posts the transcript to Action.
type Gather struct {
	XMLName xml.Name `xml:"Gather"`
	Input   string   `xml:"input,attr"`
	Action  string   `xml:"action,attr"`
	Method  string   `xml:"method,attr"`
	Timeout int      `xml:"timeout,attr"`
	Verbs   []interface{}
}

// Redirect re-enters the webhook flow at another URL.
type Redirect struct {
	XMLName xml.Name `xml:"Redirect"`
	Method  string   `xml:"method,attr"`
	URL     string   `xml:",chardata"`
}

// NewGather returns a speech gather with the contract's fixed attributes:
// input="speech", method="POST", timeout=6.
func NewGather(action string, verbs ...interface{}) Gather {
	return Gather{
		Input:   "speech",
		Action:  action,
		Method:  "POST",
		Timeout: GatherTimeoutSeconds,
		Verbs:   verbs,
	}
}

// Render serializes the document with an XML declaration.
func (r Response) Render() (string, error) {
	body, err := xml.Marshal(r)
	if err != nil {
		return "", err
	}
	return xml.Header + string(body), nil
}

// Sanitize strips characters that would break the document's markup from text
// destined for Say. The xml encoder escapes on its own; this additionally
// guarantees reply text from an upstream model never smuggles markup.
func Sanitize(text string) string {
	repl := strings.NewReplacer("&", "", "<", "", ">", "")
	return strings.TrimSpace(repl.Replace(text))
}
